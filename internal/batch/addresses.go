package batch

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catastro-cli/internal/model"
)

// headerAliases maps accepted header names to address fields.
var headerAliases = map[string]string{
	"province":    "province",
	"provincia":   "province",
	"town":        "town",
	"municipio":   "town",
	"pueblo":      "town",
	"street_type": "street_type",
	"tipo_via":    "street_type",
	"street":      "street",
	"calle":       "street",
	"nombre_via":  "street",
	"number":      "number",
	"numero":      "number",
}

// ParseAddresses maps rows to addresses. The first row is a header naming
// the province, town, street and number columns; street_type is optional
// and defaults to CL.
func ParseAddresses(rows [][]string) ([]model.Address, error) {
	if len(rows) == 0 {
		return nil, eris.New("batch: no header row")
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		if i == 0 {
			// Spreadsheet exports often start the file with a UTF-8 byte order mark.
			h = strings.TrimPrefix(h, "\ufeff")
		}
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", "_"))
		if field, ok := headerAliases[key]; ok {
			cols[field] = i
		}
	}
	for _, required := range []string{"province", "town", "street", "number"} {
		if _, ok := cols[required]; !ok {
			return nil, eris.Errorf("batch: header has no %s column", required)
		}
	}

	cell := func(row []string, field string) string {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := make([]model.Address, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2

		number, err := strconv.Atoi(cell(row, "number"))
		if err != nil || number < 0 {
			return nil, eris.Errorf("batch: row %d: invalid number %q", line, cell(row, "number"))
		}

		addr := model.Address{
			Province:   cell(row, "province"),
			Town:       cell(row, "town"),
			StreetType: cell(row, "street_type"),
			StreetName: cell(row, "street"),
			Number:     number,
		}
		if addr.StreetType == "" {
			addr.StreetType = "CL"
		}
		if addr.Province == "" || addr.Town == "" || addr.StreetName == "" {
			return nil, eris.Errorf("batch: row %d: province, town and street are required", line)
		}
		out = append(out, addr)
	}
	return out, nil
}
