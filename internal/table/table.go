// Package table lays cadastre records out as tables and writes them in the
// supported output formats.
package table

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catastro-cli/internal/model"
)

// Table is a header plus string rows in column order.
type Table struct {
	Columns []string
	Rows    [][]string
}

// FromRows builds a Table from records. The columns come from the record
// type, so an empty slice still yields a header.
func FromRows[R model.Row](rows []R) *Table {
	var zero R
	t := &Table{Columns: zero.Columns(), Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, r.Values())
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Records returns each row as a column-name to value map.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// Format names an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatJSON, FormatYAML, FormatXLSX:
		return f, nil
	}
	return "", eris.Errorf("table: unsupported format %q", s)
}

// Write renders t to w. XLSX is a file format and goes through WriteXLSX.
func Write(w io.Writer, t *Table, f Format) error {
	switch f {
	case FormatTable:
		return WriteTerminal(w, t)
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatJSON:
		return WriteJSON(w, t)
	case FormatYAML:
		return WriteYAML(w, t)
	case FormatXLSX:
		return eris.New("table: xlsx output needs a file path")
	}
	return eris.Errorf("table: unsupported format %q", f)
}
