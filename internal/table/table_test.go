package table

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/catastro-cli/internal/model"
)

func provinceTable() *Table {
	return FromRows([]model.Province{
		{Code: "28", Name: "MADRID"},
		{Code: "15", Name: "A CORUÑA"},
	})
}

func TestFromRows(t *testing.T) {
	tbl := provinceTable()
	assert.Equal(t, []string{"Code", "Name"}, tbl.Columns)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"15", "A CORUÑA"}, tbl.Rows[1])
}

func TestFromRows_EmptyKeepsHeader(t *testing.T) {
	tbl := FromRows([]model.Street{})
	assert.Equal(t, []string{"ProvinceCode", "MunicipalityCode", "StreetCode", "Type", "Name"}, tbl.Columns)
	assert.Zero(t, tbl.Len())
}

func TestFromRows_PropertyConstructions(t *testing.T) {
	tbl := FromRows([]model.Property{{
		CadastralReference: "9872023VH5797S0001WX",
		Constructions:      []string{"VIVIENDA - 80 m^2", "ALMACEN - 5 m^2"},
	}})
	assert.Equal(t, "VIVIENDA - 80 m^2; ALMACEN - 5 m^2", tbl.Rows[0][8])
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "table", want: FormatTable},
		{in: "CSV", want: FormatCSV},
		{in: " json ", want: FormatJSON},
		{in: "yaml", want: FormatYAML},
		{in: "xlsx", want: FormatXLSX},
		{in: "parquet", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, provinceTable()))
	assert.Equal(t, "Code,Name\n28,MADRID\n15,A CORUÑA\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, provinceTable()))

	var got []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []map[string]string{
		{"Code": "28", "Name": "MADRID"},
		{"Code": "15", "Name": "A CORUÑA"},
	}, got)
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, FromRows([]model.Province{})))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteYAML_KeepsColumnOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, provinceTable()))

	out := buf.String()
	assert.Less(t, strings.Index(out, "Code:"), strings.Index(out, "Name:"))

	var got []map[string]string
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "28", got[0]["Code"])
	assert.Equal(t, "A CORUÑA", got[1]["Name"])
}

func TestWriteTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTerminal(&buf, provinceTable()))

	out := buf.String()
	assert.Contains(t, out, "Code")
	assert.Contains(t, out, "MADRID")
	assert.Contains(t, out, "A CORUÑA")
}

func TestWrite_Dispatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, provinceTable(), FormatCSV))
	assert.True(t, strings.HasPrefix(buf.String(), "Code,Name\n"))

	assert.Error(t, Write(&buf, provinceTable(), FormatXLSX))
	assert.Error(t, Write(&buf, provinceTable(), Format("xml")))
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "provinces.xlsx")
	require.NoError(t, WriteXLSX(path, "Provinces", provinceTable()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet["Provinces"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	var got [][]string
	for _, row := range sheet.Rows {
		var cells []string
		for _, c := range row.Cells {
			cells = append(cells, c.String())
		}
		got = append(got, cells)
	}
	assert.Equal(t, [][]string{{"Code", "Name"}, {"28", "MADRID"}, {"15", "A CORUÑA"}}, got)
}

func TestWriteShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parcels.shp")
	locs := []model.Location{
		{CadastralReference: "9872023VH5797S", SRS: "EPSG:4326", X: -3.7038, Y: 40.4168, Address: "CL MAYOR 1"},
		{CadastralReference: "1234567AB1234C", SRS: "EPSG:4326", X: -5.9845, Y: 37.3891},
	}
	require.NoError(t, WriteShapefile(path, locs))

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	require.Len(t, r.Fields(), 3)

	var points []shp.Point
	var refs []string
	for r.Next() {
		n, shape := r.Shape()
		p, ok := shape.(*shp.Point)
		require.True(t, ok)
		points = append(points, *p)
		refs = append(refs, strings.TrimRight(r.ReadAttribute(n, 0), " \x00"))
	}

	require.Len(t, points, 2)
	assert.InDelta(t, -3.7038, points[0].X, 1e-9)
	assert.InDelta(t, 37.3891, points[1].Y, 1e-9)
	assert.Equal(t, []string{"9872023VH5797S", "1234567AB1234C"}, refs)
}
