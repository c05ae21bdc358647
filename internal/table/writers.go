package table

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// WriteCSV writes a header line followed by one line per row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "table: write CSV header")
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "table: write CSV row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "table: flush CSV")
}

// WriteJSON writes the rows as an indented array of objects.
func WriteJSON(w io.Writer, t *Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t.Records()); err != nil {
		return eris.Wrap(err, "table: encode JSON")
	}
	return nil
}

// WriteYAML writes the rows as a sequence of mappings that keep column order.
func WriteYAML(w io.Writer, t *Table) error {
	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range t.Rows {
		rec := &yaml.Node{Kind: yaml.MappingNode}
		for i, col := range t.Columns {
			var v string
			if i < len(row) {
				v = row[i]
			}
			rec.Content = append(rec.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v},
			)
		}
		doc.Content = append(doc.Content, rec)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "table: encode YAML")
	}
	return eris.Wrap(enc.Close(), "table: close YAML encoder")
}

// WriteTerminal draws a bordered table for interactive use.
func WriteTerminal(w io.Writer, t *Table) error {
	tbl := lgtable.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Columns...).
		Rows(t.Rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	if _, err := fmt.Fprintln(w, tbl.String()); err != nil {
		return eris.Wrap(err, "table: write terminal table")
	}
	return nil
}

// WriteXLSX saves t as a single-sheet workbook at path.
func WriteXLSX(path, sheetName string, t *Table) error {
	if sheetName == "" {
		sheetName = "Sheet1"
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "table: add sheet %q", sheetName)
	}

	addRow(sheet, t.Columns)
	for _, row := range t.Rows {
		addRow(sheet, row)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "table: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
