package main

import (
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sells-group/catastro-cli/internal/table"
)

// codeEntry is one row of a code index.
type codeEntry struct {
	Code string
	Name string
}

func (codeEntry) Columns() []string { return []string{"Code", "Name"} }

func (e codeEntry) Values() []string { return []string{e.Code, e.Name} }

// codeTable lays an index out sorted by code.
func codeTable(index map[string]string) *table.Table {
	entries := make([]codeEntry, 0, len(index))
	for _, code := range slices.Sorted(maps.Keys(index)) {
		entries = append(entries, codeEntry{Code: code, Name: index[code]})
	}
	return table.FromRows(entries)
}

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Code to name indexes",
}

var codesProvincesCmd = &cobra.Command{
	Use:   "provinces",
	Short: "Map province codes to names",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initQuery(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		index, err := env.Catastro.ProvinceCodeIndex(ctx)
		if err != nil {
			return err
		}
		return emit(cmd, "ProvinceCodes", codeTable(index))
	},
}

var codesMunicipalitiesCmd = &cobra.Command{
	Use:   "municipalities",
	Short: "Map tax-authority municipality codes to names across every province",
	Long:  "Enumerates the municipalities of every province and maps tax-authority codes to names. Codes repeat across provinces; the province listed last wins.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initQuery(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		index, err := env.Catastro.MunicipalityCodeIndex(ctx)
		if err != nil {
			return err
		}
		return emit(cmd, "MunicipalityCodes", codeTable(index))
	},
}

func init() {
	codesCmd.AddCommand(codesProvincesCmd)
	codesCmd.AddCommand(codesMunicipalitiesCmd)
	rootCmd.AddCommand(codesCmd)
}
