package main

import (
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catastro-cli/internal/batch"
	"github.com/sells-group/catastro-cli/internal/table"
)

var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Look up the properties at a list of addresses",
	Long: `Reads addresses from a CSV or XLSX file and looks up the property at each.
The header row must name province, town, street and number columns
(provincia, municipio, calle and numero are accepted too). A street_type
column is optional and defaults to CL. Addresses without a property are
left out of the result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sheet, _ := cmd.Flags().GetString("sheet")
		delim, _ := cmd.Flags().GetString("delimiter")
		if utf8.RuneCountInString(delim) != 1 {
			return eris.Errorf("batch: --delimiter must be a single character, got %q", delim)
		}
		sep, _ := utf8.DecodeRuneInString(delim)

		rows, err := batch.ReadFile(ctx, args[0], batch.ReadOptions{Delimiter: sep, SheetName: sheet})
		if err != nil {
			return err
		}
		addrs, err := batch.ParseAddresses(rows)
		if err != nil {
			return err
		}
		zap.L().Info("batch: addresses loaded", zap.String("file", args[0]), zap.Int("addresses", len(addrs)))

		env, err := initQuery(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		props, err := env.Catastro.PropertiesAt(ctx, addrs)
		if err != nil {
			return err
		}
		return emit(cmd, "Properties", table.FromRows(props))
	},
}

func init() {
	batchCmd.Flags().String("sheet", "", "XLSX sheet to read (default first sheet)")
	batchCmd.Flags().String("delimiter", ",", "CSV field delimiter")
	rootCmd.AddCommand(batchCmd)
}
