package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catastro-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "catastro-cli",
	Short: "Query the Spanish cadastre web services",
	Long:  "Looks up provinces, municipalities, streets and properties in the Sede Electrónica del Catastro and exports them as tables, spreadsheets or Postgres rows.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("format", "", "output format: table, csv, json, yaml or xlsx (default table on a terminal, csv otherwise)")
	pf.StringP("output", "o", "", "write output to this file instead of stdout")
	pf.String("pg-table", "", "also load the rows into this Postgres table (postgres.database_url)")
	pf.String("pg-key", "", "record column that identifies a row, e.g. CadastralReference; rows with an existing key are replaced")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
