package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/catastro-cli/internal/table"
)

var provincesCmd = &cobra.Command{
	Use:   "provinces",
	Short: "List every province",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initQuery(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		provinces, err := env.Catastro.Provinces(ctx)
		if err != nil {
			return err
		}
		return emit(cmd, "Provinces", table.FromRows(provinces))
	},
}

func init() {
	rootCmd.AddCommand(provincesCmd)
}
