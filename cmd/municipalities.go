package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/catastro-cli/internal/table"
)

var municipalitiesCmd = &cobra.Command{
	Use:   "municipalities PROVINCE",
	Short: "List the municipalities of a province",
	Long:  "Lists the municipalities of a province given by name or tax-authority code, with both tax-authority and INE codes.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initQuery(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		munis, err := env.Catastro.Municipalities(ctx, args[0])
		if err != nil {
			return err
		}
		return emit(cmd, "Municipalities", table.FromRows(munis))
	},
}

func init() {
	rootCmd.AddCommand(municipalitiesCmd)
}
