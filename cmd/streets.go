package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/catastro-cli/internal/catastro"
	"github.com/sells-group/catastro-cli/internal/table"
)

var streetsCmd = &cobra.Command{
	Use:   "streets PROVINCE MUNICIPALITY",
	Short: "List the streets of a municipality",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initQuery(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		streetType, _ := cmd.Flags().GetString("type")
		name, _ := cmd.Flags().GetString("name")

		streets, err := env.Catastro.Streets(ctx, args[0], args[1], catastro.StreetFilter{
			Type: streetType,
			Name: name,
		})
		if err != nil {
			return err
		}
		return emit(cmd, "Streets", table.FromRows(streets))
	},
}

func init() {
	streetsCmd.Flags().String("type", "", "street type code to filter by (CL, AV, PZ, ...)")
	streetsCmd.Flags().String("name", "", "street name to filter by")
	rootCmd.AddCommand(streetsCmd)
}
