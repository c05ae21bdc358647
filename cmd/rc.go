package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/catastro-cli/internal/table"
)

var rcCmd = &cobra.Command{
	Use:   "rc REFERENCE",
	Short: "Look up a property by cadastral reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		province, _ := cmd.Flags().GetString("province")
		municipality, _ := cmd.Flags().GetString("municipality")

		env, err := initQuery(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		props, err := env.Catastro.PropertyByReference(ctx, province, municipality, args[0])
		if err != nil {
			return err
		}
		if len(props) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "No property found for %s.\n", args[0])
		}
		return emit(cmd, "Property", table.FromRows(props))
	},
}

func init() {
	rcCmd.Flags().String("province", "", "province name (optional)")
	rcCmd.Flags().String("municipality", "", "municipality name (optional)")
	rootCmd.AddCommand(rcCmd)
}
