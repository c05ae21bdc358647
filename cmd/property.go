package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/catastro-cli/internal/model"
	"github.com/sells-group/catastro-cli/internal/table"
)

var propertyCmd = &cobra.Command{
	Use:   "property",
	Short: "Look up the property at a street address",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		addr, err := addressFromFlags(cmd)
		if err != nil {
			return err
		}
		addr.Number, _ = cmd.Flags().GetInt("number")
		if addr.Number < 0 {
			return eris.New("property: --number must not be negative")
		}

		env, err := initQuery(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.Catastro.Property(ctx, addr)
		if err != nil {
			return err
		}
		if p == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "No property at %s %s %d.\n", addr.StreetType, addr.StreetName, addr.Number)
			return nil
		}
		return emit(cmd, "Property", table.FromRows([]model.Property{*p}))
	},
}

func init() {
	addAddressFlags(propertyCmd)
	propertyCmd.Flags().Int("number", 0, "street number")
	_ = propertyCmd.MarkFlagRequired("number")
	rootCmd.AddCommand(propertyCmd)
}
