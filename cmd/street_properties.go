package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/catastro-cli/internal/catastro"
	"github.com/sells-group/catastro-cli/internal/table"
)

var streetPropertiesCmd = &cobra.Command{
	Use:   "street-properties",
	Short: "Scan a street for properties",
	Long:  "Looks up street numbers 0 to --max minus one and lists the properties found whose fields are all filled in.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		addr, err := addressFromFlags(cmd)
		if err != nil {
			return err
		}
		maxNumber, _ := cmd.Flags().GetInt("max")
		if err := checkMaxNumber(maxNumber); err != nil {
			return err
		}

		env, err := initQuery(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		props, err := env.Catastro.PropertiesOnStreet(ctx, addr, maxNumber)
		if err != nil {
			return err
		}
		return emit(cmd, "Properties", table.FromRows(props))
	},
}

func checkMaxNumber(n int) error {
	if n < 0 || n > catastro.MaxStreetNumbers {
		return eris.Errorf("street-properties: --max must be between 0 and %d, got %d", catastro.MaxStreetNumbers, n)
	}
	return nil
}

func init() {
	addAddressFlags(streetPropertiesCmd)
	streetPropertiesCmd.Flags().Int("max", 0, "scan street numbers below this one")
	_ = streetPropertiesCmd.MarkFlagRequired("max")
	rootCmd.AddCommand(streetPropertiesCmd)
}
