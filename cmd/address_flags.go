package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/catastro-cli/internal/model"
)

// addAddressFlags registers the street address flags shared by the
// property lookups.
func addAddressFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("province", "", "province name")
	f.String("town", "", "municipality name")
	f.String("street-type", "CL", "street type code (CL, AV, PZ, ...)")
	f.String("street", "", "street name")
	_ = cmd.MarkFlagRequired("province")
	_ = cmd.MarkFlagRequired("town")
	_ = cmd.MarkFlagRequired("street")
}

func addressFromFlags(cmd *cobra.Command) (model.Address, error) {
	f := cmd.Flags()
	province, _ := f.GetString("province")
	town, _ := f.GetString("town")
	streetType, _ := f.GetString("street-type")
	street, _ := f.GetString("street")

	if province == "" || town == "" || street == "" {
		return model.Address{}, eris.New("--province, --town and --street must not be empty")
	}
	return model.Address{
		Province:   province,
		Town:       town,
		StreetType: streetType,
		StreetName: street,
	}, nil
}
