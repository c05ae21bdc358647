package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/catastro-cli/internal/table"
	"github.com/sells-group/catastro-cli/pkg/ovc"
)

var nearCmd = &cobra.Command{
	Use:   "near",
	Short: "List the parcels around a coordinate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		lon, _ := cmd.Flags().GetFloat64("lon")
		lat, _ := cmd.Flags().GetFloat64("lat")
		srs, _ := cmd.Flags().GetString("srs")

		env, err := initQuery(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		near, err := env.Catastro.PropertiesNear(ctx, lon, lat, srs)
		if err != nil {
			return err
		}
		return emit(cmd, "Nearby", table.FromRows(near))
	},
}

func init() {
	nearCmd.Flags().Float64("lon", 0, "longitude (x)")
	nearCmd.Flags().Float64("lat", 0, "latitude (y)")
	nearCmd.Flags().String("srs", ovc.DefaultSRS, "spatial reference system of the coordinate")
	_ = nearCmd.MarkFlagRequired("lon")
	_ = nearCmd.MarkFlagRequired("lat")
	rootCmd.AddCommand(nearCmd)
}
