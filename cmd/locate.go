package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/catastro-cli/internal/model"
	"github.com/sells-group/catastro-cli/internal/table"
	"github.com/sells-group/catastro-cli/pkg/ovc"
)

var locateCmd = &cobra.Command{
	Use:   "locate REFERENCE...",
	Short: "Resolve cadastral references to coordinates",
	Long:  "Resolves each cadastral reference to the point the cadastre reports for it. With --shp the points are also written to a shapefile.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		province, _ := cmd.Flags().GetString("province")
		municipality, _ := cmd.Flags().GetString("municipality")
		srs, _ := cmd.Flags().GetString("srs")
		shpPath, _ := cmd.Flags().GetString("shp")

		env, err := initQuery(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		locs := make([]model.Location, 0, len(args))
		for _, rc := range args {
			loc, err := env.Catastro.Locate(ctx, province, municipality, rc, srs)
			if err != nil {
				return err
			}
			locs = append(locs, *loc)
		}

		if shpPath != "" {
			if err := table.WriteShapefile(shpPath, locs); err != nil {
				return err
			}
		}
		return emit(cmd, "Locations", table.FromRows(locs))
	},
}

func init() {
	locateCmd.Flags().String("province", "", "province name (optional)")
	locateCmd.Flags().String("municipality", "", "municipality name (optional)")
	locateCmd.Flags().String("srs", ovc.DefaultSRS, "spatial reference system of the result")
	locateCmd.Flags().String("shp", "", "write the points to this shapefile")
	rootCmd.AddCommand(locateCmd)
}
