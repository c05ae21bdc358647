package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/catastro-cli/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local response cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cached responses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cache, err := store.NewSQLite(cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer cache.Close() //nolint:errcheck
		if err := cache.Migrate(ctx); err != nil {
			return err
		}

		deleted, err := cache.DeleteExpired(ctx)
		if err != nil {
			return err
		}
		remaining, err := cache.Len(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired responses, %d left in %s\n", deleted, remaining, cfg.Cache.Path)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
