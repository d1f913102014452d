package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/costest-cli/internal/refdata"
)

var refcacheCmd = &cobra.Command{
	Use:   "refcache",
	Short: "Manage the reference-data parse cache",
}

var refcachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop all cached reference-data parses",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := refdata.OpenCache(cfg.Data.CachePath)
		if err != nil {
			return err
		}
		defer cache.Close()

		n, err := cache.Purge()
		if err != nil {
			return err
		}
		fmt.Printf("purged %d cached entries\n", n)
		return nil
	},
}

func init() {
	refcacheCmd.AddCommand(refcachePurgeCmd)
	rootCmd.AddCommand(refcacheCmd)
}
