package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/docforge/internal/cache"
)

func init() {
	cacheCmd.AddCommand(cacheSweepCmd, cacheStatCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Template cache maintenance",
}

func openCache() (*cache.Cache, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return cache.Open(cfg.Cache.Dir, cfg.Cache.TTLDuration())
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		tc, err := openCache()
		if err != nil {
			return err
		}
		defer func() { _ = tc.Close() }()

		n, err := tc.SweepExpired()
		if err != nil {
			return err
		}
		fmt.Printf("swept %d expired entries from %s\n", n, tc.Dir())
		return nil
	},
}

var cacheStatCmd = &cobra.Command{
	Use:   "stat",
	Short: "Show cache entry counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		tc, err := openCache()
		if err != nil {
			return err
		}
		defer func() { _ = tc.Close() }()

		entries, fresh, err := tc.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d entries (%d fresh, %d stale), ttl %s\n",
			tc.Dir(), entries, fresh, entries-fresh, tc.TTL())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cache entry regardless of freshness",
	RunE: func(cmd *cobra.Command, args []string) error {
		tc, err := openCache()
		if err != nil {
			return err
		}
		defer func() { _ = tc.Close() }()

		n, err := tc.Clear()
		if err != nil {
			return err
		}
		fmt.Printf("removed %d entries from %s\n", n, tc.Dir())
		return nil
	},
}
