package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/artpar/zentypes/adapters/clock"
	"github.com/artpar/zentypes/bootstrap"
	"github.com/artpar/zentypes/ports"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the raw-response cache",
	Long: `Manage the cache of raw registry responses.

When cache.enabled is set (or USE_CACHE=true), registry listings and symbol
definitions are stored in cache.path and reused by later runs.

Examples:
  zentypes cache stats
  zentypes cache clear`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache contents",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached response",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// openCache opens the configured cache regardless of cache.enabled.
func openCache() (ports.SymbolCache, func(), string, error) {
	cfg, err := loadConfig("")
	if err != nil {
		return nil, nil, "", err
	}
	store, db, err := bootstrap.OpenCache(cfg.Cache, clock.System{})
	if err != nil {
		return nil, nil, "", fmt.Errorf("open cache: %w", err)
	}
	closeFn := func() {
		if db != nil {
			db.Close()
		}
	}
	return store, closeFn, cfg.Cache.Path, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	store, closeFn, path, err := openCache()
	if err != nil {
		return err
	}
	defer closeFn()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}

	updated := "never"
	if !stats.UpdatedAt.IsZero() {
		updated = stats.UpdatedAt.Local().Format("2006-01-02 15:04:05")
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PATH\t%s\n", path)
	fmt.Fprintf(w, "SYMBOLS\t%d\n", stats.Symbols)
	fmt.Fprintf(w, "LISTING\t%t\n", stats.HasNames)
	fmt.Fprintf(w, "UPDATED\t%s\n", updated)
	return w.Flush()
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, closeFn, path, err := openCache()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := store.Clear(context.Background()); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Cleared %s\n", checkMark, path)
	return nil
}
