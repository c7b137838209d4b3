package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/artpar/zentypes/adapters/clock"
	"github.com/artpar/zentypes/bootstrap"
	"github.com/artpar/zentypes/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the zentypes configuration file.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - The filter expression compiles
  - The registry is reachable (optional)
  - The cache database is writable (optional)

Examples:
  zentypes validate
  zentypes validate --check-registry --config /etc/zentypes/zentypes.yaml`,
	RunE: runValidate,
}

var (
	validateCheckRegistry bool
	validateCheckCache    bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckRegistry, "check-registry", false, "check if the registry is reachable")
	validateCmd.Flags().BoolVar(&validateCheckCache, "check-cache", false, "check if the cache database is writable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	// Check file exists
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	// Load and validate config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config syntax valid\n", checkMark)

	if _, err := bootstrap.NewFilter(cfg.Filter); err != nil {
		fmt.Printf("  %s Filter expression compiles\n", crossMark)
		return err
	}
	fmt.Printf("  %s Filter expression compiles\n", checkMark)

	// Show config summary
	if cfg.Registry.Snapshot != "" {
		fmt.Printf("  %s Snapshot: %s\n", checkMark, cfg.Registry.Snapshot)
	} else {
		fmt.Printf("  %s Registry: %s\n", checkMark, cfg.Registry.URL)
	}
	fmt.Printf("  %s Output: %s (%s)\n", checkMark, outputName(cfg.Output.Path), cfg.Output.Format)
	fmt.Printf("  %s Cache: %s (enabled: %t)\n", checkMark, cfg.Cache.Path, cfg.Cache.Enabled)

	failed := false

	// Optional: check registry
	if validateCheckRegistry {
		if err := checkRegistryReachable(cfg.Registry); err != nil {
			failed = true
			fmt.Printf("  %s Registry reachable\n", crossMark)
			fmt.Printf("      Error: %v\n", err)
		} else {
			fmt.Printf("  %s Registry reachable\n", checkMark)
		}
	}

	// Optional: check cache
	if validateCheckCache {
		if err := checkCacheWritable(cfg.Cache); err != nil {
			failed = true
			fmt.Printf("  %s Cache writable\n", crossMark)
			fmt.Printf("      Error: %v\n", err)
		} else {
			fmt.Printf("  %s Cache writable\n", checkMark)
		}
	}

	fmt.Println()
	if failed {
		return fmt.Errorf("configuration checks failed")
	}
	fmt.Println("Configuration is valid.")
	return nil
}

func outputName(path string) string {
	if path == "" || path == "-" {
		return "stdout"
	}
	return path
}

func checkRegistryReachable(cfg config.RegistryConfig) error {
	if cfg.URL == "" {
		return fmt.Errorf("registry.url not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return bootstrap.NewRegistry(cfg).HealthCheck(ctx)
}

func checkCacheWritable(cfg config.CacheConfig) error {
	store, db, err := bootstrap.OpenCache(cfg, clock.System{})
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = store.Stats(ctx)
	return err
}
