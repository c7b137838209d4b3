package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/artpar/zentypes/bootstrap"
	"github.com/artpar/zentypes/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "zentypes",
	Short: "Generate TypeScript declarations from a zen schema registry",
	Long: `zentypes reads every schema symbol from a zen schema registry and
compiles them into TypeScript declarations.

Quick start:
  zentypes generate --out types.ts   # Compile the registry once
  zentypes serve                     # Serve generated output over HTTP

Inspection:
  zentypes symbols                   # List symbols that would be compiled
  zentypes inspect hl7-fhir-r4-core.Patient/schema
  zentypes validate                  # Validate configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "config file path")
}

// loadConfig loads the config file, or ZENTYPES_* variables when the file
// does not exist. A snapshot path satisfies the registry requirement on its own.
func loadConfig(snapshot string) (*config.Config, error) {
	if snapshot != "" {
		os.Setenv("ZENTYPES_REGISTRY_SNAPSHOT", snapshot)
	}
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

// newApp loads configuration and wires the application.
func newApp(opts bootstrap.Options) (*bootstrap.App, error) {
	cfg, err := loadConfig(opts.Snapshot)
	if err != nil {
		return nil, err
	}
	opts.Version = version
	a, err := bootstrap.New(cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("error initializing: %w", err)
	}
	return a, nil
}

// watchConfig hot-reloads the config file into a. onApply runs after every
// successful reload. The returned stop function is nil when there is no
// config file to watch.
func watchConfig(a *bootstrap.App, onApply func()) (func(), error) {
	if _, err := os.Stat(cfgFile); err != nil {
		a.Logger.Warn().Str("path", cfgFile).Msg("no config file, hot reload disabled")
		return nil, nil
	}

	holder, err := config.NewHolder(cfgFile, a.Logger)
	if err != nil {
		return nil, err
	}
	holder.OnChange(func(cfg *config.Config) {
		err := a.ApplyConfig(cfg)
		if a.Metrics != nil {
			a.Metrics.RecordConfigReload(err, time.Now())
		}
		if err != nil {
			a.Logger.Error().Err(err).Msg("failed to apply reloaded config")
			return
		}
		if onApply != nil {
			onApply()
		}
	})
	if err := holder.WatchFile(); err != nil {
		holder.Stop()
		return nil, fmt.Errorf("watch config: %w", err)
	}
	holder.WatchSignals()

	a.Logger.Info().Str("path", holder.Path()).Msg("watching config for changes")
	return holder.Stop, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// writeOutput writes data to path, or stdout for "" and "-". Files are
// replaced atomically.
func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
