package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/artpar/zentypes/app"
	"github.com/artpar/zentypes/bootstrap"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Compile the registry into TypeScript declarations",
	Long: `Fetch every symbol from the schema registry, compile it and write the
declarations.

Diagnostics are logged to stderr. The command fails when any schema node
has an unrecognized shape; no output is written in that case.

Examples:
  zentypes generate
  zentypes generate --out src/types/aidbox.ts
  zentypes generate --format json --out declarations.json
  zentypes generate --snapshot registry.json --no-cache
  zentypes generate --watch     # regenerate when the config changes`,
	RunE: runGenerate,
}

var (
	generateOut      string
	generateFormat   string
	generateSnapshot string
	generateNoCache  bool
	generateWatch    bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "output file, - for stdout (default: output.path)")
	generateCmd.Flags().StringVarP(&generateFormat, "format", "f", "", "output format: ts, json, yaml, openapi (default: output.format)")
	generateCmd.Flags().StringVar(&generateSnapshot, "snapshot", "", "read symbols from a JSON snapshot instead of the registry")
	generateCmd.Flags().BoolVar(&generateNoCache, "no-cache", false, "bypass the raw-response cache")
	generateCmd.Flags().BoolVarP(&generateWatch, "watch", "w", false, "keep running and regenerate on config changes")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a, err := newApp(bootstrap.Options{
		Snapshot: generateSnapshot,
		NoCache:  generateNoCache,
		Format:   generateFormat,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	if !generateWatch {
		return generateOnce(ctx, a)
	}

	trigger := make(chan struct{}, 1)
	stopWatch, err := watchConfig(a, func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	if stopWatch != nil {
		defer stopWatch()
	}

	for {
		if err := generateOnce(ctx, a); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.Logger.Error().Err(err).Msg("generation failed, waiting for config change")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
		}
	}
}

func generateOnce(ctx context.Context, a *bootstrap.App) error {
	result, err := a.Generator.Run(ctx)
	if result != nil {
		printSummary(result)
	}
	if errors.Is(err, app.ErrCompilationHalted) {
		return fmt.Errorf("%d unrecognized schema shapes, no output written", len(result.Diagnostics.Errors))
	}
	if err != nil {
		return err
	}

	path := a.Config.Output.Path
	if generateOut != "" {
		path = generateOut
	}
	if err := writeOutput(path, result.Output); err != nil {
		return err
	}
	if path != "" && path != "-" {
		a.Logger.Info().
			Str("path", path).
			Str("format", result.Format).
			Int("bytes", len(result.Output)).
			Msg("output written")
	}
	return nil
}

func printSummary(result *app.Result) {
	d := result.Diagnostics
	fmt.Fprintf(os.Stderr, "%d symbols, %d declarations, %d errors, %d warnings, %d notes (%s)\n",
		result.Symbols, len(result.Declarations), len(d.Errors), len(d.Warnings), len(d.Infos), result.Duration.Round(1e6))
}
