package main

import (
	"fmt"
	"os"

	"github.com/artpar/zentypes/adapters/memory"
	"github.com/artpar/zentypes/bootstrap"
	"github.com/spf13/cobra"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List the symbols that pass the prefix filter",
	Long: `List registry symbols after the exclude prefixes are applied.

With --dump, the definitions are written as a JSON snapshot that
"generate --snapshot" can read later without a registry.

Examples:
  zentypes symbols
  zentypes symbols --dump registry.json`,
	RunE: runSymbols,
}

var (
	symbolsDump     string
	symbolsSnapshot string
	symbolsNoCache  bool
)

func init() {
	rootCmd.AddCommand(symbolsCmd)

	symbolsCmd.Flags().StringVar(&symbolsDump, "dump", "", "write definitions as a JSON snapshot to this file (- for stdout)")
	symbolsCmd.Flags().StringVar(&symbolsSnapshot, "snapshot", "", "read symbols from a JSON snapshot instead of the registry")
	symbolsCmd.Flags().BoolVar(&symbolsNoCache, "no-cache", false, "bypass the raw-response cache")
}

func runSymbols(cmd *cobra.Command, args []string) error {
	a, err := newApp(bootstrap.Options{Snapshot: symbolsSnapshot, NoCache: symbolsNoCache})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	names, defs, err := a.Generator.Symbols(ctx)
	if err != nil {
		return err
	}

	if symbolsDump == "" {
		out := cmd.OutOrStdout()
		for _, n := range names {
			fmt.Fprintln(out, n)
		}
		return nil
	}

	if symbolsDump == "-" {
		return memory.WriteSnapshot(os.Stdout, names, defs)
	}
	f, err := os.Create(symbolsDump)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := memory.WriteSnapshot(f, names, defs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	fmt.Fprintf(os.Stderr, "%s Wrote %d symbols to %s\n", checkMark, len(defs), symbolsDump)
	return nil
}
