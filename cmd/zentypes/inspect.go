package main

import (
	"fmt"

	"github.com/artpar/zentypes/bootstrap"
	"github.com/artpar/zentypes/core/emitter"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <symbol>",
	Short: "Compile one symbol and dump the result",
	Long: `Compile a single symbol, ignoring the symbol filter, and print its raw
definition, the compiled declaration and any diagnostics.

Examples:
  zentypes inspect hl7-fhir-r4-core.Patient/schema
  zentypes inspect zenbox/rpc-example --snapshot registry.json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var (
	inspectSnapshot string
	inspectRaw      bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectSnapshot, "snapshot", "", "read symbols from a JSON snapshot instead of the registry")
	inspectCmd.Flags().BoolVar(&inspectRaw, "raw", false, "also dump the raw definition")
}

func runInspect(cmd *cobra.Command, args []string) error {
	a, err := newApp(bootstrap.Options{Snapshot: inspectSnapshot})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	ins, err := a.Generator.Inspect(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	dump := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}

	if inspectRaw {
		raw, _ := ins.Symbol.Raw.MarshalJSON()
		fmt.Fprintf(out, "# definition\n%s\n\n", raw)
	}

	if ins.Declaration == nil {
		fmt.Fprintln(out, "# no declaration")
	} else {
		fmt.Fprintln(out, "# declaration")
		dump.Fdump(out, *ins.Declaration)
		fmt.Fprintln(out)
		if ts := emitter.EmitDeclaration(*ins.Declaration); ts != "" {
			fmt.Fprintln(out, "# typescript")
			fmt.Fprint(out, ts)
		}
	}

	if ins.Diagnostics.Len() > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "# diagnostics")
		for _, d := range ins.Diagnostics.All() {
			fmt.Fprintln(out, d.String())
		}
	}
	return nil
}
