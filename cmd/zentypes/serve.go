package main

import (
	"github.com/artpar/zentypes/bootstrap"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve generated declarations over HTTP",
	Long: `Start the preview server.

The server compiles the registry once on startup and serves the last
successful result. A new generation runs on POST /generate (bearer token
checked against server.token_hash) or when the config file changes.

Endpoints:
  GET  /types.ts            TypeScript declarations
  GET  /declarations.json   Declarations as JSON
  GET  /output/{format}     Any registered output format
  GET  /diagnostics         Diagnostics of the latest run
  POST /generate            Run a new generation
  GET  /health, /health/ready, /version, /metrics

Examples:
  zentypes serve
  zentypes serve --config /etc/zentypes/zentypes.yaml
  zentypes serve --hot-reload=false`,
	RunE: runServe,
}

var (
	hotReload     bool
	serveSnapshot string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
	serveCmd.Flags().StringVar(&serveSnapshot, "snapshot", "", "read symbols from a JSON snapshot instead of the registry")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(bootstrap.Options{Snapshot: serveSnapshot})
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	if hotReload {
		stopWatch, err := watchConfig(a, func() {
			go func() {
				if _, err := a.Generator.Run(ctx); err != nil {
					a.Logger.Error().Err(err).Msg("generation after reload failed")
				}
			}()
		})
		if err != nil {
			a.Close()
			return err
		}
		if stopWatch != nil {
			defer stopWatch()
		}
	}

	// Run (blocks until shutdown)
	return a.Run(ctx)
}
