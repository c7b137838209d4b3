// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from config.Config; the CLI decides which parts run.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artpar/zentypes/adapters/cache"
	"github.com/artpar/zentypes/adapters/clock"
	"github.com/artpar/zentypes/adapters/hasher"
	apihttp "github.com/artpar/zentypes/adapters/http"
	"github.com/artpar/zentypes/adapters/idgen"
	"github.com/artpar/zentypes/adapters/memory"
	"github.com/artpar/zentypes/adapters/metrics"
	"github.com/artpar/zentypes/adapters/remote"
	"github.com/artpar/zentypes/adapters/sqlite"
	"github.com/artpar/zentypes/app"
	"github.com/artpar/zentypes/config"
	"github.com/artpar/zentypes/core/filter"
	"github.com/artpar/zentypes/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// MemoryCachePath selects the in-memory symbol cache.
const MemoryCachePath = ":memory:"

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB        // nil unless the sqlite cache is open
	Cache      ports.SymbolCache // nil when caching is off
	Registry   ports.HealthChecker
	Source     ports.SymbolSource // registry with metrics and cache applied
	Metrics    *metrics.Collector // nil when metrics are disabled
	Generator  *app.GenerateService
	HTTPServer *http.Server

	version string
}

// Options adjusts application initialization from command-line flags.
type Options struct {
	// Snapshot replaces the live registry with a JSON dump.
	Snapshot string
	// NoCache disables the raw-response cache regardless of config.
	NoCache bool
	// Format overrides output.format.
	Format string
	// Registerer receives metrics. Default: prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	// Version is reported by GET /version.
	Version string
	// Logger replaces the logger built from config.
	Logger *zerolog.Logger
}

// New creates and initializes the application.
func New(cfg *config.Config, opts Options) (*App, error) {
	logger := SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if opts.Format != "" {
		cfg.Output.Format = opts.Format
	}
	if opts.Snapshot != "" {
		cfg.Registry.Snapshot = opts.Snapshot
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	a := &App{
		Logger:  logger,
		Config:  cfg,
		version: opts.Version,
	}

	if cfg.Metrics.Enabled {
		if opts.Registerer != nil {
			a.Metrics = metrics.NewWithRegistry(opts.Registerer)
		} else {
			a.Metrics = metrics.New()
		}
		logger.Debug().Msg("prometheus metrics enabled")
	}

	if err := a.initSource(opts.NoCache); err != nil {
		a.Close()
		return nil, err
	}

	flt, err := NewFilter(cfg.Filter)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Generator = app.NewGenerateService(a.Source, flt, idgen.RunIDs{}, clock.System{}, logger, generateConfig(cfg))
	if a.Metrics != nil {
		a.Generator.SetRecorder(a.Metrics)
	}

	return a, nil
}

// initSource builds the symbol source chain: registry, metrics, cache.
func (a *App) initSource(noCache bool) error {
	cfg := a.Config

	var base ports.SymbolSource
	if cfg.Registry.Snapshot != "" {
		reg, err := memory.LoadSnapshotFile(cfg.Registry.Snapshot)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		a.Registry = reg
		base = reg
		a.Logger.Info().
			Str("snapshot", cfg.Registry.Snapshot).
			Int("symbols", reg.Len()).
			Msg("using registry snapshot")
	} else {
		reg := NewRegistry(cfg.Registry)
		a.Registry = reg
		base = reg
		a.Logger.Debug().Str("url", cfg.Registry.URL).Msg("using schema registry")
	}

	if a.Metrics != nil {
		base = metrics.InstrumentSource(base, a.Metrics)
	}
	a.Source = base

	// A snapshot is already local; caching it would only duplicate it.
	if noCache || !cfg.Cache.Enabled || cfg.Registry.Snapshot != "" {
		return nil
	}

	store, db, err := OpenCache(cfg.Cache, clock.System{})
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	a.DB = db
	a.Cache = store

	opts := []cache.Option{cache.WithLogger(a.Logger)}
	if a.Metrics != nil {
		opts = append(opts, cache.WithRecorder(a.Metrics))
	}
	a.Source = cache.New(base, store, opts...)
	a.Logger.Debug().Str("path", cfg.Cache.Path).Msg("raw-response cache enabled")
	return nil
}

// NewRegistry creates a remote registry client from configuration.
func NewRegistry(cfg config.RegistryConfig) *remote.Registry {
	client := remote.NewClient(remote.ClientConfig{
		BaseURL:  cfg.URL,
		Username: cfg.Client,
		Password: cfg.Secret,
		Timeout:  cfg.Timeout,
		Headers:  cfg.Headers,
	})
	return remote.NewRegistry(client, remote.RegistryConfig{
		ListMethod:   cfg.ListMethod,
		SymbolMethod: cfg.SymbolMethod,
		TaggedMethod: cfg.TaggedMethod,
		Tags:         cfg.Tags,
	})
}

// OpenCache opens the configured symbol cache. The returned DB is nil for
// the in-memory cache.
func OpenCache(cfg config.CacheConfig, clk ports.Clock) (ports.SymbolCache, *sqlite.DB, error) {
	if cfg.Path == MemoryCachePath {
		return memory.NewSymbolStore(clk), nil, nil
	}

	db, err := sqlite.Open(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return sqlite.NewSymbolStore(db, clk), db, nil
}

// NewFilter builds the symbol filter from configuration. An empty prefix
// list keeps the built-in excludes.
func NewFilter(cfg config.FilterConfig) (*filter.Filter, error) {
	prefixes := cfg.ExcludePrefixes
	if len(prefixes) == 0 {
		prefixes = filter.DefaultExcludePrefixes
	}
	flt, err := filter.New(prefixes, cfg.Expression)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return flt, nil
}

func generateConfig(cfg *config.Config) app.GenerateConfig {
	return app.GenerateConfig{
		Format:      cfg.Output.Format,
		Concurrency: cfg.Registry.Concurrency,
		Title:       cfg.Output.Title,
		Version:     cfg.Output.Version,
		Compact:     cfg.Output.Compact,
	}
}

// ApplyConfig applies the hot-reloadable parts of a new configuration.
// Registry, cache and server settings need a restart.
func (a *App) ApplyConfig(cfg *config.Config) error {
	flt, err := NewFilter(cfg.Filter)
	if err != nil {
		return err
	}

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	gc := generateConfig(cfg)
	gc.Concurrency = a.Generator.Config().Concurrency
	a.Generator.SetConfig(gc)
	a.Generator.SetFilter(flt)

	a.Config.Output = cfg.Output
	a.Config.Filter = cfg.Filter
	a.Config.Logging.Level = cfg.Logging.Level
	return nil
}

// InitHTTPServer builds the preview server.
func (a *App) InitHTTPServer() error {
	cfg := a.Config

	if cfg.Server.TokenHash == "" {
		a.Logger.Warn().Msg("server.token_hash not set, POST /generate is disabled")
	}

	handler := apihttp.NewHandler(a.Generator, hasher.NewBcrypt(bcrypt.DefaultCost), cfg.Server.TokenHash, a.Logger)
	health := apihttp.NewHealthHandler(a.Registry)

	routerCfg := apihttp.RouterConfig{
		Version:     a.version,
		MetricsPath: cfg.Metrics.Path,
	}
	if a.Metrics != nil {
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsHandler = promhttp.Handler()
	}

	router := apihttp.NewRouter(handler, health, a.Logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return nil
}

// Run serves HTTP until ctx is done or a shutdown signal arrives. An initial
// generation is started in the background so the output endpoints fill in.
func (a *App) Run(ctx context.Context) error {
	if a.HTTPServer == nil {
		if err := a.InitHTTPServer(); err != nil {
			return fmt.Errorf("init http server: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting preview server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		if _, err := a.Generator.Run(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("initial generation failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		a.Logger.Info().Msg("context canceled, shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	if a.HTTPServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.Close()
	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// Close releases the cache database.
func (a *App) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
		a.DB = nil
	}
}

// SetupLogger builds a logger writing to stderr and sets the global level.
// Unknown levels fall back to info; format "console" is human-readable,
// anything else is JSON.
func SetupLogger(level, format string) zerolog.Logger {
	return NewLogger(os.Stderr, level, format)
}

// NewLogger is SetupLogger with an explicit writer.
func NewLogger(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "console" {
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(w).With().Timestamp().Logger()
}
