// Package app provides application services that orchestrate domain logic.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/artpar/zentypes/core/compiler"
	"github.com/artpar/zentypes/core/diagnostic"
	"github.com/artpar/zentypes/core/filter"
	"github.com/artpar/zentypes/core/formatter"
	"github.com/artpar/zentypes/core/merge"
	"github.com/artpar/zentypes/core/resolver"
	"github.com/artpar/zentypes/domain/decl"
	"github.com/artpar/zentypes/domain/zen"
	"github.com/artpar/zentypes/ports"
	"github.com/rs/zerolog"
)

// ErrCompilationHalted is returned when a run found unrecognized node shapes.
// No output is produced; the diagnostics list every offending node.
var ErrCompilationHalted = errors.New("compilation halted")

// Run statuses reported to the RunRecorder.
const (
	StatusOK     = "ok"
	StatusHalted = "halted"
	StatusError  = "error"
)

// RunRecorder receives run outcomes (implemented by adapters/metrics).
type RunRecorder interface {
	RecordRun(status string, d time.Duration, declarations int)
	RecordDiagnostics(diags *diagnostic.Diagnostics)
}

// Result is the outcome of one generation run.
type Result struct {
	RunID        string
	StartedAt    time.Time
	Duration     time.Duration
	Symbols      int // symbols compiled after filtering
	Fetches      int64
	Declarations []decl.Declaration
	Diagnostics  *diagnostic.Diagnostics

	// Output in the configured format. Empty when the run halted.
	Format      string
	ContentType string
	Output      []byte
}

// GenerateConfig contains configuration for GenerateService.
type GenerateConfig struct {
	Format      string // formatter name, "" for the default
	Concurrency int    // parallel registry fetches
	Title       string
	Version     string
	Compact     bool
}

// GenerateService compiles the registry into declarations.
// Every Run builds its own resolver, diagnostics and accumulator.
type GenerateService struct {
	source   ports.SymbolSource
	formats  *formatter.Registry
	ids      ports.IDGenerator
	clock    ports.Clock
	recorder RunRecorder
	logger   zerolog.Logger

	cfg    atomic.Pointer[GenerateConfig]
	filter atomic.Pointer[filter.Filter]
	last   atomic.Pointer[Result] // last successful run
	latest atomic.Pointer[Result] // last run that reached compilation, halted or not
}

// NewGenerateService creates a new generation service.
func NewGenerateService(
	source ports.SymbolSource,
	flt *filter.Filter,
	ids ports.IDGenerator,
	clock ports.Clock,
	logger zerolog.Logger,
	cfg GenerateConfig,
) *GenerateService {
	s := &GenerateService{
		source:  source,
		formats: formatter.DefaultRegistry,
		ids:     ids,
		clock:   clock,
		logger:  logger.With().Str("service", "generate").Logger(),
	}
	s.SetConfig(cfg)
	s.SetFilter(flt)
	return s
}

// SetConfig replaces the generation settings used by subsequent runs.
func (s *GenerateService) SetConfig(cfg GenerateConfig) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = resolver.DefaultConcurrency
	}
	s.cfg.Store(&cfg)
}

// Config returns the active generation settings.
func (s *GenerateService) Config() GenerateConfig {
	return *s.cfg.Load()
}

// SetRecorder sets the run recorder.
func (s *GenerateService) SetRecorder(r RunRecorder) {
	s.recorder = r
}

// SetFormatters replaces the formatter registry.
func (s *GenerateService) SetFormatters(r *formatter.Registry) {
	s.formats = r
}

// SetFilter swaps the symbol filter used by subsequent runs.
func (s *GenerateService) SetFilter(f *filter.Filter) {
	if f == nil {
		f, _ = filter.New(filter.DefaultExcludePrefixes, "")
	}
	s.filter.Store(f)
}

// Filter returns the active symbol filter.
func (s *GenerateService) Filter() *filter.Filter {
	return s.filter.Load()
}

// Last returns the most recent successful result, or nil.
func (s *GenerateService) Last() *Result {
	return s.last.Load()
}

// Latest returns the most recent result including halted runs, or nil.
func (s *GenerateService) Latest() *Result {
	return s.latest.Load()
}

// Run performs one generation: list, filter, prefetch, compile, merge, format.
func (s *GenerateService) Run(ctx context.Context) (*Result, error) {
	cfg := s.Config()
	start := s.clock.Now()
	runID := s.ids.New()
	log := s.logger.With().Str("run_id", runID).Logger()

	diags := &diagnostic.Diagnostics{}
	result := &Result{RunID: runID, StartedAt: start, Diagnostics: diags}
	finish := func(status string) {
		result.Duration = s.clock.Now().Sub(start)
		if s.recorder != nil {
			s.recorder.RecordRun(status, result.Duration, len(result.Declarations))
			s.recorder.RecordDiagnostics(diags)
		}
	}

	res := resolver.New(s.source, resolver.WithLogger(log), resolver.WithConcurrency(cfg.Concurrency))
	decls, selected, err := s.compile(ctx, log, res, diags)
	result.Symbols = selected
	result.Fetches = res.Fetches()
	if err != nil {
		finish(StatusError)
		return nil, err
	}

	diags.Log(log)
	if diags.HasErrors() {
		finish(StatusHalted)
		s.latest.Store(result)
		log.Error().
			Int("errors", len(diags.Errors)).
			Msg("generation halted on unrecognized schema shapes")
		return result, fmt.Errorf("%w: %w", ErrCompilationHalted, diags.Error())
	}
	result.Declarations = decls

	f, err := s.formats.Lookup(cfg.Format)
	if err != nil {
		finish(StatusError)
		return nil, err
	}
	out, err := s.render(f, decls, cfg)
	if err != nil {
		finish(StatusError)
		return nil, fmt.Errorf("format %s: %w", f.Name(), err)
	}
	result.Format = f.Name()
	result.ContentType = f.ContentType()
	result.Output = out

	finish(StatusOK)
	s.last.Store(result)
	s.latest.Store(result)

	log.Info().
		Int("symbols", result.Symbols).
		Int("declarations", len(decls)).
		Int64("fetches", result.Fetches).
		Int("warnings", len(diags.Warnings)).
		Dur("duration", result.Duration).
		Msg("generation complete")

	return result, nil
}

// Render formats declarations with the named formatter.
func (s *GenerateService) Render(decls []decl.Declaration, format string) ([]byte, formatter.Formatter, error) {
	f, err := s.formats.Lookup(format)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.render(f, decls, s.Config())
	if err != nil {
		return nil, nil, fmt.Errorf("format %s: %w", f.Name(), err)
	}
	return out, f, nil
}

func (s *GenerateService) render(f formatter.Formatter, decls []decl.Declaration, cfg GenerateConfig) ([]byte, error) {
	var buf bytes.Buffer
	err := f.Format(&buf, decls, formatter.FormatOptions{
		Compact: cfg.Compact,
		Title:   cfg.Title,
		Version: cfg.Version,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// compile runs the pipeline up to the merged declaration list.
// It returns the number of symbols that passed the filter.
func (s *GenerateService) compile(ctx context.Context, log zerolog.Logger, res *resolver.Resolver, diags *diagnostic.Diagnostics) ([]decl.Declaration, int, error) {
	flt := s.filter.Load()

	names, defs, err := s.list(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list symbols: %w", err)
	}
	for name, def := range defs {
		res.Prime(name, def)
	}

	selected := flt.Names(names)
	log.Debug().
		Int("listed", len(names)).
		Int("selected", len(selected)).
		Msg("symbols listed")

	reached, err := res.Closure(ctx, selected)
	if err != nil {
		return nil, 0, fmt.Errorf("prefetch dependencies: %w", err)
	}
	log.Debug().Int("dependencies", len(reached)).Msg("dependency closure loaded")

	comp := compiler.New(res, diags)
	acc := merge.NewAccumulator()
	compiled := 0

	for _, name := range selected {
		if err := ctx.Err(); err != nil {
			return nil, compiled, err
		}

		def, err := res.Definition(ctx, name)
		if errors.Is(err, ports.ErrSymbolNotFound) {
			diags.AddInfo(diagnostic.CodeResolutionMiss, "listed symbol has no definition", name, "")
			continue
		}
		if err != nil {
			return nil, compiled, fmt.Errorf("get %s: %w", name, err)
		}

		sym, err := zen.NewSymbol(name, def)
		if err != nil {
			diags.AddError(diagnostic.CodeDecode, err.Error(), name, "")
			continue
		}
		ok, err := flt.Allow(sym)
		if err != nil {
			return nil, compiled, err
		}
		if !ok {
			continue
		}
		compiled++

		d, err := comp.CompileSymbol(ctx, sym)
		if err != nil {
			// Shape errors are already diagnostics; keep going so every
			// gap is reported in one run.
			if compiler.IsShapeError(err) {
				continue
			}
			return nil, compiled, fmt.Errorf("compile %s: %w", name, err)
		}
		if d != nil {
			acc.Add(*d)
		}
	}

	for _, name := range res.Missing() {
		diags.AddInfo(diagnostic.CodeResolutionMiss, "referenced symbol is not in the registry", name, "")
	}

	merged := acc.Merged()
	collided := make([]string, 0, len(merged))
	for name := range merged {
		collided = append(collided, name)
	}
	sort.Strings(collided)
	for _, name := range collided {
		d, _ := acc.Get(name)
		diags.AddInfo(diagnostic.CodeNameCollision,
			fmt.Sprintf("%d declarations merged from %v", merged[name]+1, d.Sources), name, "")
	}

	return acc.All(), compiled, nil
}

// list returns the registry listing, with definitions when the source can
// provide them in one call.
func (s *GenerateService) list(ctx context.Context) ([]string, map[string]*zen.Object, error) {
	if lister, ok := s.source.(ports.DefinitionLister); ok {
		return lister.ListSymbolDefinitions(ctx)
	}
	names, err := s.source.ListSymbolNames(ctx)
	return names, nil, err
}

// Inspection is the compiled form of a single symbol.
type Inspection struct {
	Symbol      *zen.Symbol
	Declaration *decl.Declaration // nil when the symbol produces no declaration
	Diagnostics *diagnostic.Diagnostics
}

// Inspect compiles one symbol in isolation. Filters are not applied.
func (s *GenerateService) Inspect(ctx context.Context, name string) (*Inspection, error) {
	log := s.logger.With().Str("run_id", s.ids.New()).Str("symbol", name).Logger()
	res := resolver.New(s.source, resolver.WithLogger(log), resolver.WithConcurrency(s.Config().Concurrency))

	def, err := res.Definition(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	if _, err := res.Closure(ctx, []string{name}); err != nil {
		return nil, fmt.Errorf("prefetch dependencies: %w", err)
	}
	sym, err := zen.NewSymbol(name, def)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	diags := &diagnostic.Diagnostics{}
	d, err := compiler.New(res, diags).CompileSymbol(ctx, sym)
	if err != nil && !compiler.IsShapeError(err) {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	for _, m := range res.Missing() {
		diags.AddInfo(diagnostic.CodeResolutionMiss, "referenced symbol is not in the registry", m, "")
	}
	return &Inspection{Symbol: sym, Declaration: d, Diagnostics: diags}, nil
}

// Symbols returns the names that pass the prefix filter, in registry order,
// with their definitions. Names the registry cannot resolve are left out of
// defs.
func (s *GenerateService) Symbols(ctx context.Context) ([]string, map[string]*zen.Object, error) {
	names, listed, err := s.list(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list symbols: %w", err)
	}
	selected := s.filter.Load().Names(names)

	res := resolver.New(s.source, resolver.WithLogger(s.logger), resolver.WithConcurrency(s.Config().Concurrency))
	for name, def := range listed {
		res.Prime(name, def)
	}
	if err := res.Prefetch(ctx, selected); err != nil {
		return nil, nil, fmt.Errorf("fetch definitions: %w", err)
	}

	defs := make(map[string]*zen.Object, len(selected))
	for _, name := range selected {
		def, err := res.Definition(ctx, name)
		if errors.Is(err, ports.ErrSymbolNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("get %s: %w", name, err)
		}
		defs[name] = def
	}
	return selected, defs, nil
}
