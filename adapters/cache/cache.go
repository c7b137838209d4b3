// Package cache provides a read-through, write-back symbol source backed by
// a ports.SymbolCache.
package cache

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/artpar/zentypes/domain/zen"
	"github.com/artpar/zentypes/ports"
)

// Lookup layers and results reported to a Recorder.
const (
	LayerNames  = "names"
	LayerSymbol = "symbol"

	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Recorder observes cache lookups. *metrics.Collector implements it.
type Recorder interface {
	RecordCacheLookup(layer, result string)
}

type batchPutter interface {
	PutBatch(ctx context.Context, defs map[string]*zen.Object) error
}

// Source serves symbols from a cache and falls back to the wrapped source,
// storing whatever it fetches. Cache write failures are logged, never returned.
type Source struct {
	inner    ports.SymbolSource
	cache    ports.SymbolCache
	logger   zerolog.Logger
	recorder Recorder
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

// WithRecorder reports cache lookups to r.
func WithRecorder(r Recorder) Option {
	return func(s *Source) { s.recorder = r }
}

// New wraps inner with cache.
func New(inner ports.SymbolSource, cache ports.SymbolCache, opts ...Option) *Source {
	s := &Source{inner: inner, cache: cache, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListSymbolNames returns the cached listing or fetches and stores it.
func (s *Source) ListSymbolNames(ctx context.Context) ([]string, error) {
	if names, ok := s.cachedNames(ctx); ok {
		return names, nil
	}

	names, err := s.inner.ListSymbolNames(ctx)
	if err != nil {
		return nil, err
	}
	s.storeNames(ctx, names)
	return names, nil
}

// ListSymbolDefinitions returns the listing plus every definition the cache
// or the wrapped source can provide in bulk. Names without a definition are
// fetched one by one later through GetSymbolDefinition.
func (s *Source) ListSymbolDefinitions(ctx context.Context) ([]string, map[string]*zen.Object, error) {
	if names, ok := s.cachedNames(ctx); ok {
		defs := make(map[string]*zen.Object, len(names))
		for _, n := range names {
			def, err := s.cache.Get(ctx, n)
			if err != nil {
				continue
			}
			defs[n] = def
		}
		return names, defs, nil
	}

	lister, ok := s.inner.(ports.DefinitionLister)
	if !ok {
		names, err := s.inner.ListSymbolNames(ctx)
		if err != nil {
			return nil, nil, err
		}
		s.storeNames(ctx, names)
		return names, map[string]*zen.Object{}, nil
	}

	names, defs, err := lister.ListSymbolDefinitions(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.storeDefinitions(ctx, defs)
	s.storeNames(ctx, names)
	return names, defs, nil
}

// GetSymbolDefinition returns a cached definition or fetches and stores it.
// Unknown symbols are not cached.
func (s *Source) GetSymbolDefinition(ctx context.Context, name string) (*zen.Object, error) {
	def, err := s.cache.Get(ctx, name)
	switch {
	case err == nil:
		s.record(LayerSymbol, ResultHit)
		return def, nil
	case errors.Is(err, ports.ErrCacheMiss):
		s.record(LayerSymbol, ResultMiss)
	default:
		s.record(LayerSymbol, ResultError)
		s.logger.Warn().Err(err).Str("symbol", name).Msg("cache read failed")
	}

	def, err = s.inner.GetSymbolDefinition(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, name, def); err != nil {
		s.logger.Warn().Err(err).Str("symbol", name).Msg("cache write failed")
	}
	return def, nil
}

// HealthCheck delegates to the wrapped source when it supports health checks.
func (s *Source) HealthCheck(ctx context.Context) error {
	if hc, ok := s.inner.(ports.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (s *Source) cachedNames(ctx context.Context) ([]string, bool) {
	names, err := s.cache.Names(ctx)
	switch {
	case err == nil:
		s.record(LayerNames, ResultHit)
		s.logger.Debug().Int("symbols", len(names)).Msg("using cached symbol listing")
		return names, true
	case errors.Is(err, ports.ErrCacheMiss):
		s.record(LayerNames, ResultMiss)
	default:
		s.record(LayerNames, ResultError)
		s.logger.Warn().Err(err).Msg("cache read failed")
	}
	return nil, false
}

func (s *Source) storeNames(ctx context.Context, names []string) {
	if err := s.cache.PutNames(ctx, names); err != nil {
		s.logger.Warn().Err(err).Msg("cache write failed")
	}
}

func (s *Source) storeDefinitions(ctx context.Context, defs map[string]*zen.Object) {
	if len(defs) == 0 {
		return
	}
	if bp, ok := s.cache.(batchPutter); ok {
		if err := bp.PutBatch(ctx, defs); err != nil {
			s.logger.Warn().Err(err).Msg("cache write failed")
		}
		return
	}
	for name, def := range defs {
		if err := s.cache.Put(ctx, name, def); err != nil {
			s.logger.Warn().Err(err).Str("symbol", name).Msg("cache write failed")
			return
		}
	}
}

func (s *Source) record(layer, result string) {
	if s.recorder != nil {
		s.recorder.RecordCacheLookup(layer, result)
	}
}

var (
	_ ports.SymbolSource     = (*Source)(nil)
	_ ports.DefinitionLister = (*Source)(nil)
	_ ports.HealthChecker    = (*Source)(nil)
)
