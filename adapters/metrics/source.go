package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/zentypes/domain/zen"
	"github.com/artpar/zentypes/ports"
)

// Source wraps a ports.SymbolSource and records every call.
type Source struct {
	inner     ports.SymbolSource
	collector *Collector
}

// InstrumentSource wraps inner with fetch metrics.
func InstrumentSource(inner ports.SymbolSource, c *Collector) *Source {
	return &Source{inner: inner, collector: c}
}

// ListSymbolNames records a "list" call.
func (s *Source) ListSymbolNames(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := s.inner.ListSymbolNames(ctx)
	s.collector.RecordFetch("list", outcome(err), time.Since(start))
	return names, err
}

// ListSymbolDefinitions records a "list" call. It falls back to
// ListSymbolNames when the wrapped source cannot list definitions.
func (s *Source) ListSymbolDefinitions(ctx context.Context) ([]string, map[string]*zen.Object, error) {
	lister, ok := s.inner.(ports.DefinitionLister)
	if !ok {
		names, err := s.ListSymbolNames(ctx)
		return names, map[string]*zen.Object{}, err
	}
	start := time.Now()
	names, defs, err := lister.ListSymbolDefinitions(ctx)
	s.collector.RecordFetch("list", outcome(err), time.Since(start))
	return names, defs, err
}

// GetSymbolDefinition records a "get" call.
func (s *Source) GetSymbolDefinition(ctx context.Context, name string) (*zen.Object, error) {
	start := time.Now()
	def, err := s.inner.GetSymbolDefinition(ctx, name)
	s.collector.RecordFetch("get", outcome(err), time.Since(start))
	return def, err
}

// HealthCheck delegates to the wrapped source when it supports health checks.
func (s *Source) HealthCheck(ctx context.Context) error {
	if hc, ok := s.inner.(ports.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ports.ErrSymbolNotFound):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}

var (
	_ ports.SymbolSource     = (*Source)(nil)
	_ ports.DefinitionLister = (*Source)(nil)
	_ ports.HealthChecker    = (*Source)(nil)
)
