package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/zentypes/adapters/cache"
	"github.com/artpar/zentypes/adapters/clock"
	"github.com/artpar/zentypes/adapters/memory"
	"github.com/artpar/zentypes/domain/zen"
	"github.com/artpar/zentypes/ports"
)

// countingSource counts calls to the wrapped registry.
type countingSource struct {
	inner *memory.Registry
	lists int
	gets  int
}

func (c *countingSource) ListSymbolNames(ctx context.Context) ([]string, error) {
	c.lists++
	return c.inner.ListSymbolNames(ctx)
}

func (c *countingSource) GetSymbolDefinition(ctx context.Context, name string) (*zen.Object, error) {
	c.gets++
	return c.inner.GetSymbolDefinition(ctx, name)
}

// listingSource also lists definitions in bulk.
type listingSource struct {
	countingSource
}

func (l *listingSource) ListSymbolDefinitions(ctx context.Context) ([]string, map[string]*zen.Object, error) {
	l.lists++
	return l.inner.ListSymbolDefinitions(ctx)
}

type recorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *recorder) RecordCacheLookup(layer, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[layer+"/"+result]++
}

func registry(t *testing.T) *memory.Registry {
	t.Helper()
	reg := memory.NewRegistry()
	for _, src := range []struct{ name, def string }{
		{"a/A", `{"type":"zen/map"}`},
		{"b/B", `{"type":"zen/string"}`},
	} {
		def, err := zen.ParseObject([]byte(src.def))
		require.NoError(t, err)
		reg.Add(src.name, def)
	}
	return reg
}

func TestSource_ReadThrough(t *testing.T) {
	inner := &countingSource{inner: registry(t)}
	store := memory.NewSymbolStore(clock.System{})
	rec := &recorder{}
	src := cache.New(inner, store, cache.WithRecorder(rec))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		def, err := src.GetSymbolDefinition(ctx, "a/A")
		require.NoError(t, err)
		assert.Equal(t, "zen/map", def.String("type"))
	}
	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, 2, rec.counts["symbol/hit"])
	assert.Equal(t, 1, rec.counts["symbol/miss"])

	for i := 0; i < 2; i++ {
		names, err := src.ListSymbolNames(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a/A", "b/B"}, names)
	}
	assert.Equal(t, 1, inner.lists)
}

func TestSource_NotFoundIsNotCached(t *testing.T) {
	inner := &countingSource{inner: registry(t)}
	src := cache.New(inner, memory.NewSymbolStore(clock.System{}))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := src.GetSymbolDefinition(ctx, "x/Missing")
		assert.True(t, errors.Is(err, ports.ErrSymbolNotFound))
	}
	assert.Equal(t, 2, inner.gets)
}

func TestSource_ListSymbolDefinitions(t *testing.T) {
	inner := &listingSource{countingSource{inner: registry(t)}}
	store := memory.NewSymbolStore(clock.System{})
	src := cache.New(inner, store)
	ctx := context.Background()

	names, defs, err := src.ListSymbolDefinitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/A", "b/B"}, names)
	assert.Len(t, defs, 2)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Symbols)
	assert.True(t, stats.HasNames)

	// Served from cache the second time, including definitions
	names, defs, err = src.ListSymbolDefinitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/A", "b/B"}, names)
	assert.Len(t, defs, 2)
	assert.Equal(t, 1, inner.lists)

	_, err = src.GetSymbolDefinition(ctx, "b/B")
	require.NoError(t, err)
	assert.Equal(t, 0, inner.gets)
}

func TestSource_NamesOnlyInner(t *testing.T) {
	inner := &countingSource{inner: registry(t)}
	src := cache.New(inner, memory.NewSymbolStore(clock.System{}))

	names, defs, err := src.ListSymbolDefinitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a/A", "b/B"}, names)
	assert.Empty(t, defs)
}

func TestSource_HealthCheck(t *testing.T) {
	src := cache.New(registry(t), memory.NewSymbolStore(clock.System{}))
	assert.NoError(t, src.HealthCheck(context.Background()))
}
