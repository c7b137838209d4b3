// Package resolver turns symbol names into the display names used in
// generated declarations.
//
// A Resolver owns two caches for the duration of one run: raw definitions
// fetched from the registry, and the write-once mapping from raw symbol name
// to display name. A new Resolver must be created for every run.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/artpar/zentypes/domain/zen"
	"github.com/artpar/zentypes/ports"
)

// DefaultConcurrency bounds parallel registry fetches.
const DefaultConcurrency = 8

type entry struct {
	def *zen.Object
	err error // nil or ports.ErrSymbolNotFound
}

// Resolver resolves confirms lists against a symbol source.
type Resolver struct {
	source      ports.SymbolSource
	logger      zerolog.Logger
	concurrency int

	group singleflight.Group

	mu      sync.RWMutex
	defs    map[string]entry
	names   map[string]string
	missing map[string]bool

	fetches atomic.Int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithConcurrency bounds parallel fetches during Prefetch.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// New creates a Resolver with empty caches.
func New(source ports.SymbolSource, opts ...Option) *Resolver {
	r := &Resolver{
		source:      source,
		logger:      zerolog.Nop(),
		concurrency: DefaultConcurrency,
		defs:        make(map[string]entry),
		names:       make(map[string]string),
		missing:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Definition returns the raw definition of name, fetching it on first use.
// Concurrent calls for the same uncached name share one fetch.
// Returns ports.ErrSymbolNotFound for names the registry does not know;
// that outcome is cached too.
func (r *Resolver) Definition(ctx context.Context, name string) (*zen.Object, error) {
	if e, ok := r.cached(name); ok {
		return e.def, e.err
	}

	v, err, _ := r.group.Do(name, func() (interface{}, error) {
		if e, ok := r.cached(name); ok {
			return e, nil
		}
		r.fetches.Add(1)
		def, err := r.source.GetSymbolDefinition(ctx, name)
		if err == nil && def == nil {
			err = ports.ErrSymbolNotFound
		}
		if err != nil && !errors.Is(err, ports.ErrSymbolNotFound) {
			return nil, fmt.Errorf("fetch %s: %w", name, err)
		}
		if err != nil {
			err = ports.ErrSymbolNotFound
		}
		r.logger.Debug().Str("symbol", name).Bool("found", err == nil).Msg("fetched definition")
		return r.store(name, entry{def: def, err: err}), nil
	})
	if err != nil {
		return nil, err
	}
	e := v.(entry)
	return e.def, e.err
}

// Prime seeds the definition cache. Existing entries are kept.
func (r *Resolver) Prime(name string, def *zen.Object) {
	if def == nil {
		return
	}
	r.store(name, entry{def: def})
}

func (r *Resolver) cached(name string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.defs[name]
	return e, ok
}

// store records e unless an entry already exists and returns the stored entry.
func (r *Resolver) store(name string, e entry) entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.defs[name]; ok {
		return existing
	}
	r.defs[name] = e
	return e
}

// Prefetch loads every distinct uncached name in parallel.
// Names the registry does not know are not an error.
func (r *Resolver) Prefetch(ctx context.Context, names []string) error {
	seen := make(map[string]bool, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := r.cached(name); ok {
			continue
		}
		name := name
		g.Go(func() error {
			_, err := r.Definition(gctx, name)
			if errors.Is(err, ports.ErrSymbolNotFound) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// Closure prefetches roots and everything they reference, transitively.
// It returns every reachable name that is not a root, in discovery order.
func (r *Resolver) Closure(ctx context.Context, roots []string) ([]string, error) {
	visited := make(map[string]bool, len(roots))
	for _, n := range roots {
		visited[n] = true
	}

	var reached []string
	frontier := roots
	for len(frontier) > 0 {
		if err := r.Prefetch(ctx, frontier); err != nil {
			return nil, err
		}
		var next []string
		for _, name := range frontier {
			e, ok := r.cached(name)
			if !ok || e.def == nil {
				continue
			}
			for _, ref := range zen.References(e.def) {
				if visited[ref] {
					continue
				}
				visited[ref] = true
				next = append(next, ref)
				reached = append(reached, ref)
			}
		}
		frontier = next
	}
	return reached, nil
}

// DisplayName returns how name appears when referenced from another symbol.
// ok is false when the name is skipped: the generic resource sentinel, a
// symbol missing from the registry, or a polymorphic definition.
func (r *Resolver) DisplayName(ctx context.Context, name string) (string, bool, error) {
	if name == zen.GenericResource {
		return "", false, nil
	}

	r.mu.RLock()
	display, ok := r.names[name]
	r.mu.RUnlock()
	if ok {
		return display, true, nil
	}

	def, err := r.Definition(ctx, name)
	if errors.Is(err, ports.ErrSymbolNotFound) {
		r.mu.Lock()
		r.missing[name] = true
		r.mu.Unlock()
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if def.Truthy(zen.KeyPolymorphic) {
		return "", false, nil
	}

	display = DeriveName(def)
	if display == "" {
		display = zen.PascalCase("any-" + name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.names[name]; ok {
		return existing, true, nil
	}
	r.names[name] = display
	return display, true, nil
}

// Resolve maps a confirms list to unique display names in discovery order.
// Skipped entries are dropped. The result is never nil.
func (r *Resolver) Resolve(ctx context.Context, confirms []string) ([]string, error) {
	out := make([]string, 0, len(confirms))
	seen := make(map[string]bool, len(confirms))
	for _, c := range confirms {
		display, ok, err := r.DisplayName(ctx, c)
		if err != nil {
			return nil, err
		}
		if !ok || seen[display] {
			continue
		}
		seen[display] = true
		out = append(out, display)
	}
	return out, nil
}

// Missing returns referenced names the registry did not know, sorted.
func (r *Resolver) Missing() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.missing))
	for n := range r.missing {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Fetches returns how many registry calls this resolver made.
func (r *Resolver) Fetches() int64 {
	return r.fetches.Load()
}

// DeriveName computes a display name from a definition: the explicit target
// type, then the resource type, then the local part of zen/name. Hyphenated
// names are converted to PascalCase. Returns "" when nothing applies.
func DeriveName(def *zen.Object) string {
	name := def.String(zen.KeyFhirType)
	if name == "" {
		name = def.String(zen.KeyResourceType)
	}
	if name == "" {
		name = zen.LocalName(def.String(zen.KeyName))
	}
	return zen.PascalCase(name)
}
