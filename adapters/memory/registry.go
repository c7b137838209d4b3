// Package memory provides in-memory implementations of the registry and cache ports.
package memory

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/artpar/zentypes/domain/zen"
	"github.com/artpar/zentypes/ports"
)

// Registry is an in-memory ports.SymbolSource, typically loaded from a
// snapshot written by "zentypes symbols --dump".
type Registry struct {
	mu    sync.RWMutex
	names []string
	defs  map[string]*zen.Object
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*zen.Object)}
}

// LoadSnapshot reads a JSON object of symbol name to definition.
func LoadSnapshot(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	obj, err := zen.ParseObject(data)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	reg := NewRegistry()
	for _, name := range obj.Keys() {
		def := obj.Object(name)
		if def == nil {
			return nil, fmt.Errorf("parse snapshot: %s is not an object", name)
		}
		reg.Add(name, def)
	}
	return reg, nil
}

// LoadSnapshotFile reads a snapshot from path.
func LoadSnapshotFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return LoadSnapshot(f)
}

// WriteSnapshot writes names and their definitions as one JSON object, in
// the order of names. Names without a definition are skipped.
func WriteSnapshot(w io.Writer, names []string, defs map[string]*zen.Object) error {
	out := zen.NewObject()
	for _, n := range names {
		if def, ok := defs[n]; ok && def != nil {
			out.Set(n, def)
		}
	}
	data, err := out.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Add stores a definition, keeping first-insertion order of names.
func (r *Registry) Add(name string, def *zen.Object) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[name]; !exists {
		r.names = append(r.names, name)
	}
	r.defs[name] = def
}

// Len returns the number of symbols.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// ListSymbolNames returns every name in insertion order.
func (r *Registry) ListSymbolNames(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.names))
	copy(names, r.names)
	return names, nil
}

// ListSymbolDefinitions returns every name and a copy of every definition.
func (r *Registry) ListSymbolDefinitions(ctx context.Context) ([]string, map[string]*zen.Object, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.names))
	copy(names, r.names)
	defs := make(map[string]*zen.Object, len(r.defs))
	for n, def := range r.defs {
		defs[n] = def.Clone()
	}
	return names, defs, nil
}

// GetSymbolDefinition returns a copy of one definition.
func (r *Registry) GetSymbolDefinition(ctx context.Context, name string) (*zen.Object, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	if !ok {
		return nil, ports.ErrSymbolNotFound
	}
	return def.Clone(), nil
}

// HealthCheck always succeeds.
func (r *Registry) HealthCheck(ctx context.Context) error {
	return nil
}

var (
	_ ports.SymbolSource     = (*Registry)(nil)
	_ ports.DefinitionLister = (*Registry)(nil)
	_ ports.HealthChecker    = (*Registry)(nil)
)
