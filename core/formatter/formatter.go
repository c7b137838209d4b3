// Package formatter provides a pluggable output formatting system.
// Formatters serialize compiled declarations (TypeScript, json, yaml, openapi).
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/artpar/zentypes/domain/decl"
)

// Formatter converts declarations to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "ts", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Extension returns the conventional file extension, without the dot.
	Extension() string

	// ContentType returns the MIME type served for this format.
	ContentType() string

	// Format writes the declarations.
	Format(w io.Writer, decls []decl.Declaration, opts FormatOptions) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Compact minimizes whitespace (for json).
	Compact bool

	// Title and Version label documents that carry them (openapi).
	Title   string
	Version string
}

// DefaultFormat is the format used when none is configured.
const DefaultFormat = "ts"

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: DefaultFormat,
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Lookup returns the named formatter, or the default one for an empty name.
func (r *Registry) Lookup(name string) (Formatter, error) {
	if name == "" {
		if f := r.Default(); f != nil {
			return f, nil
		}
		return nil, fmt.Errorf("no formatters registered")
	}
	f, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown format %q (available: %v)", name, r.List())
	}
	return f, nil
}

// Default returns the default formatter.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[r.defaultFmt]
	if !ok {
		// Fallback to the first name in order
		names := r.sortedLocked()
		if len(names) == 0 {
			return nil
		}
		return r.formatters[names[0]]
	}
	return f
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}

	r.defaultFmt = name
	return nil
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked()
}

func (r *Registry) sortedLocked() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Lookup resolves a format name against the default registry.
func Lookup(name string) (Formatter, error) {
	return DefaultRegistry.Lookup(name)
}

// Default returns the default formatter from the default registry.
func Default() Formatter {
	return DefaultRegistry.Default()
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}
