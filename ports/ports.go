// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/zentypes/domain/zen"
)

// Sentinel errors shared by adapters.
var (
	// ErrSymbolNotFound is returned when the registry has no definition for a name.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrCacheMiss is returned by a SymbolCache that holds no entry.
	ErrCacheMiss = errors.New("cache miss")
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// TokenHasher hashes and verifies access tokens.
type TokenHasher interface {
	Hash(token string) (string, error)
	Compare(hash, token string) bool
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// Registry Ports
// -----------------------------------------------------------------------------

// SymbolSource is the schema registry as seen by the compiler.
type SymbolSource interface {
	// ListSymbolNames returns every symbol name the registry knows.
	ListSymbolNames(ctx context.Context) ([]string, error)

	// GetSymbolDefinition returns the raw definition of one symbol.
	// Returns ErrSymbolNotFound when the registry has no such symbol.
	GetSymbolDefinition(ctx context.Context, name string) (*zen.Object, error)
}

// DefinitionLister is implemented by sources that can return every
// definition in one call. Names are in registry order.
type DefinitionLister interface {
	ListSymbolDefinitions(ctx context.Context) ([]string, map[string]*zen.Object, error)
}

// -----------------------------------------------------------------------------
// Cache Ports
// -----------------------------------------------------------------------------

// CacheStats summarizes a SymbolCache.
type CacheStats struct {
	Symbols   int
	HasNames  bool      // a full name listing is stored
	UpdatedAt time.Time // zero when empty
}

// SymbolCache persists raw registry responses between runs.
type SymbolCache interface {
	// Get returns a cached definition, or ErrCacheMiss.
	Get(ctx context.Context, name string) (*zen.Object, error)

	// Put stores or replaces a definition.
	Put(ctx context.Context, name string, def *zen.Object) error

	// Names returns the cached name listing, or ErrCacheMiss.
	Names(ctx context.Context) ([]string, error)

	// PutNames stores the name listing.
	PutNames(ctx context.Context, names []string) error

	// Clear removes everything.
	Clear(ctx context.Context) error

	// Stats describes the cache contents.
	Stats(ctx context.Context) (CacheStats, error)
}
