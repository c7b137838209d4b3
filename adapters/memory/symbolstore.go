package memory

import (
	"context"
	"sync"
	"time"

	"github.com/artpar/zentypes/domain/zen"
	"github.com/artpar/zentypes/ports"
)

// SymbolStore is an in-memory implementation of ports.SymbolCache.
type SymbolStore struct {
	mu        sync.RWMutex
	clock     ports.Clock
	defs      map[string]*zen.Object
	names     []string
	hasNames  bool
	updatedAt time.Time
}

// NewSymbolStore creates a new in-memory symbol store.
func NewSymbolStore(clock ports.Clock) *SymbolStore {
	return &SymbolStore{
		clock: clock,
		defs:  make(map[string]*zen.Object),
	}
}

// Get retrieves a cached definition.
func (s *SymbolStore) Get(ctx context.Context, name string) (*zen.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.defs[name]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return def.Clone(), nil
}

// Put stores or replaces a definition.
func (s *SymbolStore) Put(ctx context.Context, name string, def *zen.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.defs[name] = def.Clone()
	s.updatedAt = s.clock.Now()
	return nil
}

// Names returns the cached name listing.
func (s *SymbolStore) Names(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasNames {
		return nil, ports.ErrCacheMiss
	}
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names, nil
}

// PutNames stores the name listing.
func (s *SymbolStore) PutNames(ctx context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.names = make([]string, len(names))
	copy(s.names, names)
	s.hasNames = true
	s.updatedAt = s.clock.Now()
	return nil
}

// Clear removes everything.
func (s *SymbolStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.defs = make(map[string]*zen.Object)
	s.names = nil
	s.hasNames = false
	s.updatedAt = time.Time{}
	return nil
}

// Stats describes the cache contents.
func (s *SymbolStore) Stats(ctx context.Context) (ports.CacheStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ports.CacheStats{
		Symbols:   len(s.defs),
		HasNames:  s.hasNames,
		UpdatedAt: s.updatedAt,
	}, nil
}

var _ ports.SymbolCache = (*SymbolStore)(nil)
