package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/zentypes/domain/zen"
	"github.com/artpar/zentypes/ports"
)

// timeFormat is fixed width so that MAX(updated_at) orders correctly.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// SymbolStore implements ports.SymbolCache using SQLite.
// Definitions are stored as JSON text in their original key order.
type SymbolStore struct {
	db    *DB
	clock ports.Clock
}

// NewSymbolStore creates a new symbol store.
func NewSymbolStore(db *DB, clock ports.Clock) *SymbolStore {
	return &SymbolStore{db: db, clock: clock}
}

// Get retrieves a cached definition.
func (s *SymbolStore) Get(ctx context.Context, name string) (*zen.Object, error) {
	var definition string
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT definition FROM symbols WHERE name = ?`,
		name,
	).Scan(&definition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrCacheMiss
		}
		return nil, err
	}

	def, err := zen.ParseObject([]byte(definition))
	if err != nil {
		return nil, fmt.Errorf("decode cached %s: %w", name, err)
	}
	return def, nil
}

// Put stores or replaces a definition.
func (s *SymbolStore) Put(ctx context.Context, name string, def *zen.Object) error {
	data, err := def.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO symbols (name, definition, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			definition = excluded.definition,
			updated_at = excluded.updated_at`,
		name, string(data), s.now(),
	)
	return err
}

// PutBatch stores many definitions in one transaction.
func (s *SymbolStore) PutBatch(ctx context.Context, defs map[string]*zen.Object) error {
	tx, err := s.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO symbols (name, definition, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			definition = excluded.definition,
			updated_at = excluded.updated_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := s.now()
	for name, def := range defs {
		data, err := def.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if _, err := stmt.ExecContext(ctx, name, string(data), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Names returns the cached name listing.
func (s *SymbolStore) Names(ctx context.Context) ([]string, error) {
	var raw string
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT names FROM symbol_lists WHERE id = 1`,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrCacheMiss
		}
		return nil, err
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("decode cached names: %w", err)
	}
	return names, nil
}

// PutNames stores the name listing.
func (s *SymbolStore) PutNames(ctx context.Context, names []string) error {
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}

	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO symbol_lists (id, names, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			names = excluded.names,
			updated_at = excluded.updated_at`,
		string(data), s.now(),
	)
	return err
}

// Clear removes every cached definition and listing.
func (s *SymbolStore) Clear(ctx context.Context) error {
	tx, err := s.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_lists`); err != nil {
		return err
	}
	return tx.Commit()
}

// Stats describes the cache contents.
func (s *SymbolStore) Stats(ctx context.Context) (ports.CacheStats, error) {
	var stats ports.CacheStats
	var symbolsUpdated, listUpdated sql.NullString

	err := s.db.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(updated_at) FROM symbols`,
	).Scan(&stats.Symbols, &symbolsUpdated)
	if err != nil {
		return stats, err
	}

	err = s.db.DB.QueryRowContext(ctx,
		`SELECT updated_at FROM symbol_lists WHERE id = 1`,
	).Scan(&listUpdated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return stats, err
	default:
		stats.HasNames = true
	}

	for _, ts := range []sql.NullString{symbolsUpdated, listUpdated} {
		if !ts.Valid {
			continue
		}
		if t, err := time.Parse(timeFormat, ts.String); err == nil && t.After(stats.UpdatedAt) {
			stats.UpdatedAt = t
		}
	}
	return stats, nil
}

func (s *SymbolStore) now() string {
	return s.clock.Now().UTC().Format(timeFormat)
}
