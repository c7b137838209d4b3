package sqlite_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/zentypes/adapters/clock"
	"github.com/artpar/zentypes/adapters/sqlite"
	"github.com/artpar/zentypes/domain/zen"
	"github.com/artpar/zentypes/ports"
)

var start = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) (*sqlite.DB, func()) {
	t.Helper()

	// Create temp file for test database
	f, err := os.CreateTemp("", "zentypes-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	f.Close()

	db, err := sqlite.Open(path)
	if err != nil {
		os.Remove(path)
		t.Fatalf("open database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		os.Remove(path)
		t.Fatalf("migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(path)
	}

	return db, cleanup
}

func mustObject(t *testing.T, src string) *zen.Object {
	t.Helper()
	o, err := zen.ParseObject([]byte(src))
	if err != nil {
		t.Fatalf("parse %s: %v", src, err)
	}
	return o
}

// -----------------------------------------------------------------------------
// DB Tests
// -----------------------------------------------------------------------------

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Migrations are idempotent
	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path = %s, want %s", db.Path(), path)
	}
	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("health check: %v", err)
	}
}

// -----------------------------------------------------------------------------
// SymbolStore Tests
// -----------------------------------------------------------------------------

func TestSymbolStore_PutAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewSymbolStore(db, clock.NewStepping(start, time.Second))
	ctx := context.Background()

	def := mustObject(t, `{"zen/name":"fhir/Patient","type":"zen/map","keys":{"b":{},"a":{}}}`)
	if err := store.Put(ctx, "fhir/Patient", def); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "fhir/Patient")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !zen.Equal(def, got) {
		t.Errorf("definition changed in cache")
	}
	keys := got.Object("keys").Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("key order = %v, want [b a]", keys)
	}

	// Replace
	if err := store.Put(ctx, "fhir/Patient", mustObject(t, `{"type":"zen/string"}`)); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ = store.Get(ctx, "fhir/Patient")
	if got.String("type") != "zen/string" {
		t.Errorf("type = %s, want zen/string", got.String("type"))
	}
}

func TestSymbolStore_Miss(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewSymbolStore(db, clock.System{})
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing/Symbol"); !errors.Is(err, ports.ErrCacheMiss) {
		t.Errorf("Get err = %v, want ErrCacheMiss", err)
	}
	if _, err := store.Names(ctx); !errors.Is(err, ports.ErrCacheMiss) {
		t.Errorf("Names err = %v, want ErrCacheMiss", err)
	}
}

func TestSymbolStore_Names(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewSymbolStore(db, clock.System{})
	ctx := context.Background()

	if err := store.PutNames(ctx, []string{"b/B", "a/A"}); err != nil {
		t.Fatalf("put names: %v", err)
	}
	if err := store.PutNames(ctx, []string{"c/C", "b/B", "a/A"}); err != nil {
		t.Fatalf("replace names: %v", err)
	}

	names, err := store.Names(ctx)
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != 3 || names[0] != "c/C" {
		t.Errorf("names = %v", names)
	}
}

func TestSymbolStore_BatchStatsClear(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewSymbolStore(db, clock.NewStepping(start, time.Minute))
	ctx := context.Background()

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Symbols != 0 || stats.HasNames || !stats.UpdatedAt.IsZero() {
		t.Errorf("empty stats = %+v", stats)
	}

	err = store.PutBatch(ctx, map[string]*zen.Object{
		"a/A": mustObject(t, `{"type":"zen/map"}`),
		"b/B": mustObject(t, `{"type":"zen/string"}`),
	})
	if err != nil {
		t.Fatalf("put batch: %v", err)
	}
	if err := store.PutNames(ctx, []string{"a/A", "b/B"}); err != nil {
		t.Fatalf("put names: %v", err)
	}

	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Symbols != 2 {
		t.Errorf("Symbols = %d, want 2", stats.Symbols)
	}
	if !stats.HasNames {
		t.Error("HasNames should be true")
	}
	// Batch is written at start, names one step later
	if want := start.Add(time.Minute); !stats.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", stats.UpdatedAt, want)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stats, _ = store.Stats(ctx)
	if stats.Symbols != 0 || stats.HasNames {
		t.Errorf("stats after clear = %+v", stats)
	}
}

func TestSymbolStore_ImplementsPort(t *testing.T) {
	var _ ports.SymbolCache = (*sqlite.SymbolStore)(nil)
}
