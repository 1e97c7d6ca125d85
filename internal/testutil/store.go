package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/roach88/dbobject/internal/schema"
	"github.com/roach88/dbobject/internal/store"
)

// OpenStore opens a file-backed store in a temp directory, registers the
// given record types and creates their tables. The store is closed when
// the test ends.
func OpenStore(t testing.TB, types ...*schema.RecordType) *store.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path,
		store.WithLogger(zaptest.NewLogger(t).Sugar()),
		store.WithIDGenerator(SequentialIDs("s")),
	)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, rt := range types {
		if err := db.Register(rt); err != nil {
			t.Fatalf("register %s: %v", rt.Table, err)
		}
	}
	if err := db.EnsureTables(context.Background()); err != nil {
		t.Fatalf("ensure tables: %v", err)
	}
	return db
}
