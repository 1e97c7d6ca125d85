package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/roach88/dbobject/internal/schema"
)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	opts = append([]Option{WithLogger(zaptest.NewLogger(t).Sugar())}, opts...)
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// stepsType is a minimal record type with an autoincrement identity and
// match columns.
func stepsType() *schema.RecordType {
	return &schema.RecordType{
		Table: "steps",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Integer, PrimaryKey: true},
			{Name: "device", Type: schema.Text},
			{Name: "ts", Type: schema.DateTime},
			{Name: "steps", Type: schema.Integer},
		},
		MatchColumns: []string{"device", "ts"},
	}
}

// sequentialIDs returns an id generator yielding "s1", "s2", ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
}
