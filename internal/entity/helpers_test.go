package entity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dbobject/internal/schema"
	"github.com/roach88/dbobject/internal/store"
	"github.com/roach88/dbobject/internal/testutil"
)

// openTable opens a temp store with the given types and binds the first.
func openTable(t *testing.T, types ...*schema.RecordType) (*Table, *store.Store) {
	t.Helper()
	db := testutil.OpenStore(t, types...)
	tbl, err := Bind(db, types[0].Table)
	require.NoError(t, err)
	return tbl, db
}

// ts parses "2006-01-02 15:04" in UTC.
func ts(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	require.NoError(t, err)
	return tm
}

// day parses "2006-01-02" in UTC.
func day(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	require.NoError(t, err)
	return tm
}

// clock returns a time-of-day value.
func clock(h, m int) time.Time {
	return schema.Midnight.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func insert(t *testing.T, tbl *Table, values schema.Values) *schema.Record {
	t.Helper()
	rec, err := tbl.NewRecord(values)
	require.NoError(t, err)
	require.NoError(t, tbl.Insert(context.Background(), nil, rec))
	return rec
}
