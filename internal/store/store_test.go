package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbobject/internal/schema"
)

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, s.verifyPragma(tt.name, tt.expected))
		})
	}
}

func TestOpen_CustomBusyTimeout(t *testing.T) {
	s := createTestStore(t, WithBusyTimeout(1200), WithJournalMode("DELETE"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "1200"))
	assert.NoError(t, s.verifyPragma("journal_mode", "delete"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestEnsureTables(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.Register(stepsType()))
	require.NoError(t, s.EnsureTables(ctx))
	// Safe to run again.
	require.NoError(t, s.EnsureTables(ctx))

	var tables int
	err := s.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'steps'`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 1, tables)

	var indexes int
	err = s.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_steps_match'`).Scan(&indexes)
	require.NoError(t, err)
	assert.Equal(t, 1, indexes)
}

func TestRegister_AfterEnsureTables(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.EnsureTables(context.Background()))

	err := s.Register(stepsType())
	assert.ErrorIs(t, err, schema.ErrRegistryFrozen)
}

func TestRegister_SharedRegistry(t *testing.T) {
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(stepsType()))

	s := createTestStore(t, WithRegistry(reg))
	assert.Same(t, reg, s.Registry())

	_, ok := s.Registry().Lookup("steps")
	assert.True(t, ok)
}
