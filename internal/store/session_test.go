package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db,
		WithLogger(zaptest.NewLogger(t).Sugar()),
		WithIDGenerator(sequentialIDs()),
	)
	return s, mock
}

func TestWithSession_CommitsOnSuccess(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO steps`).
		WithArgs("watch", int64(10)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	var seen string
	err := s.WithSession(ctx, func(sess *Session) error {
		seen = sess.ID()
		_, err := sess.Exec(ctx, "INSERT INTO steps (device, steps) VALUES (?, ?)", "watch", int64(10))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSession_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO steps`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := s.WithSession(ctx, func(sess *Session) error {
		if _, err := sess.Exec(ctx, "INSERT INTO steps DEFAULT VALUES"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSession_RollsBackOnStoreFailure(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	driverErr := errors.New("disk I/O error")
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE steps`).WillReturnError(driverErr)
	mock.ExpectRollback()

	err := s.WithSession(ctx, func(sess *Session) error {
		_, err := sess.Exec(ctx, "UPDATE steps SET steps = 1 WHERE id = 1")
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, driverErr)
	assert.Contains(t, err.Error(), "exec in session s1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSession_RollsBackOnPanic(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = s.WithSession(context.Background(), func(*Session) error {
			panic("kaboom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSession_BeginFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	called := false
	err := s.WithSession(context.Background(), func(*Session) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.Contains(t, err.Error(), "begin session")
}

func TestSession_ManualLifecycle(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM steps`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectCommit()

	sess, err := s.Begin(ctx)
	require.NoError(t, err)

	rows, err := sess.Query(ctx, "SELECT COUNT(*) FROM steps")
	require.NoError(t, err)
	require.True(t, rows.Next())
	var n int64
	require.NoError(t, rows.Scan(&n))
	require.NoError(t, rows.Close())
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 1, sess.Statements())

	require.NoError(t, sess.Commit())
	assert.NoError(t, sess.Rollback(), "rollback after commit is a no-op")
	assert.ErrorIs(t, sess.Commit(), ErrSessionClosed)

	_, err = sess.Exec(ctx, "DELETE FROM steps")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_IDsAreUnique(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		require.NoError(t, s.WithSession(ctx, func(sess *Session) error {
			ids[sess.ID()] = true
			return nil
		}))
	}
	assert.Len(t, ids, 3)
}
