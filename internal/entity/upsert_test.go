package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/dbobject/internal/schema"
	"github.com/roach88/dbobject/internal/store"
	"github.com/roach88/dbobject/internal/testutil"
)

func TestFindOrCreate_Idempotent(t *testing.T) {
	tbl, _ := openTable(t, testutil.Pairs())
	ctx := context.Background()
	values := schema.Values{"a": 1, "b": 2, "note": "first"}

	rec, created, err := tbl.FindOrCreate(ctx, nil, values)
	require.NoError(t, err)
	assert.True(t, created)
	id, _ := rec.Get("id")
	assert.Equal(t, int64(1), id, "identity assigned by the store")
	assert.True(t, rec.Persisted())

	again, created, err := tbl.FindOrCreate(ctx, nil, schema.Values{"a": 1, "b": 2, "note": "second"})
	require.NoError(t, err)
	assert.False(t, created)
	againID, _ := again.Get("id")
	assert.Equal(t, id, againID)
	note, _ := again.Get("note")
	assert.Equal(t, "first", note, "an existing row is returned unchanged")

	n, err := tbl.RowCount(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFindOne_AbsentMatchKeyMatchesNull(t *testing.T) {
	tbl, _ := openTable(t, testutil.Pairs())
	ctx := context.Background()

	insert(t, tbl, schema.Values{"a": 1, "b": 2, "note": "both"})
	insert(t, tbl, schema.Values{"a": 1, "note": "a only"})

	rec, err := tbl.FindOne(ctx, nil, schema.Values{"a": 1})
	require.NoError(t, err)
	require.NotNil(t, rec)
	note, _ := rec.Get("note")
	assert.Equal(t, "a only", note)

	rec, err = tbl.FindOne(ctx, nil, schema.Values{"a": 2, "b": 2})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFindOne_MultipleRowsIsConsistencyError(t *testing.T) {
	tbl, _ := openTable(t, testutil.Pairs())

	// NULLs are distinct in the match index, so these both store.
	insert(t, tbl, schema.Values{"a": 1})
	insert(t, tbl, schema.Values{"a": 1})

	_, err := tbl.FindOne(context.Background(), nil, schema.Values{"a": 1})
	require.Error(t, err)
	assert.True(t, IsConsistencyError(err))
	assert.ErrorIs(t, err, ErrMultipleRows)
}

func TestFindOne_TemporalMatch(t *testing.T) {
	tbl, _ := openTable(t, testutil.HeartRate())
	ctx := context.Background()
	insert(t, tbl, schema.Values{"timestamp": ts(t, "2024-01-01 10:00"), "heart_rate": 61})

	rec, err := tbl.FindOne(ctx, nil, schema.Values{"timestamp": "2024-01-01 10:00:00"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	hr, _ := rec.Get("heart_rate")
	assert.Equal(t, int64(61), hr)

	_, err = tbl.FindOne(ctx, nil, schema.Values{"heart_rate": 61})
	assert.True(t, IsPreconditionError(err))
	assert.ErrorIs(t, err, ErrMissingTemporalValue)
}

func TestFindOne_NoKeyAtAll(t *testing.T) {
	rt := &schema.RecordType{
		Table:   "notes",
		Columns: []schema.Column{{Name: "body", Type: schema.Text}},
	}
	tbl, _ := openTable(t, rt)

	_, err := tbl.FindOne(context.Background(), nil, schema.Values{"body": "x"})
	assert.True(t, IsPreconditionError(err))
	assert.ErrorIs(t, err, ErrNoTemporalColumn)

	_, err = tbl.InsertOrUpdate(context.Background(), nil, schema.Values{"body": "x"})
	assert.ErrorIs(t, err, ErrNoIdentityColumn)
}

func TestInsertOrUpdate(t *testing.T) {
	tbl, _ := openTable(t, testutil.HeartRate())
	ctx := context.Background()
	at := ts(t, "2024-01-01 10:00")

	rec, err := tbl.InsertOrUpdate(ctx, nil, schema.Values{"timestamp": at, "heart_rate": 60})
	require.NoError(t, err)
	assert.True(t, rec.Persisted())

	_, err = tbl.InsertOrUpdate(ctx, nil, schema.Values{"timestamp": at, "heart_rate": nil})
	require.NoError(t, err)
	got, err := tbl.Get(ctx, nil, at)
	require.NoError(t, err)
	hr, _ := got.Get("heart_rate")
	assert.Equal(t, int64(60), hr, "nil values are ignored by default")

	_, err = tbl.InsertOrUpdate(ctx, nil, schema.Values{"timestamp": at, "heart_rate": 72})
	require.NoError(t, err)
	got, err = tbl.GetFromValues(ctx, nil, schema.Values{"timestamp": at})
	require.NoError(t, err)
	hr, _ = got.Get("heart_rate")
	assert.Equal(t, int64(72), hr)

	_, err = tbl.InsertOrUpdate(ctx, nil, schema.Values{"timestamp": at, "heart_rate": nil}, IgnoreNone(false))
	require.NoError(t, err)
	got, _ = tbl.Get(ctx, nil, at)
	hr, _ = got.Get("heart_rate")
	assert.Nil(t, hr)

	n, _ := tbl.RowCount(ctx, nil)
	assert.Equal(t, int64(1), n)
}

func TestInsertOrUpdate_MissingIdentityInserts(t *testing.T) {
	tbl, _ := openTable(t, testutil.Pairs())
	ctx := context.Background()

	first, err := tbl.InsertOrUpdate(ctx, nil, schema.Values{"a": 1, "b": 1})
	require.NoError(t, err)
	second, err := tbl.InsertOrUpdate(ctx, nil, schema.Values{"id": nil, "a": 2, "b": 2})
	require.NoError(t, err)

	id1, _ := first.Get("id")
	id2, _ := second.Get("id")
	assert.NotEqual(t, id1, id2)

	updated, err := tbl.InsertOrUpdate(ctx, nil, schema.Values{"id": id1, "note": "hi"})
	require.NoError(t, err)
	a, _ := updated.Get("a")
	assert.Equal(t, int64(1), a)

	got, err := tbl.FindID(ctx, nil, schema.Values{"note": "hi"})
	require.NoError(t, err)
	assert.Equal(t, id1, got)
}

func TestCreateOrUpdate(t *testing.T) {
	tbl, _ := openTable(t, testutil.Steps())
	ctx := context.Background()
	key := schema.Values{"device": "watch", "ts": ts(t, "2024-01-01 09:00")}
	with := func(extra schema.Values) schema.Values {
		out := schema.Values{}
		for k, v := range key {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	_, err := tbl.CreateOrUpdate(ctx, nil, with(schema.Values{"steps": 100}))
	require.NoError(t, err)

	rec, err := tbl.CreateOrUpdate(ctx, nil, with(schema.Values{"steps": 0}), IgnoreZero(true))
	require.NoError(t, err)
	steps, _ := rec.Get("steps")
	assert.Equal(t, int64(100), steps)

	rec, err = tbl.CreateOrUpdate(ctx, nil, with(schema.Values{"steps": 0}))
	require.NoError(t, err)
	steps, _ = rec.Get("steps")
	assert.Equal(t, int64(0), steps)

	stored, err := tbl.FindMatch(ctx, nil, key)
	require.NoError(t, err)
	steps, _ = stored.Get("steps")
	assert.Equal(t, int64(0), steps)

	n, _ := tbl.RowCount(ctx, nil)
	assert.Equal(t, int64(1), n)
}

func TestCreateOrUpdate_NoPrimaryKeyLocatesByTemporal(t *testing.T) {
	rt := &schema.RecordType{
		Table: "readings",
		Columns: []schema.Column{
			{Name: "ts", Type: schema.DateTime},
			{Name: "v", Type: schema.Integer},
		},
	}
	tbl, _ := openTable(t, rt)
	ctx := context.Background()
	at := ts(t, "2024-01-01 09:00")

	_, err := tbl.CreateOrUpdate(ctx, nil, schema.Values{"ts": at, "v": 1})
	require.NoError(t, err)
	insert(t, tbl, schema.Values{"ts": ts(t, "2024-01-01 10:00"), "v": 5})

	rec, err := tbl.CreateOrUpdate(ctx, nil, schema.Values{"ts": at, "v": 2})
	require.NoError(t, err)
	v, _ := rec.Get("v")
	assert.Equal(t, int64(2), v)

	stored, err := tbl.FindOne(ctx, nil, schema.Values{"ts": at})
	require.NoError(t, err)
	v, _ = stored.Get("v")
	assert.Equal(t, int64(2), v)

	other, err := tbl.FindOne(ctx, nil, schema.Values{"ts": ts(t, "2024-01-01 10:00")})
	require.NoError(t, err)
	v, _ = other.Get("v")
	assert.Equal(t, int64(5), v)

	n, _ := tbl.RowCount(ctx, nil)
	assert.Equal(t, int64(2), n)
}

func TestUpdate_NoLocatorIsPrecondition(t *testing.T) {
	rt := &schema.RecordType{
		Table:   "notes",
		Columns: []schema.Column{{Name: "body", Type: schema.Text}},
	}
	tbl, _ := openTable(t, rt)
	rec := insert(t, tbl, schema.Values{"body": "x"})

	require.NoError(t, rec.Set("body", "y"))
	err := tbl.Update(context.Background(), nil, rec)
	assert.True(t, IsPreconditionError(err))
	assert.ErrorIs(t, err, ErrNoRowLocator)
}

func TestCreateOrUpdate_NoChangesIssuesNoUpdate(t *testing.T) {
	tbl, db := openTable(t, testutil.Steps())
	ctx := context.Background()
	values := schema.Values{"device": "watch", "ts": ts(t, "2024-01-01 09:00"), "steps": 100}

	_, err := tbl.CreateOrUpdate(ctx, nil, values)
	require.NoError(t, err)

	sess, err := db.Begin(ctx)
	require.NoError(t, err)
	_, err = tbl.CreateOrUpdate(ctx, sess, values)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Statements(), "only the lookup runs")
	require.NoError(t, sess.Commit())
}

func TestUpdate_LocatesByPersistedKey(t *testing.T) {
	tbl, _ := openTable(t, testutil.HeartRate())
	ctx := context.Background()
	rec := insert(t, tbl, schema.Values{"timestamp": ts(t, "2024-01-01 10:00"), "heart_rate": 60})

	require.NoError(t, rec.Set("timestamp", ts(t, "2024-01-01 10:30")))
	require.NoError(t, tbl.Update(ctx, nil, rec))

	old, err := tbl.Get(ctx, nil, ts(t, "2024-01-01 10:00"))
	require.NoError(t, err)
	assert.Nil(t, old)
	moved, err := tbl.Get(ctx, nil, ts(t, "2024-01-01 10:30"))
	require.NoError(t, err)
	assert.NotNil(t, moved)
}

func TestInsert_ForeignRecord(t *testing.T) {
	tbl, _ := openTable(t, testutil.Pairs())
	other, err := testutil.HeartRate().NewRecord(schema.Values{"heart_rate": 1})
	require.NoError(t, err)

	err = tbl.Insert(context.Background(), nil, other)
	assert.True(t, IsPreconditionError(err))
	assert.ErrorIs(t, err, ErrForeignRecord)
}

func TestFindID_NotFound(t *testing.T) {
	tbl, _ := openTable(t, testutil.Pairs())
	_, err := tbl.FindID(context.Background(), nil, schema.Values{"a": 9})
	assert.True(t, IsPreconditionError(err))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tbl.FindMatch(context.Background(), nil, schema.Values{"zzz": 9})
	assert.True(t, IsPreconditionError(err))
}

func TestInvalidValueIsPrecondition(t *testing.T) {
	tbl, _ := openTable(t, testutil.Pairs())
	_, _, err := tbl.FindOrCreate(context.Background(), nil, schema.Values{"a": "not a number"})
	require.Error(t, err)
	assert.True(t, IsPreconditionError(err))
	assert.ErrorIs(t, err, schema.ErrInvalidValue)
}

func TestCallerSessionRollback(t *testing.T) {
	tbl, db := openTable(t, testutil.Pairs())
	ctx := context.Background()

	sess, err := db.Begin(ctx)
	require.NoError(t, err)
	_, created, err := tbl.FindOrCreate(ctx, sess, schema.Values{"a": 1, "b": 1})
	require.NoError(t, err)
	assert.True(t, created)
	_, err = tbl.InsertOrUpdate(ctx, sess, schema.Values{"a": 2, "b": 2})
	require.NoError(t, err)
	require.NoError(t, sess.Rollback())

	n, err := tbl.RowCount(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "the caller's rollback discards both writes")
}

func TestStoreFailureRollsBack(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := store.New(sqlDB, store.WithLogger(zaptest.NewLogger(t).Sugar()))
	require.NoError(t, db.Register(testutil.Pairs()))
	tbl, err := Bind(db, "pairs")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, a, b, note FROM pairs WHERE a = \? AND b = \? LIMIT 2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "a", "b", "note"}))
	mock.ExpectExec(`INSERT INTO pairs \(a, b\) VALUES \(\?, \?\)`).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, _, err = tbl.FindOrCreate(context.Background(), nil, schema.Values{"a": 1, "b": 2})
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBind_Unregistered(t *testing.T) {
	db := testutil.OpenStore(t)
	_, err := Bind(db, "ghost")
	assert.True(t, IsConfigurationError(err))
	assert.ErrorIs(t, err, ErrUnregisteredTable)
}
