package entity

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/roach88/dbobject/internal/queryir"
	"github.com/roach88/dbobject/internal/schema"
	"github.com/roach88/dbobject/internal/store"
)

type upsertConfig struct {
	ignoreNone bool
	ignoreZero bool
}

// UpsertOption controls how values merge into an existing row.
type UpsertOption func(*upsertConfig)

// IgnoreNone skips nil values when merging.
func IgnoreNone(ignore bool) UpsertOption {
	return func(c *upsertConfig) { c.ignoreNone = ignore }
}

// IgnoreZero skips numeric zero values when merging.
func IgnoreZero(ignore bool) UpsertOption {
	return func(c *upsertConfig) { c.ignoreZero = ignore }
}

// Get loads the row with the given identity value, or returns nil.
func (t *Table) Get(ctx context.Context, s *store.Session, id any) (*schema.Record, error) {
	const op = "get"
	q, err := t.byIdentity(op, id)
	if err != nil {
		return nil, err
	}
	var rec *schema.Record
	err = t.run(ctx, s, op, func(sess *store.Session) error {
		rec, err = t.oneOrNone(ctx, sess, op, q)
		return err
	})
	return rec, err
}

// GetFromValues loads the row whose identity is values[identity column].
func (t *Table) GetFromValues(ctx context.Context, s *store.Session, values schema.Values) (*schema.Record, error) {
	col, err := t.identity("get from values")
	if err != nil {
		return nil, err
	}
	return t.Get(ctx, s, values[col.Name])
}

// FindOne loads the single row matching values on the match columns, or
// on the temporal column when the type declares no match columns.
//
// A match column missing from values (or nil) matches NULL. Finding more
// than one row is a consistency error.
func (t *Table) FindOne(ctx context.Context, s *store.Session, values schema.Values) (*schema.Record, error) {
	const op = "find one"
	q, err := t.findOneQuery(op, values)
	if err != nil {
		return nil, err
	}
	var rec *schema.Record
	err = t.run(ctx, s, op, func(sess *store.Session) error {
		rec, err = t.oneOrNone(ctx, sess, op, q)
		return err
	})
	return rec, err
}

// FindMatch loads the single row whose columns equal every entry of match.
func (t *Table) FindMatch(ctx context.Context, s *store.Session, match schema.Values) (*schema.Record, error) {
	const op = "find match"
	names := make([]string, 0, len(match))
	for name := range match {
		names = append(names, name)
	}
	sort.Strings(names)

	var preds []queryir.Predicate
	for _, name := range names {
		col, err := t.column(op, name)
		if err != nil {
			return nil, err
		}
		v, err := t.encode(op, col, match[name])
		if err != nil {
			return nil, err
		}
		preds = append(preds, queryir.Equal(queryir.Col(col.Name), v))
	}
	q := queryir.Select{
		Items:  t.recordItems(),
		From:   t.from(),
		Filter: queryir.All(preds...),
		Limit:  2,
	}

	var rec *schema.Record
	err := t.run(ctx, s, op, func(sess *store.Session) error {
		var err error
		rec, err = t.oneOrNone(ctx, sess, op, q)
		return err
	})
	return rec, err
}

// FindID returns the identity value of the row matching match.
func (t *Table) FindID(ctx context.Context, s *store.Session, match schema.Values) (any, error) {
	const op = "find id"
	col, err := t.identity(op)
	if err != nil {
		return nil, err
	}
	rec, err := t.FindMatch(ctx, s, match)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, t.fail(op, KindPrecondition, ErrNotFound)
	}
	return rec.Get(col.Name)
}

// FindOrCreate returns the row FindOne locates for values, inserting one
// built from values when there is none. The bool reports whether a row
// was inserted.
func (t *Table) FindOrCreate(ctx context.Context, s *store.Session, values schema.Values) (*schema.Record, bool, error) {
	const op = "find or create"
	q, err := t.findOneQuery(op, values)
	if err != nil {
		return nil, false, err
	}
	fresh, err := t.NewRecord(values)
	if err != nil {
		return nil, false, err
	}

	var (
		rec     *schema.Record
		created bool
	)
	err = t.run(ctx, s, op, func(sess *store.Session) error {
		found, err := t.oneOrNone(ctx, sess, op, q)
		if err != nil {
			return err
		}
		if found != nil {
			rec = found
			return nil
		}
		if err := t.insert(ctx, sess, fresh); err != nil {
			return err
		}
		rec, created = fresh, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return rec, created, nil
}

// InsertOrUpdate locates a row by the identity value in values. When one
// exists, values are merged into it (nil values skipped by default) and
// changed columns written back; otherwise a new row is inserted.
func (t *Table) InsertOrUpdate(ctx context.Context, s *store.Session, values schema.Values, opts ...UpsertOption) (*schema.Record, error) {
	const op = "insert or update"
	col, err := t.identity(op)
	if err != nil {
		return nil, err
	}
	cfg := upsertConfig{ignoreNone: true}
	for _, o := range opts {
		o(&cfg)
	}

	var lookup *queryir.Select
	if id, ok := values[col.Name]; ok && id != nil {
		q, err := t.byIdentity(op, id)
		if err != nil {
			return nil, err
		}
		lookup = &q
	}
	return t.upsert(ctx, s, op, lookup, values, cfg)
}

// CreateOrUpdate locates a row with FindOne semantics. When one exists,
// values are merged into it and changed columns written back; otherwise a
// new row is inserted.
func (t *Table) CreateOrUpdate(ctx context.Context, s *store.Session, values schema.Values, opts ...UpsertOption) (*schema.Record, error) {
	const op = "create or update"
	var cfg upsertConfig
	for _, o := range opts {
		o(&cfg)
	}
	q, err := t.findOneQuery(op, values)
	if err != nil {
		return nil, err
	}
	return t.upsert(ctx, s, op, &q, values, cfg)
}

func (t *Table) upsert(ctx context.Context, s *store.Session, op string, lookup *queryir.Select, values schema.Values, cfg upsertConfig) (*schema.Record, error) {
	var rec *schema.Record
	err := t.run(ctx, s, op, func(sess *store.Session) error {
		var found *schema.Record
		if lookup != nil {
			var err error
			if found, err = t.oneOrNone(ctx, sess, op, *lookup); err != nil {
				return err
			}
		}

		if found == nil {
			fresh, err := t.rt.NewRecord(values)
			if err != nil {
				return err
			}
			if err := t.insert(ctx, sess, fresh); err != nil {
				return err
			}
			rec = fresh
			return nil
		}

		if err := found.UpdateFromValues(values, cfg.ignoreNone, cfg.ignoreZero); err != nil {
			return err
		}
		if err := t.update(ctx, sess, found); err != nil {
			return err
		}
		rec = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Insert writes a transient record as a new row.
func (t *Table) Insert(ctx context.Context, s *store.Session, rec *schema.Record) error {
	const op = "insert"
	if rec.Type() != t.rt {
		return t.fail(op, KindPrecondition, ErrForeignRecord)
	}
	return t.run(ctx, s, op, func(sess *store.Session) error {
		return t.insert(ctx, sess, rec)
	})
}

// Update writes a persisted record's changed columns back to its row. It
// does nothing when no column changed.
func (t *Table) Update(ctx context.Context, s *store.Session, rec *schema.Record) error {
	const op = "update"
	if rec.Type() != t.rt {
		return t.fail(op, KindPrecondition, ErrForeignRecord)
	}
	return t.run(ctx, s, op, func(sess *store.Session) error {
		return t.update(ctx, sess, rec)
	})
}

func (t *Table) byIdentity(op string, id any) (queryir.Select, error) {
	col, err := t.identity(op)
	if err != nil {
		return queryir.Select{}, err
	}
	v, err := t.encode(op, col, id)
	if err != nil {
		return queryir.Select{}, err
	}
	return queryir.Select{
		Items:  t.recordItems(),
		From:   t.from(),
		Filter: queryir.Equal(queryir.Col(col.Name), v),
		Limit:  2,
	}, nil
}

func (t *Table) findOneQuery(op string, values schema.Values) (queryir.Select, error) {
	var preds []queryir.Predicate
	if len(t.rt.MatchColumns) > 0 {
		for _, name := range t.rt.MatchColumns {
			col, err := t.column(op, name)
			if err != nil {
				return queryir.Select{}, err
			}
			v, err := t.encode(op, col, values[name])
			if err != nil {
				return queryir.Select{}, err
			}
			preds = append(preds, queryir.Equal(queryir.Col(col.Name), v))
		}
	} else {
		col, err := t.temporal(op)
		if err != nil {
			return queryir.Select{}, err
		}
		raw, ok := values[col.Name]
		if !ok || raw == nil {
			return queryir.Select{}, t.fail(op, KindPrecondition,
				errors.Wrapf(ErrMissingTemporalValue, "%q", col.Name))
		}
		v, err := t.encode(op, col, raw)
		if err != nil {
			return queryir.Select{}, err
		}
		preds = append(preds, queryir.Equal(queryir.Col(col.Name), v))
	}

	return queryir.Select{
		Items:  t.recordItems(),
		From:   t.from(),
		Filter: queryir.All(preds...),
		Limit:  2,
	}, nil
}

// oneOrNone runs q (limited to two rows) and returns the single row, nil
// for none, or a consistency error for more.
func (t *Table) oneOrNone(ctx context.Context, sess *store.Session, op string, q queryir.Select) (*schema.Record, error) {
	recs, err := t.queryRecords(ctx, sess, q)
	if err != nil {
		return nil, err
	}
	switch len(recs) {
	case 0:
		return nil, nil
	case 1:
		return recs[0], nil
	}
	t.log.Warnw("multiple rows match", "op", op)
	return nil, t.fail(op, KindConsistency, ErrMultipleRows)
}

func (t *Table) insert(ctx context.Context, sess *store.Session, rec *schema.Record) error {
	names := rec.Assigned()
	vals := make([]any, len(names))
	for i, name := range names {
		col, _ := t.meta.Column(name)
		v, _ := rec.Get(name)
		enc, err := schema.Encode(col.Type, v)
		if err != nil {
			return err
		}
		vals[i] = enc
	}

	res, err := t.exec(ctx, sess, queryir.Insert{Table: t.rt.Table, Columns: names, Values: vals})
	if err != nil {
		return err
	}

	if t.rowidIdentity() {
		if id, _ := rec.Get(t.meta.Identity); id == nil {
			rowid, err := res.LastInsertId()
			if err != nil {
				return errors.Wrap(err, "read assigned identity")
			}
			if err := rec.Set(t.meta.Identity, rowid); err != nil {
				return err
			}
		}
	}
	rec.MarkPersisted()
	t.log.Debugw("inserted row", "record", rec.String())
	return nil
}

func (t *Table) update(ctx context.Context, sess *store.Session, rec *schema.Record) error {
	dirty := rec.Dirty()
	if len(dirty) == 0 {
		return nil
	}
	where, err := t.locator(rec)
	if err != nil {
		return err
	}

	set := make([]queryir.Assignment, len(dirty))
	for i, name := range dirty {
		col, _ := t.meta.Column(name)
		v, _ := rec.Get(name)
		enc, err := schema.Encode(col.Type, v)
		if err != nil {
			return err
		}
		set[i] = queryir.Assignment{Column: name, Value: enc}
	}

	if _, err := t.exec(ctx, sess, queryir.Update{Table: t.rt.Table, Set: set, Filter: where}); err != nil {
		return err
	}
	rec.MarkPersisted()
	t.log.Debugw("updated row", "record", rec.String(), "columns", dirty)
	return nil
}

// locator builds the predicate identifying rec's stored row from the
// values it had when last persisted: primary-key columns, falling back to
// the match columns and then to the temporal column, the same key
// FindOne matches on.
func (t *Table) locator(rec *schema.Record) (queryir.Predicate, error) {
	var keys []string
	for _, c := range t.rt.Columns {
		if c.PrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	if len(keys) == 0 {
		keys = t.rt.MatchColumns
	}
	if len(keys) == 0 {
		if tc, ok := t.meta.TemporalColumn(); ok {
			keys = []string{tc.Name}
		}
	}
	if len(keys) == 0 {
		return nil, t.fail("update", KindPrecondition, ErrNoRowLocator)
	}

	preds := make([]queryir.Predicate, len(keys))
	for i, name := range keys {
		col, _ := t.meta.Column(name)
		v, _ := rec.Get(name)
		if rec.Persisted() {
			v, _ = rec.PersistedValue(name)
		}
		enc, err := schema.Encode(col.Type, v)
		if err != nil {
			return nil, err
		}
		preds[i] = queryir.Equal(queryir.Col(col.Name), enc)
	}
	return queryir.All(preds...), nil
}
