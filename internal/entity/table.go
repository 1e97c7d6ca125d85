package entity

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/roach88/dbobject/internal/queryir"
	"github.com/roach88/dbobject/internal/querysql"
	"github.com/roach88/dbobject/internal/schema"
	"github.com/roach88/dbobject/internal/store"
)

// Table binds a registered record type to a store.
type Table struct {
	db   *store.Store
	rt   *schema.RecordType
	meta *schema.Meta
	log  *zap.SugaredLogger
}

// Bind returns the Table for a table registered in db.
func Bind(db *store.Store, table string) (*Table, error) {
	rt, ok := db.Registry().Lookup(table)
	if !ok {
		return nil, &Error{Kind: KindConfiguration, Op: "bind", Table: table, Err: ErrUnregisteredTable}
	}
	meta, err := rt.Introspect()
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: "bind", Table: table, Err: err}
	}
	return &Table{
		db:   db,
		rt:   rt,
		meta: meta,
		log:  db.Logger().With("table", table),
	}, nil
}

// Setup creates every registered table and its declared views.
func Setup(ctx context.Context, db *store.Store) error {
	if err := db.EnsureTables(ctx); err != nil {
		return &Error{Kind: KindStore, Op: "setup", Err: err}
	}

	var tables []*Table
	for _, rt := range db.Registry().Types() {
		if len(rt.Views) == 0 {
			continue
		}
		t, err := Bind(db, rt.Table)
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return nil
	}

	return db.WithSession(ctx, func(sess *store.Session) error {
		for _, t := range tables {
			if err := t.CreateDeclaredViews(ctx, sess); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordType returns the bound record type.
func (t *Table) RecordType() *schema.RecordType { return t.rt }

// Name returns the table name.
func (t *Table) Name() string { return t.rt.Table }

// Meta returns the record type's introspected metadata.
func (t *Table) Meta() *schema.Meta { return t.meta }

// NewRecord builds a transient record of this table's type.
func (t *Table) NewRecord(values schema.Values) (*schema.Record, error) {
	rec, err := t.rt.NewRecord(values)
	if err != nil {
		return nil, t.classify("new record", err)
	}
	return rec, nil
}

// run executes fn in s, or in a managed session when s is nil.
func (t *Table) run(ctx context.Context, s *store.Session, op string, fn func(*store.Session) error) error {
	var err error
	if s != nil {
		err = fn(s)
	} else {
		err = t.db.WithSession(ctx, fn)
	}
	if err != nil {
		return t.classify(op, err)
	}
	return nil
}

func (t *Table) column(op, name string) (schema.Column, error) {
	col, ok := t.meta.Column(name)
	if !ok {
		return schema.Column{}, t.fail(op, KindPrecondition, schema.ErrUnknownColumn)
	}
	return col, nil
}

func (t *Table) temporal(op string) (schema.Column, error) {
	col, ok := t.meta.TemporalColumn()
	if !ok {
		return schema.Column{}, t.fail(op, KindPrecondition, ErrNoTemporalColumn)
	}
	return col, nil
}

func (t *Table) identity(op string) (schema.Column, error) {
	if !t.meta.HasIdentity() {
		return schema.Column{}, t.fail(op, KindPrecondition, ErrNoIdentityColumn)
	}
	col, _ := t.meta.Column(t.meta.Identity)
	return col, nil
}

func (t *Table) encode(op string, col schema.Column, v any) (any, error) {
	enc, err := schema.Encode(col.Type, v)
	if err != nil {
		return nil, t.fail(op, KindPrecondition, err)
	}
	return enc, nil
}

// rowidIdentity reports whether the identity is a lone INTEGER primary key,
// which SQLite assigns on insert.
func (t *Table) rowidIdentity() bool {
	pks := 0
	for _, c := range t.rt.Columns {
		if c.PrimaryKey {
			pks++
		}
	}
	col, ok := t.meta.Column(t.meta.Identity)
	return pks == 1 && ok && col.Type == schema.Integer
}

func (t *Table) from() queryir.Table {
	return queryir.Table{Name: t.rt.Table}
}

// recordItems selects every column in declaration order.
func (t *Table) recordItems() []queryir.SelectItem {
	items := make([]queryir.SelectItem, len(t.rt.Columns))
	for i, c := range t.rt.Columns {
		items[i] = queryir.SelectItem{Expr: queryir.Col(c.Name)}
	}
	return items
}

func (t *Table) compile(q queryir.Query) (string, []any, error) {
	sqlText, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return "", nil, err
	}
	t.log.Debugw("compiled query", "sql", sqlText, "params", len(params))
	return sqlText, params, nil
}

func (t *Table) exec(ctx context.Context, s *store.Session, q queryir.Query) (sql.Result, error) {
	sqlText, params, err := t.compile(q)
	if err != nil {
		return nil, err
	}
	return s.Exec(ctx, sqlText, params...)
}

// queryRows runs q and returns each row's raw driver values.
func (t *Table) queryRows(ctx context.Context, s *store.Session, q queryir.Select) ([][]any, error) {
	sqlText, params, err := t.compile(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.Query(ctx, sqlText, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out [][]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

// queryRecords runs a whole-record selection and materializes the rows.
func (t *Table) queryRecords(ctx context.Context, s *store.Session, q queryir.Select) ([]*schema.Record, error) {
	rows, err := t.queryRows(ctx, s, q)
	if err != nil {
		return nil, err
	}
	recs := make([]*schema.Record, 0, len(rows))
	for _, raw := range rows {
		rec, err := t.rt.Load(raw)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// queryScalar returns the first column of the first row, or nil.
func (t *Table) queryScalar(ctx context.Context, s *store.Session, q queryir.Select) (any, error) {
	rows, err := t.queryRows(ctx, s, q)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0][0], nil
}

// queryColumn returns the first column of every row.
func (t *Table) queryColumn(ctx context.Context, s *store.Session, q queryir.Select) ([]any, error) {
	rows, err := t.queryRows(ctx, s, q)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(rows))
	for i, raw := range rows {
		out[i] = raw[0]
	}
	return out, nil
}
