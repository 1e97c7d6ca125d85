package entity

import (
	"context"
	"time"

	"github.com/roach88/dbobject/internal/queryir"
	"github.com/roach88/dbobject/internal/schema"
	"github.com/roach88/dbobject/internal/store"
)

// QueryOptions describes a composable query against one table.
type QueryOptions struct {
	// Items to select. Empty selects every column.
	Items []queryir.SelectItem

	// Window restricts rows by the temporal column.
	Window Window

	// OrderBy is applied last.
	OrderBy []queryir.OrderTerm

	// Positive, when set, keeps only rows where the expression is > 0.
	Positive queryir.Expr
}

// Query builds a selection from opts. Rules apply in a fixed order:
// window, positivity, ordering.
func (t *Table) Query(opts QueryOptions) (queryir.Select, error) {
	q := queryir.Select{Items: opts.Items, From: t.from()}
	if len(q.Items) == 0 {
		q.Items = t.recordItems()
	}

	during, err := t.During(opts.Window)
	if err != nil {
		return queryir.Select{}, err
	}
	q = q.Where(during)

	if opts.Positive != nil {
		q = q.Where(queryir.Cmp(opts.Positive, queryir.Gt, int64(0)))
	}

	q.OrderBy = opts.OrderBy
	return q, nil
}

// All returns every row.
func (t *Table) All(ctx context.Context, s *store.Session) ([]*schema.Record, error) {
	const op = "all"
	q, err := t.Query(QueryOptions{})
	if err != nil {
		return nil, err
	}

	var recs []*schema.Record
	err = t.run(ctx, s, op, func(sess *store.Session) error {
		recs, err = t.queryRecords(ctx, sess, q)
		return err
	})
	return recs, err
}

// ForPeriod returns the rows in w ordered by the temporal column. When
// notNull names a column, rows where it is NULL are skipped.
func (t *Table) ForPeriod(ctx context.Context, s *store.Session, w Window, notNull string) ([]*schema.Record, error) {
	const op = "for period"
	col, err := t.temporal(op)
	if err != nil {
		return nil, err
	}
	q, err := t.Query(QueryOptions{
		Window:  w,
		OrderBy: []queryir.OrderTerm{{Expr: queryir.Col(col.Name)}},
	})
	if err != nil {
		return nil, err
	}
	if notNull != "" {
		nn, err := t.column(op, notNull)
		if err != nil {
			return nil, err
		}
		q = q.Where(queryir.IsNull{Arg: queryir.Col(nn.Name), Not: true})
	}

	var recs []*schema.Record
	err = t.run(ctx, s, op, func(sess *store.Session) error {
		recs, err = t.queryRecords(ctx, sess, q)
		return err
	})
	return recs, err
}

// ForDay returns the rows of the calendar day containing day.
func (t *Table) ForDay(ctx context.Context, s *store.Session, day time.Time, notNull string) ([]*schema.Record, error) {
	return t.ForPeriod(ctx, s, DayWindow(day), notNull)
}

// ColumnValues returns the values of one column for the rows selected by
// opts, ordered by the temporal column when there is one.
func (t *Table) ColumnValues(ctx context.Context, s *store.Session, column string, opts ...AggOption) ([]any, error) {
	const op = "column values"
	col, err := t.column(op, column)
	if err != nil {
		return nil, err
	}

	q := queryir.Select{
		Items: []queryir.SelectItem{{Expr: queryir.Col(col.Name)}},
		From:  t.from(),
	}
	q, err = t.filtered(op, q, newAggConfig(opts), queryir.Col(col.Name))
	if err != nil {
		return nil, err
	}
	if tc, ok := t.meta.TemporalColumn(); ok {
		q.OrderBy = []queryir.OrderTerm{{Expr: queryir.Col(tc.Name)}}
	}

	var out []any
	err = t.run(ctx, s, op, func(sess *store.Session) error {
		raw, err := t.queryColumn(ctx, sess, q)
		if err != nil {
			return err
		}
		out, err = decodeAll(col.Type, raw)
		return err
	})
	return out, err
}

func decodeAll(ct schema.ColumnType, raw []any) ([]any, error) {
	out := make([]any, len(raw))
	for i, v := range raw {
		d, err := schema.Decode(ct, v)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}
