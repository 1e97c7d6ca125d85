package entity

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/roach88/dbobject/internal/queryir"
	"github.com/roach88/dbobject/internal/schema"
	"github.com/roach88/dbobject/internal/store"
)

// AggFunc is an aggregate function.
type AggFunc = queryir.AggFunc

const (
	Sum   = queryir.Sum
	Avg   = queryir.Avg
	Min   = queryir.Min
	Max   = queryir.Max
	Count = queryir.Count
)

// ParseAggFunc parses a function name such as "avg" or "MAX".
func ParseAggFunc(name string) (AggFunc, error) {
	fn := AggFunc(strings.ToUpper(strings.TrimSpace(name)))
	if !fn.Valid() {
		return "", errors.Wrapf(ErrUnsupportedAggregate, "%q", name)
	}
	return fn, nil
}

// Scalar is the result of an aggregate. It is invalid (NULL) when no rows
// contributed.
type Scalar struct {
	v any
}

// Valid reports whether the aggregate produced a value.
func (s Scalar) Valid() bool { return s.v != nil }

// Value returns the raw value: int64, float64, string, time.Time or nil.
func (s Scalar) Value() any { return s.v }

// Float64 returns the value as a float64.
func (s Scalar) Float64() (float64, bool) {
	switch n := s.v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Int64 returns the value as an int64. Fractional floats are not integers.
func (s Scalar) Int64() (int64, bool) {
	switch n := s.v.(type) {
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return 0, false
}

// Time returns the value as a time.Time.
func (s Scalar) Time() (time.Time, bool) {
	tm, ok := s.v.(time.Time)
	return tm, ok
}

func (s Scalar) String() string {
	switch v := s.v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.Format(schema.DateTimeLayout)
	case string:
		return v
	}
	return "?"
}

type filterSpec struct {
	column string
	op     queryir.CompareOp
	value  any
}

type aggConfig struct {
	window       Window
	ignoreLEZero bool
	filters      []filterSpec
}

// AggOption narrows the rows an aggregate or column query sees.
type AggOption func(*aggConfig)

// In restricts rows to the window.
func In(w Window) AggOption {
	return func(c *aggConfig) { c.window = w }
}

// IgnoreLEZero drops rows whose aggregated column is <= 0.
func IgnoreLEZero() AggOption {
	return func(c *aggConfig) { c.ignoreLEZero = true }
}

// ForValue keeps rows where column equals v. A nil v matches NULL.
func ForValue(column string, v any) AggOption {
	return func(c *aggConfig) { c.filters = append(c.filters, filterSpec{column, queryir.Eq, v}) }
}

// GreaterThan keeps rows where column > v.
func GreaterThan(column string, v any) AggOption {
	return func(c *aggConfig) { c.filters = append(c.filters, filterSpec{column, queryir.Gt, v}) }
}

// LessThan keeps rows where column < v.
func LessThan(column string, v any) AggOption {
	return func(c *aggConfig) { c.filters = append(c.filters, filterSpec{column, queryir.Lt, v}) }
}

func newAggConfig(opts []AggOption) aggConfig {
	var c aggConfig
	for _, o := range opts {
		o(&c)
	}
	return c
}

// filtered applies the window, then positivity on positive, then the
// value filters.
func (t *Table) filtered(op string, q queryir.Select, cfg aggConfig, positive queryir.Expr) (queryir.Select, error) {
	during, err := t.During(cfg.window)
	if err != nil {
		return queryir.Select{}, err
	}
	q = q.Where(during)

	if cfg.ignoreLEZero && positive != nil {
		q = q.Where(queryir.Cmp(positive, queryir.Gt, int64(0)))
	}

	for _, f := range cfg.filters {
		col, err := t.column(op, f.column)
		if err != nil {
			return queryir.Select{}, err
		}
		v, err := t.encode(op, col, f.value)
		if err != nil {
			return queryir.Select{}, err
		}
		ref := queryir.Col(col.Name)
		switch {
		case f.op == queryir.Eq:
			q = q.Where(queryir.Equal(ref, v))
		case v == nil:
			return queryir.Select{}, t.fail(op, KindPrecondition,
				errors.Newf("cannot compare %q %s NULL", col.Name, f.op))
		default:
			q = q.Where(queryir.Cmp(ref, f.op, v))
		}
	}
	return q, nil
}

func (t *Table) scalar(ctx context.Context, s *store.Session, op string, q queryir.Select, decode schema.ColumnType) (Scalar, error) {
	var out Scalar
	err := t.run(ctx, s, op, func(sess *store.Session) error {
		v, err := t.queryScalar(ctx, sess, q)
		if err != nil || v == nil {
			return err
		}
		if decode != "" {
			if v, err = schema.Decode(decode, v); err != nil {
				return err
			}
		}
		out = Scalar{v: v}
		return nil
	})
	return out, err
}

// Aggregate computes fn over column for the rows selected by opts.
//
// MIN and MAX results take the column's type; SUM, AVG and COUNT are
// returned as the store computes them.
func (t *Table) Aggregate(ctx context.Context, s *store.Session, column string, fn AggFunc, opts ...AggOption) (Scalar, error) {
	const op = "aggregate"
	col, err := t.column(op, column)
	if err != nil {
		return Scalar{}, err
	}
	if !fn.Valid() {
		return Scalar{}, t.fail(op, KindPrecondition, errors.Wrapf(ErrUnsupportedAggregate, "%q", fn))
	}

	ref := queryir.Col(col.Name)
	q := queryir.Select{
		Items: []queryir.SelectItem{{Expr: queryir.Aggregate{Func: fn, Arg: ref}}},
		From:  t.from(),
	}
	q, err = t.filtered(op, q, newAggConfig(opts), ref)
	if err != nil {
		return Scalar{}, err
	}

	var decode schema.ColumnType
	if fn == Min || fn == Max {
		decode = col.Type
	}
	return t.scalar(ctx, s, op, q, decode)
}

// Distinct returns the distinct values of column in w, in ascending order.
func (t *Table) Distinct(ctx context.Context, s *store.Session, column string, w Window) ([]any, error) {
	const op = "distinct"
	col, err := t.column(op, column)
	if err != nil {
		return nil, err
	}
	ref := queryir.Col(col.Name)
	q, err := t.Query(QueryOptions{
		Items:   []queryir.SelectItem{{Expr: ref}},
		Window:  w,
		OrderBy: []queryir.OrderTerm{{Expr: ref}},
	})
	if err != nil {
		return nil, err
	}
	q.Distinct = true

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

// TimeOfDay aggregates a time column as seconds since midnight and
// converts the result back to a time-of-day. Rows at exactly midnight are
// excluded; with no rows the result is schema.Midnight.
func (t *Table) TimeOfDay(ctx context.Context, s *store.Session, column string, fn AggFunc, w Window) (time.Time, error) {
	const op = "time of day"
	col, err := t.column(op, column)
	if err != nil {
		return time.Time{}, err
	}
	if col.Type != schema.Time {
		return time.Time{}, t.fail(op, KindPrecondition, errors.Wrapf(ErrNotTimeOfDay, "%q is %s", col.Name, col.Type))
	}
	if !valueAgg(fn) {
		return time.Time{}, t.fail(op, KindPrecondition, errors.Wrapf(ErrUnsupportedAggregate, "%q", fn))
	}

	secs := queryir.SecondsOfDay{Arg: queryir.Col(col.Name)}
	q := queryir.Select{
		Items: []queryir.SelectItem{{Expr: queryir.TimeOfSeconds{Arg: queryir.Aggregate{Func: fn, Arg: secs}}}},
		From:  t.from(),
	}
	q, err = t.filtered(op, q, aggConfig{window: w, ignoreLEZero: true}, secs)
	if err != nil {
		return time.Time{}, err
	}

	res, err := t.scalar(ctx, s, op, q, schema.Time)
	if err != nil {
		return time.Time{}, err
	}
	if tm, ok := res.Time(); ok {
		return tm, nil
	}
	return schema.Midnight, nil
}

// AggregateOfDailyMax computes fn over the per-day maxima of column.
// Both window bounds are required. Days are grouped by day-of-year, so
// equal days of different years share a group.
func (t *Table) AggregateOfDailyMax(ctx context.Context, s *store.Session, column string, fn AggFunc, w Window, opts ...AggOption) (Scalar, error) {
	const op = "aggregate of daily max"
	if !w.Closed() {
		return Scalar{}, t.fail(op, KindPrecondition, ErrOpenWindow)
	}
	col, err := t.column(op, column)
	if err != nil {
		return Scalar{}, err
	}
	tc, err := t.temporal(op)
	if err != nil {
		return Scalar{}, err
	}
	if !valueAgg(fn) {
		return Scalar{}, t.fail(op, KindPrecondition, errors.Wrapf(ErrUnsupportedAggregate, "%q", fn))
	}

	cfg := newAggConfig(opts)
	cfg.window = w
	inner := queryir.Select{
		Items: []queryir.SelectItem{{
			Expr: queryir.Aggregate{Func: Max, Arg: queryir.Col(col.Name)},
			As:   "maxes",
		}},
		From:    t.from(),
		GroupBy: []queryir.Expr{queryir.DayOfYear{Arg: queryir.Col(tc.Name)}},
	}
	inner, err = t.filtered(op, inner, cfg, queryir.Col(col.Name))
	if err != nil {
		return Scalar{}, err
	}

	outer := queryir.Select{
		Items: []queryir.SelectItem{{Expr: queryir.Aggregate{Func: fn, Arg: queryir.Col("maxes")}}},
		From:  queryir.Subquery{Query: inner, Alias: "daily"},
	}
	var decode schema.ColumnType
	if fn == Min || fn == Max {
		decode = col.Type
	}
	return t.scalar(ctx, s, op, outer, decode)
}

func valueAgg(fn AggFunc) bool {
	switch fn {
	case Sum, Avg, Min, Max:
		return true
	}
	return false
}

// RowCount counts the rows selected by opts.
func (t *Table) RowCount(ctx context.Context, s *store.Session, opts ...AggOption) (int64, error) {
	const op = "row count"
	q := queryir.Select{
		Items: []queryir.SelectItem{{Expr: queryir.Aggregate{Func: Count}}},
		From:  t.from(),
	}
	q, err := t.filtered(op, q, newAggConfig(opts), nil)
	if err != nil {
		return 0, err
	}
	res, err := t.scalar(ctx, s, op, q, "")
	if err != nil {
		return 0, err
	}
	n, _ := res.Int64()
	return n, nil
}

// RowCountForPeriod counts the rows in w.
func (t *Table) RowCountForPeriod(ctx context.Context, s *store.Session, w Window) (int64, error) {
	return t.RowCount(ctx, s, In(w))
}

// RowCountForDay counts the rows of the calendar day containing day.
func (t *Table) RowCountForDay(ctx context.Context, s *store.Session, day time.Time) (int64, error) {
	return t.RowCount(ctx, s, In(DayWindow(day)))
}

// Latest returns column from the row with the greatest temporal value.
// With ignoreLEZero, rows whose column is <= 0 (or midnight, for time
// columns) are skipped.
func (t *Table) Latest(ctx context.Context, s *store.Session, column string, ignoreLEZero bool) (Scalar, error) {
	const op = "latest"
	col, err := t.column(op, column)
	if err != nil {
		return Scalar{}, err
	}
	tc, err := t.temporal(op)
	if err != nil {
		return Scalar{}, err
	}

	var positive queryir.Expr = queryir.Col(col.Name)
	if col.Type == schema.Time {
		positive = queryir.SecondsOfDay{Arg: queryir.Col(col.Name)}
	}
	q := queryir.Select{
		Items:   []queryir.SelectItem{{Expr: queryir.Col(col.Name)}},
		From:    t.from(),
		OrderBy: []queryir.OrderTerm{{Expr: queryir.Col(tc.Name), Desc: true}},
		Limit:   1,
	}
	q, err = t.filtered(op, q, aggConfig{ignoreLEZero: ignoreLEZero}, positive)
	if err != nil {
		return Scalar{}, err
	}
	return t.scalar(ctx, s, op, q, col.Type)
}

// LatestTime returns the greatest temporal value. When notZero names a
// column, only rows where it is > 0 count.
func (t *Table) LatestTime(ctx context.Context, s *store.Session, notZero string) (Scalar, error) {
	const op = "latest time"
	tc, err := t.temporal(op)
	if err != nil {
		return Scalar{}, err
	}
	q := queryir.Select{
		Items: []queryir.SelectItem{{Expr: queryir.Aggregate{Func: Max, Arg: queryir.Col(tc.Name)}}},
		From:  t.from(),
	}
	if notZero != "" {
		col, err := t.column(op, notZero)
		if err != nil {
			return Scalar{}, err
		}
		q = q.Where(queryir.Cmp(queryir.Col(col.Name), queryir.Gt, int64(0)))
	}
	return t.scalar(ctx, s, op, q, tc.Type)
}

// Years returns the distinct years present, ascending.
func (t *Table) Years(ctx context.Context, s *store.Session) ([]int, error) {
	const op = "years"
	tc, err := t.temporal(op)
	if err != nil {
		return nil, err
	}
	year := queryir.Extract{Part: queryir.Year, Arg: queryir.Col(tc.Name)}
	q := queryir.Select{
		Distinct: true,
		Items:    []queryir.SelectItem{{Expr: year}},
		From:     t.from(),
		Filter:   queryir.IsNull{Arg: queryir.Col(tc.Name), Not: true},
		OrderBy:  []queryir.OrderTerm{{Expr: year}},
	}
	return t.ints(ctx, s, op, q)
}

// Months returns the distinct months (1-12) present in year, ascending.
func (t *Table) Months(ctx context.Context, s *store.Session, year int) ([]int, error) {
	const op = "months"
	tc, err := t.temporal(op)
	if err != nil {
		return nil, err
	}
	ref := queryir.Col(tc.Name)
	month := queryir.Extract{Part: queryir.Month, Arg: ref}
	q := queryir.Select{
		Distinct: true,
		Items:    []queryir.SelectItem{{Expr: month}},
		From:     t.from(),
		Filter:   queryir.Cmp(queryir.Extract{Part: queryir.Year, Arg: ref}, queryir.Eq, int64(year)),
		OrderBy:  []queryir.OrderTerm{{Expr: month}},
	}
	return t.ints(ctx, s, op, q)
}

// MonthNames returns the abbreviated names ("Jan") of the months present
// in year.
func (t *Table) MonthNames(ctx context.Context, s *store.Session, year int) ([]string, error) {
	months, err := t.Months(ctx, s, year)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(months))
	for i, m := range months {
		names[i] = time.Month(m).String()[:3]
	}
	return names, nil
}

// Days returns the distinct days-of-year (1-366) present in year, ascending.
func (t *Table) Days(ctx context.Context, s *store.Session, year int) ([]int, error) {
	const op = "days"
	tc, err := t.temporal(op)
	if err != nil {
		return nil, err
	}
	ref := queryir.Col(tc.Name)
	q := queryir.Select{
		Distinct: true,
		Items:    []queryir.SelectItem{{Expr: queryir.DayOfYear{Arg: ref}}},
		From:     t.from(),
		Filter:   queryir.Cmp(queryir.Extract{Part: queryir.Year, Arg: ref}, queryir.Eq, int64(year)),
	}
	return t.ints(ctx, s, op, q)
}

func (t *Table) ints(ctx context.Context, s *store.Session, op string, q queryir.Select) ([]int, error) {
	var out []int
	err := t.run(ctx, s, op, func(sess *store.Session) error {
		raw, err := t.queryColumn(ctx, sess, q)
		if err != nil {
			return err
		}
		for _, v := range raw {
			n, err := schema.Decode(schema.Integer, v)
			if err != nil {
				return err
			}
			out = append(out, int(n.(int64)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Ints(out)
	return out, nil
}
