package entity

import (
	"time"

	"github.com/roach88/dbobject/internal/queryir"
	"github.com/roach88/dbobject/internal/schema"
)

// Window is a half-open time range [Start, End). A zero bound is open.
type Window struct {
	Start time.Time
	End   time.Time
}

// Between returns the window [start, end).
func Between(start, end time.Time) Window { return Window{Start: start, End: end} }

// Since returns the window [start, +inf).
func Since(start time.Time) Window { return Window{Start: start} }

// Until returns the window (-inf, end).
func Until(end time.Time) Window { return Window{End: end} }

// DayWindow returns the calendar day containing day.
func DayWindow(day time.Time) Window {
	d := startOfDay(day)
	return Window{Start: d, End: d.AddDate(0, 0, 1)}
}

// WeekWindow returns the seven days starting at firstDay.
func WeekWindow(firstDay time.Time) Window {
	d := startOfDay(firstDay)
	return Window{Start: d, End: d.AddDate(0, 0, 7)}
}

// MonthWindow returns [firstDay, lastDay). The last day is excluded.
func MonthWindow(firstDay, lastDay time.Time) Window {
	return Window{Start: startOfDay(firstDay), End: startOfDay(lastDay)}
}

// CalendarMonth returns the whole calendar month.
func CalendarMonth(year int, month time.Month) Window {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: first, End: first.AddDate(0, 1, 0)}
}

// YearWindow returns the 365 days starting January 1 of year. In a leap
// year December 31 falls outside the window.
func YearWindow(year int) Window {
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: first, End: first.AddDate(0, 0, 365)}
}

// Bounded reports whether either bound is set.
func (w Window) Bounded() bool { return !w.Start.IsZero() || !w.End.IsZero() }

// Closed reports whether both bounds are set.
func (w Window) Closed() bool { return !w.Start.IsZero() && !w.End.IsZero() }

// Contains reports whether t lies in the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

func (w Window) String() string {
	bound := func(t time.Time, open string) string {
		if t.IsZero() {
			return open
		}
		return t.Format(schema.DateTimeLayout)
	}
	return "[" + bound(w.Start, "-inf") + ", " + bound(w.End, "+inf") + ")"
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// bound adapts a window bound to the temporal column. A date column holds
// whole days, so a bound inside a day moves to the next midnight: the first
// day starting at or after the bound.
func bound(col schema.Column, b time.Time) time.Time {
	if col.Type != schema.Date {
		return b
	}
	if sod := startOfDay(b); !sod.Equal(b) {
		return sod.AddDate(0, 0, 1)
	}
	return b
}

// During returns the predicate restricting rows to w, or nil when w is
// unbounded. The record type needs a temporal column only when w is
// bounded.
func (t *Table) During(w Window) (queryir.Predicate, error) {
	if !w.Bounded() {
		return nil, nil
	}
	const op = "during"
	col, err := t.temporal(op)
	if err != nil {
		return nil, err
	}

	ref := queryir.Col(col.Name)
	var preds []queryir.Predicate
	if !w.Start.IsZero() {
		v, err := t.encode(op, col, bound(col, w.Start))
		if err != nil {
			return nil, err
		}
		preds = append(preds, queryir.Cmp(ref, queryir.Ge, v))
	}
	if !w.End.IsZero() {
		v, err := t.encode(op, col, bound(col, w.End))
		if err != nil {
			return nil, err
		}
		preds = append(preds, queryir.Cmp(ref, queryir.Lt, v))
	}
	return queryir.All(preds...), nil
}

// InWindow evaluates the window against an in-memory record. A record with
// no temporal value is outside every bounded window.
func (t *Table) InWindow(rec *schema.Record, w Window) (bool, error) {
	const op = "in window"
	if rec.Type() != t.rt {
		return false, t.fail(op, KindPrecondition, ErrForeignRecord)
	}
	if !w.Bounded() {
		return true, nil
	}
	col, err := t.temporal(op)
	if err != nil {
		return false, err
	}
	v, _ := rec.Get(col.Name)
	tm, ok := v.(time.Time)
	if !ok {
		return false, nil
	}

	// Bounds go through the same normalization as stored values.
	norm := Window{}
	if !w.Start.IsZero() {
		s, err := schema.Coerce(col.Type, bound(col, w.Start))
		if err != nil {
			return false, t.fail(op, KindPrecondition, err)
		}
		norm.Start = s.(time.Time)
	}
	if !w.End.IsZero() {
		e, err := schema.Coerce(col.Type, bound(col, w.End))
		if err != nil {
			return false, t.fail(op, KindPrecondition, err)
		}
		norm.End = e.(time.Time)
	}
	return norm.Contains(tm), nil
}
