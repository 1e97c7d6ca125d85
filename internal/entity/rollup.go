package entity

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/roach88/dbobject/internal/schema"
	"github.com/roach88/dbobject/internal/store"
)

// Stats is one rollup: statistic name to value.
type Stats map[string]any

// StatsFunc computes the statistics of a window.
type StatsFunc func(ctx context.Context, s *store.Session, w Window) (Stats, error)

// StatsFromDefs returns a StatsFunc computing the declared statistics.
// Definitions are checked up front.
func (t *Table) StatsFromDefs(defs []schema.StatDef) (StatsFunc, error) {
	const op = "stats"
	type stat struct {
		def schema.StatDef
		fn  AggFunc
	}
	stats := make([]stat, 0, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return nil, t.fail(op, KindConfiguration, errors.Newf("statistic on %q has no name", d.Column))
		}
		col, ok := t.meta.Column(d.Column)
		if !ok {
			return nil, t.fail(op, KindConfiguration, errors.Wrapf(schema.ErrUnknownColumn, "statistic %q", d.Name))
		}
		fn, err := ParseAggFunc(d.Fn)
		if err != nil {
			return nil, t.fail(op, KindConfiguration, errors.Wrapf(err, "statistic %q", d.Name))
		}
		switch d.Kind {
		case "", schema.StatPlain:
		case schema.StatTimeOfDay:
			if col.Type != schema.Time {
				return nil, t.fail(op, KindConfiguration, errors.Wrapf(ErrNotTimeOfDay, "statistic %q", d.Name))
			}
			if !valueAgg(fn) {
				return nil, t.fail(op, KindConfiguration, errors.Wrapf(ErrUnsupportedAggregate, "statistic %q", d.Name))
			}
		case schema.StatDailyMax:
			if !t.meta.HasTemporal() {
				return nil, t.fail(op, KindConfiguration, errors.Wrapf(ErrNoTemporalColumn, "statistic %q", d.Name))
			}
			if !valueAgg(fn) {
				return nil, t.fail(op, KindConfiguration, errors.Wrapf(ErrUnsupportedAggregate, "statistic %q", d.Name))
			}
		default:
			return nil, t.fail(op, KindConfiguration, errors.Newf("statistic %q has unknown kind %q", d.Name, d.Kind))
		}
		stats = append(stats, stat{def: d, fn: fn})
	}

	return func(ctx context.Context, s *store.Session, w Window) (Stats, error) {
		out := make(Stats, len(stats))
		for _, st := range stats {
			d := st.def
			switch d.Kind {
			case schema.StatTimeOfDay:
				tod, err := t.TimeOfDay(ctx, s, d.Column, st.fn, w)
				if err != nil {
					return nil, err
				}
				out[d.Name] = tod
			case schema.StatDailyMax:
				var opts []AggOption
				if d.IgnoreLEZero {
					opts = append(opts, IgnoreLEZero())
				}
				res, err := t.AggregateOfDailyMax(ctx, s, d.Column, st.fn, w, opts...)
				if err != nil {
					return nil, err
				}
				out[d.Name] = res.Value()
			default:
				opts := []AggOption{In(w)}
				if d.IgnoreLEZero {
					opts = append(opts, IgnoreLEZero())
				}
				res, err := t.Aggregate(ctx, s, d.Column, st.fn, opts...)
				if err != nil {
					return nil, err
				}
				out[d.Name] = res.Value()
			}
		}
		return out, nil
	}, nil
}

// DeclaredStats returns the StatsFunc for the record type's own statistics.
func (t *Table) DeclaredStats() (StatsFunc, error) {
	return t.StatsFromDefs(t.rt.Stats)
}

// rollup runs fn over w in one session and stamps the period key.
func (t *Table) rollup(ctx context.Context, s *store.Session, op string, fn StatsFunc, w Window, key string, at time.Time) (Stats, error) {
	var out Stats
	err := t.run(ctx, s, op, func(sess *store.Session) error {
		st, err := fn(ctx, sess, w)
		if err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = Stats{}
	}
	out[key] = at
	return out, nil
}

// DailyStats computes fn over the day containing day. The result carries
// the day under "day".
func (t *Table) DailyStats(ctx context.Context, s *store.Session, fn StatsFunc, day time.Time) (Stats, error) {
	w := DayWindow(day)
	return t.rollup(ctx, s, "daily stats", fn, w, "day", w.Start)
}

// WeeklyStats computes fn over the seven days from firstDay. The result
// carries firstDay under "first_day".
func (t *Table) WeeklyStats(ctx context.Context, s *store.Session, fn StatsFunc, firstDay time.Time) (Stats, error) {
	w := WeekWindow(firstDay)
	return t.rollup(ctx, s, "weekly stats", fn, w, "first_day", w.Start)
}

// MonthlyStats computes fn over [firstDay, lastDay).
func (t *Table) MonthlyStats(ctx context.Context, s *store.Session, fn StatsFunc, firstDay, lastDay time.Time) (Stats, error) {
	w := MonthWindow(firstDay, lastDay)
	return t.rollup(ctx, s, "monthly stats", fn, w, "first_day", w.Start)
}

// YearlyStats computes fn over the 365 days from January 1 of year.
func (t *Table) YearlyStats(ctx context.Context, s *store.Session, fn StatsFunc, year int) (Stats, error) {
	w := YearWindow(year)
	return t.rollup(ctx, s, "yearly stats", fn, w, "first_day", w.Start)
}
