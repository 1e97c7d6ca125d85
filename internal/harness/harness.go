package harness

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/dbobject/internal/entity"
	"github.com/roach88/dbobject/internal/schema"
	"github.com/roach88/dbobject/internal/store"
	"github.com/roach88/dbobject/internal/testutil"
)

// Harness executes the steps of one scenario.
type Harness struct {
	store  *store.Store
	tables map[string]*entity.Table
	log    *zap.SugaredLogger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger sets the logger used by the harness and its store.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(h *Harness) { h.log = log }
}

// Run executes a scenario against a fresh in-memory store holding types,
// and returns its result. The error is reserved for failures of the run
// itself; failed expectations are reported in the result.
func Run(ctx context.Context, scenario *Scenario, types []*schema.RecordType, opts ...Option) (*Result, error) {
	h := &Harness{tables: make(map[string]*entity.Table), log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(h)
	}

	st, err := store.Open(":memory:",
		store.WithLogger(h.log),
		store.WithIDGenerator(testutil.SequentialIDs("session-")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create in-memory store")
	}
	defer st.Close()
	h.store = st

	for _, rt := range types {
		if err := st.Register(rt); err != nil {
			return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
		}
	}
	if err := entity.Setup(ctx, st); err != nil {
		return nil, errors.Wrapf(err, "scenario %s: setup", scenario.Name)
	}
	for _, name := range scenario.Tables {
		t, err := entity.Bind(st, name)
		if err != nil {
			return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
		}
		h.tables[name] = t
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.runStep(ctx, i, step, result)
	}

	for _, msg := range EvaluateAssertions(ctx, h, result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.log.Infow("scenario finished", "scenario", scenario.Name, "pass", result.Pass, "steps", len(result.Trace))
	return result, nil
}

// runStep executes one step, records it and checks its expectation.
func (h *Harness) runStep(ctx context.Context, i int, step Step, result *Result) {
	out, err := h.execute(ctx, step)

	ev := TraceEvent{Op: step.Op, Table: step.Table, Column: step.Column}
	if err != nil {
		kind, ok := entity.KindOf(err)
		if !ok {
			kind = "ERROR"
		}
		ev.Error = string(kind)
	} else {
		ev.Result = out
	}
	result.AddTrace(ev)

	where := fmt.Sprintf("steps[%d] %s %s", i, step.Op, step.Table)
	switch {
	case step.Expect != nil && step.Expect.Error != "":
		if ev.Error != step.Expect.Error {
			result.AddError(fmt.Sprintf("%s: expected %s error, got %q (%v)", where, step.Expect.Error, ev.Error, err))
		}
	case err != nil:
		result.AddError(fmt.Sprintf("%s: %v", where, err))
	case step.Expect != nil && step.Expect.Result != nil:
		if want := render(step.Expect.Result); want != out {
			result.AddError(fmt.Sprintf("%s: expected result %q, got %q", where, want, out))
		}
	}
}

func (h *Harness) execute(ctx context.Context, step Step) (string, error) {
	t := h.tables[step.Table]

	w, err := parseWindow(step.Window)
	if err != nil {
		return "", err
	}

	switch step.Op {
	case OpInsert:
		for _, row := range step.Rows {
			rec, err := t.NewRecord(row)
			if err != nil {
				return "", err
			}
			if err := t.Insert(ctx, nil, rec); err != nil {
				return "", err
			}
		}
		return fmt.Sprintf("inserted %d", len(step.Rows)), nil

	case OpCreateOrUpdate, OpInsertOrUpdate:
		opts := []entity.UpsertOption{entity.IgnoreZero(step.IgnoreZero)}
		if step.IgnoreNone != nil {
			opts = append(opts, entity.IgnoreNone(*step.IgnoreNone))
		}
		for _, row := range step.Rows {
			var err error
			if step.Op == OpCreateOrUpdate {
				_, err = t.CreateOrUpdate(ctx, nil, row, opts...)
			} else {
				_, err = t.InsertOrUpdate(ctx, nil, row, opts...)
			}
			if err != nil {
				return "", err
			}
		}
		return fmt.Sprintf("upserted %d", len(step.Rows)), nil

	case OpFindOrCreate:
		created := 0
		for _, row := range step.Rows {
			_, isNew, err := t.FindOrCreate(ctx, nil, row)
			if err != nil {
				return "", err
			}
			if isNew {
				created++
			}
		}
		return fmt.Sprintf("created %d of %d", created, len(step.Rows)), nil

	case OpFindOne:
		rec, err := t.FindOne(ctx, nil, step.Values)
		if err != nil {
			return "", err
		}
		if rec == nil {
			return "null", nil
		}
		return rec.String(), nil

	case OpAggregate:
		fn, err := entity.ParseAggFunc(step.Fn)
		if err != nil {
			return "", err
		}
		opts := []entity.AggOption{entity.In(w)}
		if step.IgnoreLEZero {
			opts = append(opts, entity.IgnoreLEZero())
		}
		res, err := t.Aggregate(ctx, nil, step.Column, fn, opts...)
		if err != nil {
			return "", err
		}
		return render(res.Value()), nil

	case OpTimeOfDay:
		fn, err := entity.ParseAggFunc(step.Fn)
		if err != nil {
			return "", err
		}
		tod, err := t.TimeOfDay(ctx, nil, step.Column, fn, w)
		if err != nil {
			return "", err
		}
		return render(tod), nil

	case OpDailyMax:
		fn, err := entity.ParseAggFunc(step.Fn)
		if err != nil {
			return "", err
		}
		var opts []entity.AggOption
		if step.IgnoreLEZero {
			opts = append(opts, entity.IgnoreLEZero())
		}
		res, err := t.AggregateOfDailyMax(ctx, nil, step.Column, fn, w, opts...)
		if err != nil {
			return "", err
		}
		return render(res.Value()), nil

	case OpRowCount:
		n, err := t.RowCount(ctx, nil, entity.In(w))
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil

	case OpLatest:
		res, err := t.Latest(ctx, nil, step.Column, step.IgnoreLEZero)
		if err != nil {
			return "", err
		}
		return render(res.Value()), nil

	case OpStats:
		stats, err := h.stats(ctx, t, step)
		if err != nil {
			return "", err
		}
		return render(stats), nil

	case OpCreateViews:
		if err := t.CreateDeclaredViews(ctx, nil); err != nil {
			return "", err
		}
		return "ok", nil

	case OpDeleteViews:
		if err := t.DeleteDeclaredViews(ctx, nil); err != nil {
			return "", err
		}
		return "ok", nil
	}
	return "", errors.Newf("unknown op %q", step.Op)
}

// stats computes the declared statistics of a table for one period.
func (h *Harness) stats(ctx context.Context, t *entity.Table, step Step) (entity.Stats, error) {
	fn, err := t.DeclaredStats()
	if err != nil {
		return nil, err
	}
	day, err := schema.ParseTemporal(schema.Date, step.Date)
	if err != nil {
		return nil, errors.Wrapf(err, "date %q", step.Date)
	}
	switch step.Period {
	case "day":
		return t.DailyStats(ctx, nil, fn, day)
	case "week":
		return t.WeeklyStats(ctx, nil, fn, day)
	case "month":
		return t.MonthlyStats(ctx, nil, fn, day, day.AddDate(0, 1, 0))
	case "year":
		return t.YearlyStats(ctx, nil, fn, day.Year())
	}
	return nil, errors.Newf("unknown period %q", step.Period)
}

func parseWindow(ws *WindowSpec) (entity.Window, error) {
	var w entity.Window
	if ws == nil {
		return w, nil
	}
	if ws.Start != "" {
		start, err := schema.ParseTemporal(schema.DateTime, ws.Start)
		if err != nil {
			return w, errors.Wrapf(err, "window start %q", ws.Start)
		}
		w.Start = start
	}
	if ws.End != "" {
		end, err := schema.ParseTemporal(schema.DateTime, ws.End)
		if err != nil {
			return w, errors.Wrapf(err, "window end %q", ws.End)
		}
		w.End = end
	}
	return w, nil
}

// render formats step results and expected values the same way, so that
// YAML scalars compare against query results.
func render(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case time.Time:
		switch {
		case x.Year() == 0:
			return x.Format("15:04:05")
		case x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0:
			return x.Format(schema.DateLayout)
		}
		return x.Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []byte:
		return fmt.Sprintf("x'%x'", x)
	case entity.Stats:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + render(x[k])
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}
