package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/dbobject/internal/schema"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", ev.Seq, ev.Op, ev.Table)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages.
func EvaluateAssertions(ctx context.Context, h *Harness, result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertRowCount:
			err = h.assertRowCount(ctx, a)
		case AssertFinalState:
			err = h.assertFinalState(ctx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertTraceOrder checks that the ops appear in the given order. Other
// steps may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Ops) && ev.Op == a.Ops[next] {
			next++
		}
	}
	if next == len(a.Ops) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(a.Ops, " -> "),
		Actual:   fmt.Sprintf("%q not found after %d matched op(s)", a.Ops[next], next),
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		if ev.Op == a.Op {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s x%d", a.Op, a.Count),
		Actual:   fmt.Sprintf("%s x%d", a.Op, n),
		Trace:    trace,
	}
}

func (h *Harness) assertRowCount(ctx context.Context, a Assertion) error {
	rows, err := h.matching(ctx, a.Table, a.Where)
	if err != nil {
		return err
	}
	if len(rows) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRowCount,
		Expected: fmt.Sprintf("%d row(s) in %s where %v", a.Count, a.Table, a.Where),
		Actual:   fmt.Sprintf("%d row(s)", len(rows)),
	}
}

// assertFinalState checks that exactly one row matches Where and that its
// values include Expect.
func (h *Harness) assertFinalState(ctx context.Context, a Assertion) error {
	rows, err := h.matching(ctx, a.Table, a.Where)
	if err != nil {
		return err
	}
	if len(rows) != 1 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("one row in %s where %v", a.Table, a.Where),
			Actual:   fmt.Sprintf("%d row(s)", len(rows)),
		}
	}

	values := rows[0].Values()
	var mismatches []string
	for _, col := range sortedKeys(a.Expect) {
		got, ok := values[col]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: no such column", col))
			continue
		}
		if want := render(a.Expect[col]); render(got) != want {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %q, got %q", col, want, render(got)))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("%s where %v to have %v", a.Table, a.Where, a.Expect),
		Actual:   strings.Join(mismatches, "; "),
	}
}

// matching returns the rows of table whose rendered values equal where.
func (h *Harness) matching(ctx context.Context, table string, where map[string]any) ([]*schema.Record, error) {
	t, ok := h.tables[table]
	if !ok {
		return nil, fmt.Errorf("table %q is not listed in tables", table)
	}
	all, err := t.All(ctx, nil)
	if err != nil {
		return nil, err
	}

	var out []*schema.Record
	for _, rec := range all {
		values := rec.Values()
		match := true
		for col, want := range where {
			if render(values[col]) != render(want) {
				match = false
				break
			}
		}
		if match {
			out = append(out, rec)
		}
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
