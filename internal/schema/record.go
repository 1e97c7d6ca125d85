package schema

import (
	"bytes"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Values maps column names to values.
type Values map[string]any

// Record is one in-memory row of a record type.
//
// It tracks which columns were assigned (for INSERT), which changed since
// the last persist (for UPDATE), and the values as last persisted (to
// locate the stored row).
type Record struct {
	rt        *RecordType
	meta      *Meta
	values    []any
	assigned  []bool
	dirty     []bool
	persisted []any
}

// NewRecord builds a transient record from values. Keys that do not name a
// column are ignored.
func (rt *RecordType) NewRecord(values Values) (*Record, error) {
	meta, err := rt.Introspect()
	if err != nil {
		return nil, err
	}
	r := rt.blank(meta)
	for _, c := range rt.Columns {
		v, ok := values[c.Name]
		if !ok {
			continue
		}
		a, _ := meta.Accessor(c.Name)
		if err := a.Set(r, v); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Load materializes a persisted record from raw driver values in column
// declaration order.
func (rt *RecordType) Load(raw []any) (*Record, error) {
	meta, err := rt.Introspect()
	if err != nil {
		return nil, err
	}
	if len(raw) != len(rt.Columns) {
		return nil, errors.Newf("load %q: got %d values for %d columns", rt.Table, len(raw), len(rt.Columns))
	}
	r := rt.blank(meta)
	for i, c := range rt.Columns {
		v, err := Decode(c.Type, raw[i])
		if err != nil {
			return nil, errors.Wrapf(err, "load %q column %q", rt.Table, c.Name)
		}
		r.values[i] = v
		r.assigned[i] = true
	}
	r.MarkPersisted()
	return r, nil
}

func (rt *RecordType) blank(meta *Meta) *Record {
	n := len(rt.Columns)
	return &Record{
		rt:       rt,
		meta:     meta,
		values:   make([]any, n),
		assigned: make([]bool, n),
		dirty:    make([]bool, n),
	}
}

// Type returns the record's type.
func (r *Record) Type() *RecordType { return r.rt }

// Get returns the value of the named column.
func (r *Record) Get(name string) (any, error) {
	a, ok := r.meta.Accessor(name)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownColumn, "%q on %q", name, r.rt.Table)
	}
	return a.Get(r), nil
}

// Set assigns the named column, coercing v to the column type.
// Assigning an equal value does not mark the column changed.
func (r *Record) Set(name string, v any) error {
	a, ok := r.meta.Accessor(name)
	if !ok {
		return errors.Wrapf(ErrUnknownColumn, "%q on %q", name, r.rt.Table)
	}
	if r.assigned[a.Index] {
		coerced, err := Coerce(a.Column.Type, v)
		if err != nil {
			return errors.Wrapf(err, "column %q", name)
		}
		if valuesEqual(r.values[a.Index], coerced) {
			return nil
		}
	}
	return a.Set(r, v)
}

// UpdateFromValues merges values into the record.
//
// For each key naming a column, the column is set unless ignoreNone is true
// and the value is nil, or ignoreZero is true and IsZeroValue holds for it.
// Keys that do not name a column are ignored.
func (r *Record) UpdateFromValues(values Values, ignoreNone, ignoreZero bool) error {
	for _, c := range r.rt.Columns {
		v, ok := values[c.Name]
		if !ok {
			continue
		}
		if ignoreNone && v == nil {
			continue
		}
		if ignoreZero && IsZeroValue(v) {
			continue
		}
		if err := r.Set(c.Name, v); err != nil {
			return err
		}
	}
	return nil
}

// Values returns a copy of the record's column values.
func (r *Record) Values() Values {
	out := make(Values, len(r.values))
	for i, c := range r.rt.Columns {
		out[c.Name] = r.values[i]
	}
	return out
}

// Assigned returns the names of columns that hold a value, in declaration order.
func (r *Record) Assigned() []string {
	return r.names(r.assigned)
}

// Dirty returns the names of columns changed since the last persist.
func (r *Record) Dirty() []string {
	return r.names(r.dirty)
}

// Persisted reports whether the record was loaded from or written to the store.
func (r *Record) Persisted() bool {
	return r.persisted != nil
}

// PersistedValue returns the value the named column had when last persisted.
func (r *Record) PersistedValue(name string) (any, error) {
	a, ok := r.meta.Accessor(name)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownColumn, "%q on %q", name, r.rt.Table)
	}
	if r.persisted == nil {
		return nil, nil
	}
	return r.persisted[a.Index], nil
}

// MarkPersisted records the current values as the stored state.
func (r *Record) MarkPersisted() {
	r.persisted = append(r.persisted[:0], r.values...)
	for i := range r.dirty {
		r.dirty[i] = false
	}
}

// String renders the record as <Name() {col: value, ...}> in column
// declaration order.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(r.rt.DisplayName())
	b.WriteString("() {")
	for i, c := range r.rt.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
		b.WriteString(": ")
		b.WriteString(FormatValue(c.Type, r.values[i]))
	}
	b.WriteString("}>")
	return b.String()
}

func (r *Record) names(flags []bool) []string {
	var out []string
	for i, set := range flags {
		if set {
			out = append(out, r.rt.Columns[i].Name)
		}
	}
	return out
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	}
	return a == b
}
