package schema

import (
	"github.com/cockroachdb/errors"
)

// Accessor reads and writes one column of a Record.
// Accessors are built once per record type and replace by-name reflection.
type Accessor struct {
	Column Column
	Index  int
	Get    func(r *Record) any
	Set    func(r *Record, v any) error
}

// Meta is the cached result of introspecting a record type.
type Meta struct {
	// Identity is the first primary-key column, or "" when there is none.
	Identity string

	// Temporal is the column time windows filter on, or "" when there is none.
	Temporal string

	accessors map[string]Accessor
}

// HasIdentity reports whether the record type has an identity column.
func (m *Meta) HasIdentity() bool { return m.Identity != "" }

// HasTemporal reports whether the record type has a temporal column.
func (m *Meta) HasTemporal() bool { return m.Temporal != "" }

// Accessor returns the accessor for the named column.
func (m *Meta) Accessor(name string) (Accessor, bool) {
	a, ok := m.accessors[name]
	return a, ok
}

// Column returns the named column.
func (m *Meta) Column(name string) (Column, bool) {
	a, ok := m.accessors[name]
	return a.Column, ok
}

// TemporalColumn returns the temporal column.
func (m *Meta) TemporalColumn() (Column, bool) {
	if m.Temporal == "" {
		return Column{}, false
	}
	return m.Column(m.Temporal)
}

// DiscoverColumns derives the identity and temporal columns from a column
// list. The first primary-key column is the identity; it is also the
// temporal column when it is temporal-typed. Otherwise the temporal column
// is the first temporal-typed column. Either result may be "".
func DiscoverColumns(cols []Column) (identity, temporal string) {
	for _, c := range cols {
		if c.PrimaryKey {
			identity = c.Name
			if c.Type.IsTemporal() {
				temporal = c.Name
			}
			break
		}
	}
	if temporal != "" {
		return identity, temporal
	}
	for _, c := range cols {
		if c.Type.IsTemporal() {
			return identity, c.Name
		}
	}
	return identity, ""
}

// Introspect validates the record type and returns its cached metadata.
// The work happens once; later calls return the first result.
func (rt *RecordType) Introspect() (*Meta, error) {
	rt.once.Do(func() {
		rt.meta, rt.err = rt.introspect()
	})
	return rt.meta, rt.err
}

func (rt *RecordType) introspect() (*Meta, error) {
	if !ValidIdentifier(rt.Table) {
		return nil, errors.Wrapf(ErrInvalidIdentifier, "table %q", rt.Table)
	}
	if len(rt.Columns) == 0 {
		return nil, errors.WithHint(
			errors.Wrapf(ErrNoColumns, "table %q", rt.Table),
			"declare at least one column")
	}

	meta := &Meta{accessors: make(map[string]Accessor, len(rt.Columns))}
	for i, c := range rt.Columns {
		if !ValidIdentifier(c.Name) {
			return nil, errors.Wrapf(ErrInvalidIdentifier, "column %q of %q", c.Name, rt.Table)
		}
		if !c.Type.Valid() {
			return nil, errors.Wrapf(ErrInvalidType, "column %q of %q has type %q", c.Name, rt.Table, c.Type)
		}
		if _, dup := meta.accessors[c.Name]; dup {
			return nil, errors.Newf("table %q declares column %q twice", rt.Table, c.Name)
		}
		meta.accessors[c.Name] = newAccessor(i, c)
	}
	for _, name := range rt.MatchColumns {
		if _, ok := meta.accessors[name]; !ok {
			return nil, errors.Wrapf(ErrUnknownColumn, "match column %q of %q", name, rt.Table)
		}
	}

	meta.Identity, meta.Temporal = DiscoverColumns(rt.Columns)
	return meta, nil
}

func newAccessor(index int, col Column) Accessor {
	return Accessor{
		Column: col,
		Index:  index,
		Get: func(r *Record) any {
			return r.values[index]
		},
		Set: func(r *Record, v any) error {
			coerced, err := Coerce(col.Type, v)
			if err != nil {
				return errors.Wrapf(err, "column %q", col.Name)
			}
			r.values[index] = coerced
			r.assigned[index] = true
			r.dirty[index] = true
			return nil
		},
	}
}
