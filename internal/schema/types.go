package schema

import (
	"sync"
)

// ColumnType is the logical type of a column.
type ColumnType string

const (
	Integer  ColumnType = "integer"
	Real     ColumnType = "real"
	Text     ColumnType = "text"
	Boolean  ColumnType = "boolean"
	Blob     ColumnType = "blob"
	Date     ColumnType = "date"
	Time     ColumnType = "time"
	DateTime ColumnType = "datetime"
)

var sqlTypes = map[ColumnType]string{
	Integer:  "INTEGER",
	Real:     "REAL",
	Text:     "TEXT",
	Boolean:  "BOOLEAN",
	Blob:     "BLOB",
	Date:     "DATE",
	Time:     "TIME",
	DateTime: "DATETIME",
}

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	_, ok := sqlTypes[t]
	return ok
}

// IsTemporal reports whether t is a date, time or datetime type.
func (t ColumnType) IsTemporal() bool {
	return t == Date || t == Time || t == DateTime
}

// IsNumeric reports whether values of t are integers or reals.
func (t ColumnType) IsNumeric() bool {
	return t == Integer || t == Real
}

// SQLType returns the SQLite declared type for t.
// The declared type drives the driver's scan conversions, so DATE and
// DATETIME columns come back as time.Time.
func (t ColumnType) SQLType() string {
	return sqlTypes[t]
}

// Column is one column of a record type.
type Column struct {
	Name       string     `json:"name"`
	Type       ColumnType `json:"type"`
	PrimaryKey bool       `json:"primary_key,omitempty"`
}

// RecordType describes one table.
//
// The column list is read-only once Introspect has run; identity and
// temporal detection happen exactly once per RecordType value, so a
// RecordType must always be handled by pointer.
type RecordType struct {
	// Name is the display name used in textual record output.
	// Defaults to Table.
	Name string

	// Table is the relation name in the backing store.
	Table string

	// Columns in declaration order.
	Columns []Column

	// MatchColumns is the logical-identity key used by find-one lookups.
	// Empty means lookups match on the temporal column value.
	MatchColumns []string

	// Views are created alongside the table.
	Views []ViewDef

	// Stats drive the periodic rollups.
	Stats []StatDef

	once sync.Once
	meta *Meta
	err  error
}

// DisplayName returns Name, or Table when Name is empty.
func (rt *RecordType) DisplayName() string {
	if rt.Name != "" {
		return rt.Name
	}
	return rt.Table
}

// ViewDef is a declarative view definition.
//
// Column references are "column" (the owning table) or "table.column".
type ViewDef struct {
	Name    string       `json:"name,omitempty"`
	Select  []ViewColumn `json:"select"`
	Joins   []JoinDef    `json:"joins,omitempty"`
	Where   []FilterDef  `json:"where,omitempty"`
	OrderBy []OrderDef   `json:"order_by,omitempty"`
}

// ViewColumn is one item of a view's selection.
type ViewColumn struct {
	Column string `json:"column"`
	As     string `json:"as,omitempty"`
	// Round rounds the column to the given number of places when set.
	Round *int `json:"round,omitempty"`
}

// JoinDef joins another registered table on column equalities.
type JoinDef struct {
	Table string          `json:"table"`
	On    []JoinCondition `json:"on"`
}

// JoinCondition is a "left = right" column equality.
type JoinCondition struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// FilterDef is a "column op value" filter in a view definition.
type FilterDef struct {
	Column string `json:"column"`
	Op     string `json:"op"`
	Value  any    `json:"value"`
}

// OrderDef orders a view by a column.
type OrderDef struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// StatKind selects how a declared statistic is computed.
type StatKind string

const (
	// StatPlain aggregates the column directly.
	StatPlain StatKind = "plain"
	// StatTimeOfDay aggregates a time column as seconds since midnight.
	StatTimeOfDay StatKind = "time_of_day"
	// StatDailyMax aggregates the per-day maxima of the column.
	StatDailyMax StatKind = "daily_max"
)

// StatDef declares one statistic of a periodic rollup.
type StatDef struct {
	Name         string   `json:"name"`
	Column       string   `json:"column"`
	Fn           string   `json:"fn"`
	Kind         StatKind `json:"kind,omitempty"`
	IgnoreLEZero bool     `json:"ignore_le_zero,omitempty"`
}
