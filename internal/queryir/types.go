package queryir

// Query is a statement in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
//
// Query types:
//   - Select: read rows or aggregates
//   - Insert: add one row
//   - Update: change the rows matching a filter
//   - CreateView / DropView: idempotent view DDL
type Query interface {
	queryNode()
}

// Source is what a Select reads from: a Table or an aliased Subquery.
type Source interface {
	sourceNode()
}

// Expr is a scalar expression.
type Expr interface {
	exprNode()
}

// Predicate is a filter condition.
//
// Predicate types:
//   - Compare: <left> <op> <right>, with a nil Value on the right turning
//     "=" into IS NULL and "!=" into IS NOT NULL
//   - IsNull: <expr> IS [NOT] NULL
//   - And: all predicates must be true
//
// There is no OR; callers issue separate queries instead.
type Predicate interface {
	predicateNode()
}

// Select reads from a source.
//
// Semantics:
//
//	SELECT [DISTINCT] <items> FROM <from> [JOIN ...] [WHERE <filter>]
//	[GROUP BY <groupBy>] [ORDER BY <orderBy>] [LIMIT <limit>]
//
// Example, the average heart rate of one day ignoring zero readings:
//
//	Select{
//	  Items: []SelectItem{{Expr: Aggregate{Func: Avg, Arg: Col("heart_rate")}}},
//	  From:  Table{Name: "monitoring_hr"},
//	  Filter: And{Predicates: []Predicate{
//	    Compare{Left: Col("timestamp"), Op: Ge, Right: Value{V: "2024-01-01 00:00:00.000000"}},
//	    Compare{Left: Col("timestamp"), Op: Lt, Right: Value{V: "2024-01-02 00:00:00.000000"}},
//	    Compare{Left: Col("heart_rate"), Op: Gt, Right: Value{V: 0}},
//	  }},
//	}
//
// Translates to SQL:
//
//	SELECT AVG(heart_rate) FROM monitoring_hr
//	WHERE timestamp >= ? AND timestamp < ? AND heart_rate > ?
type Select struct {
	Distinct bool
	Items    []SelectItem // empty selects *
	From     Source
	Joins    []Join
	Filter   Predicate // nil = no filter
	GroupBy  []Expr
	OrderBy  []OrderTerm
	Limit    int // 0 = no limit
}

func (Select) queryNode() {}

// Where returns a copy of s with p added to its filter as a conjunct.
func (s Select) Where(p Predicate) Select {
	if p == nil {
		return s
	}
	switch f := s.Filter.(type) {
	case nil:
		s.Filter = p
	case And:
		preds := make([]Predicate, 0, len(f.Predicates)+1)
		preds = append(preds, f.Predicates...)
		s.Filter = And{Predicates: append(preds, p)}
	default:
		s.Filter = And{Predicates: []Predicate{f, p}}
	}
	return s
}

// SelectItem is one output column, optionally aliased.
type SelectItem struct {
	Expr Expr
	As   string
}

// Join is an inner join against another table.
type Join struct {
	Table string
	On    Predicate // required
}

// OrderTerm orders results by an expression.
type OrderTerm struct {
	Expr Expr
	Desc bool
}

// Table is a named relation.
type Table struct {
	Name string
}

func (Table) sourceNode() {}

// Subquery is a nested Select used as a source. Alias is required.
type Subquery struct {
	Query Select
	Alias string
}

func (Subquery) sourceNode() {}

// Insert adds one row.
//
//	INSERT INTO <table> (<columns>) VALUES (<values>)
//
// With no columns it inserts a row of defaults.
type Insert struct {
	Table   string
	Columns []string
	Values  []any
}

func (Insert) queryNode() {}

// Update sets columns on the rows matching Filter.
//
//	UPDATE <table> SET <col> = ?, ... WHERE <filter>
type Update struct {
	Table  string
	Set    []Assignment
	Filter Predicate // required
}

func (Update) queryNode() {}

// Assignment is one "column = value" of an Update.
type Assignment struct {
	Column string
	Value  any
}

// CreateView creates a view if it does not already exist.
type CreateView struct {
	Name  string
	Query Select
}

func (CreateView) queryNode() {}

// DropView drops a view if it exists.
type DropView struct {
	Name string
}

func (DropView) queryNode() {}
