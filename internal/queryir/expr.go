package queryir

// Column references a column, optionally qualified by table or alias.
type Column struct {
	Table string
	Name  string
}

func (Column) exprNode() {}

// Col returns an unqualified column reference.
func Col(name string) Column { return Column{Name: name} }

// Star selects every column, optionally of one table.
type Star struct {
	Table string
}

func (Star) exprNode() {}

// Value is a literal value.
type Value struct {
	V any
}

func (Value) exprNode() {}

// AggFunc is an aggregate function.
type AggFunc string

const (
	Sum   AggFunc = "SUM"
	Avg   AggFunc = "AVG"
	Min   AggFunc = "MIN"
	Max   AggFunc = "MAX"
	Count AggFunc = "COUNT"
)

// Valid reports whether f is a known aggregate function.
func (f AggFunc) Valid() bool {
	switch f {
	case Sum, Avg, Min, Max, Count:
		return true
	}
	return false
}

// Aggregate applies an aggregate function. A nil Arg is only valid for
// COUNT and counts rows.
type Aggregate struct {
	Func AggFunc
	Arg  Expr
}

func (Aggregate) exprNode() {}

// Round rounds Arg to Places decimal places.
type Round struct {
	Arg    Expr
	Places int
}

func (Round) exprNode() {}

// SecondsOfDay is the number of seconds between midnight and the
// time-of-day in Arg.
type SecondsOfDay struct {
	Arg Expr
}

func (SecondsOfDay) exprNode() {}

// TimeOfSeconds converts seconds since midnight back to a time-of-day.
type TimeOfSeconds struct {
	Arg Expr
}

func (TimeOfSeconds) exprNode() {}

// DayOfYear is the day-of-year (001-366) of a date or datetime.
// It carries no year, so grouping by it merges equal days across years.
type DayOfYear struct {
	Arg Expr
}

func (DayOfYear) exprNode() {}

// DatePart selects a calendar field for Extract.
type DatePart string

const (
	Year  DatePart = "year"
	Month DatePart = "month"
)

// Extract takes an integer calendar field from a date or datetime.
type Extract struct {
	Part DatePart
	Arg  Expr
}

func (Extract) exprNode() {}

// CompareOp is a comparison operator.
type CompareOp string

const (
	Eq CompareOp = "="
	Ne CompareOp = "!="
	Lt CompareOp = "<"
	Le CompareOp = "<="
	Gt CompareOp = ">"
	Ge CompareOp = ">="
)

// Valid reports whether op is a known operator.
func (op CompareOp) Valid() bool {
	switch op {
	case Eq, Ne, Lt, Le, Gt, Ge:
		return true
	}
	return false
}

// Compare is a binary comparison.
type Compare struct {
	Left  Expr
	Op    CompareOp
	Right Expr
}

func (Compare) predicateNode() {}

// IsNull tests Arg for NULL, or for NOT NULL when Not is set.
type IsNull struct {
	Arg Expr
	Not bool
}

func (IsNull) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Equal compares e with a value; a nil value matches NULL.
func Equal(e Expr, v any) Predicate {
	if v == nil {
		return IsNull{Arg: e}
	}
	return Compare{Left: e, Op: Eq, Right: Value{V: v}}
}

// Cmp compares e with a value using op.
func Cmp(e Expr, op CompareOp, v any) Compare {
	return Compare{Left: e, Op: op, Right: Value{V: v}}
}

// All conjoins the non-nil predicates. It returns nil when none remain and
// the single predicate when only one does.
func All(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return And{Predicates: kept}
}
