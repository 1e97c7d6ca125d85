package queryir

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationResult lists the structural problems found in a query.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each violation, in traversal order.
	Problems []string
}

// Err returns nil for a valid result and an error listing every problem
// otherwise.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return errors.Newf("invalid query: %s", strings.Join(r.Problems, "; "))
}

// Validate checks a query for problems a backend cannot compile:
//
//  1. identifiers (tables, columns, aliases, views) must be plain names
//  2. Select needs a source; subqueries need an alias
//  3. joins need an ON predicate
//  4. only COUNT may omit its argument; aggregate functions and
//     comparison operators must be known
//  5. Update needs a filter; Insert needs one value per column
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{}
	v.validateQuery(query)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) ident(kind, name string) {
	if !identPattern.MatchString(name) {
		v.addProblem("invalid %s name %q", kind, name)
	}
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Insert:
		v.validateInsert(query)
	case *Insert:
		v.validateInsert(*query)
	case Update:
		v.validateUpdate(query)
	case *Update:
		v.validateUpdate(*query)
	case CreateView:
		v.ident("view", query.Name)
		v.validateSelect(query.Query)
	case *CreateView:
		v.ident("view", query.Name)
		v.validateSelect(query.Query)
	case DropView:
		v.ident("view", query.Name)
	case *DropView:
		v.ident("view", query.Name)
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	switch src := sel.From.(type) {
	case nil:
		v.addProblem("select without source")
	case Table:
		v.ident("table", src.Name)
	case Subquery:
		if src.Alias == "" {
			v.addProblem("subquery without alias")
		} else {
			v.ident("alias", src.Alias)
		}
		v.validateSelect(src.Query)
	default:
		v.addProblem("unknown source type %T", sel.From)
	}

	for _, item := range sel.Items {
		v.validateExpr(item.Expr)
		if item.As != "" {
			v.ident("alias", item.As)
		}
	}
	for _, j := range sel.Joins {
		v.ident("table", j.Table)
		if j.On == nil {
			v.addProblem("join %q without ON predicate", j.Table)
			continue
		}
		v.validatePredicate(j.On)
	}
	v.validatePredicate(sel.Filter)
	for _, g := range sel.GroupBy {
		v.validateExpr(g)
	}
	for _, o := range sel.OrderBy {
		v.validateExpr(o.Expr)
	}
	if sel.Limit < 0 {
		v.addProblem("negative limit %d", sel.Limit)
	}
}

func (v *validator) validateInsert(ins Insert) {
	v.ident("table", ins.Table)
	for _, c := range ins.Columns {
		v.ident("column", c)
	}
	if len(ins.Columns) != len(ins.Values) {
		v.addProblem("insert into %q has %d columns and %d values", ins.Table, len(ins.Columns), len(ins.Values))
	}
}

func (v *validator) validateUpdate(up Update) {
	v.ident("table", up.Table)
	if len(up.Set) == 0 {
		v.addProblem("update of %q sets no columns", up.Table)
	}
	for _, a := range up.Set {
		v.ident("column", a.Column)
	}
	if up.Filter == nil {
		v.addProblem("update of %q without filter", up.Table)
		return
	}
	v.validatePredicate(up.Filter)
}

func (v *validator) validateExpr(e Expr) {
	switch expr := e.(type) {
	case nil:
		v.addProblem("nil expression")
	case Column:
		if expr.Table != "" {
			v.ident("table", expr.Table)
		}
		v.ident("column", expr.Name)
	case Star:
		if expr.Table != "" {
			v.ident("table", expr.Table)
		}
	case Value:
	case Aggregate:
		if !expr.Func.Valid() {
			v.addProblem("unknown aggregate %q", expr.Func)
		}
		if expr.Arg == nil {
			if expr.Func != Count {
				v.addProblem("%s without argument", expr.Func)
			}
			return
		}
		v.validateExpr(expr.Arg)
	case Round:
		if expr.Places < 0 {
			v.addProblem("negative rounding places %d", expr.Places)
		}
		v.validateExpr(expr.Arg)
	case SecondsOfDay:
		v.validateExpr(expr.Arg)
	case TimeOfSeconds:
		v.validateExpr(expr.Arg)
	case DayOfYear:
		v.validateExpr(expr.Arg)
	case Extract:
		if expr.Part != Year && expr.Part != Month {
			v.addProblem("unknown date part %q", expr.Part)
		}
		v.validateExpr(expr.Arg)
	default:
		v.addProblem("unknown expression type %T", e)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Compare:
		v.validateCompare(pred)
	case *Compare:
		v.validateCompare(*pred)
	case IsNull:
		v.validateExpr(pred.Arg)
	case *IsNull:
		v.validateExpr(pred.Arg)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateCompare(c Compare) {
	if !c.Op.Valid() {
		v.addProblem("unknown operator %q", c.Op)
	}
	v.validateExpr(c.Left)
	v.validateExpr(c.Right)
}
