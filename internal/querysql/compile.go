package querysql

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/roach88/dbobject/internal/queryir"
	"github.com/roach88/dbobject/internal/schema"
)

// SQLCompiler compiles QueryIR to SQLite SQL.
//
// Values are bound as ? parameters and returned alongside the SQL, in the
// order their placeholders appear. View definitions are the exception:
// SQLite rejects parameters in CREATE VIEW, so their values are rendered as
// quoted literals.
type SQLCompiler struct {
	inline bool
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile validates a query and converts it to SQL.
// Returns (sql, params, error).
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, errors.New("cannot compile nil query")
	}
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Insert:
		return c.compileInsert(query)
	case *queryir.Insert:
		return c.compileInsert(*query)
	case queryir.Update:
		return c.compileUpdate(query)
	case *queryir.Update:
		return c.compileUpdate(*query)
	case queryir.CreateView:
		return c.compileCreateView(query)
	case *queryir.CreateView:
		return c.compileCreateView(*query)
	case queryir.DropView:
		return "DROP VIEW IF EXISTS " + query.Name, nil, nil
	case *queryir.DropView:
		return "DROP VIEW IF EXISTS " + query.Name, nil, nil
	default:
		return "", nil, errors.Newf("unsupported query type: %T", q)
	}
}

// fragment accumulates SQL text and its parameters in placeholder order.
type fragment struct {
	sql    strings.Builder
	params []any
}

func (f *fragment) write(s string, params ...any) {
	f.sql.WriteString(s)
	f.params = append(f.params, params...)
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	f := &fragment{}
	f.write("SELECT ")
	if q.Distinct {
		f.write("DISTINCT ")
	}

	if len(q.Items) == 0 {
		f.write("*")
	}
	for i, item := range q.Items {
		if i > 0 {
			f.write(", ")
		}
		if err := c.expr(f, item.Expr); err != nil {
			return "", nil, errors.Wrap(err, "compile select item")
		}
		if item.As != "" {
			f.write(" AS " + item.As)
		}
	}

	f.write(" FROM ")
	switch src := q.From.(type) {
	case queryir.Table:
		f.write(src.Name)
	case queryir.Subquery:
		sub, params, err := c.compileSelect(src.Query)
		if err != nil {
			return "", nil, errors.Wrapf(err, "compile subquery %s", src.Alias)
		}
		f.write("("+sub+") AS "+src.Alias, params...)
	}

	for _, j := range q.Joins {
		f.write(" INNER JOIN " + j.Table + " ON ")
		if err := c.predicate(f, j.On); err != nil {
			return "", nil, errors.Wrapf(err, "compile join %s", j.Table)
		}
	}

	if q.Filter != nil {
		f.write(" WHERE ")
		if err := c.predicate(f, q.Filter); err != nil {
			return "", nil, errors.Wrap(err, "compile filter")
		}
	}

	if len(q.GroupBy) > 0 {
		f.write(" GROUP BY ")
		for i, g := range q.GroupBy {
			if i > 0 {
				f.write(", ")
			}
			if err := c.expr(f, g); err != nil {
				return "", nil, errors.Wrap(err, "compile group by")
			}
		}
	}

	if len(q.OrderBy) > 0 {
		f.write(" ORDER BY ")
		for i, o := range q.OrderBy {
			if i > 0 {
				f.write(", ")
			}
			if err := c.expr(f, o.Expr); err != nil {
				return "", nil, errors.Wrap(err, "compile order by")
			}
			if o.Desc {
				f.write(" DESC")
			}
		}
	}

	if q.Limit > 0 {
		f.write(" LIMIT " + strconv.Itoa(q.Limit))
	}

	return f.sql.String(), f.params, nil
}

func (c *SQLCompiler) compileInsert(q queryir.Insert) (string, []any, error) {
	if len(q.Columns) == 0 {
		return "INSERT INTO " + q.Table + " DEFAULT VALUES", nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(q.Columns)), ", ")
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		q.Table,
		strings.Join(q.Columns, ", "),
		placeholders)
	return sql, append([]any(nil), q.Values...), nil
}

func (c *SQLCompiler) compileUpdate(q queryir.Update) (string, []any, error) {
	f := &fragment{}
	f.write("UPDATE " + q.Table + " SET ")
	for i, a := range q.Set {
		if i > 0 {
			f.write(", ")
		}
		f.write(a.Column+" = ?", a.Value)
	}
	f.write(" WHERE ")
	if err := c.predicate(f, q.Filter); err != nil {
		return "", nil, errors.Wrap(err, "compile update filter")
	}
	return f.sql.String(), f.params, nil
}

func (c *SQLCompiler) compileCreateView(q queryir.CreateView) (string, []any, error) {
	inline := &SQLCompiler{inline: true}
	body, _, err := inline.compileSelect(q.Query)
	if err != nil {
		return "", nil, errors.Wrapf(err, "compile view %s", q.Name)
	}
	return "CREATE VIEW IF NOT EXISTS " + q.Name + " AS " + body, nil, nil
}

func (c *SQLCompiler) expr(f *fragment, e queryir.Expr) error {
	switch x := e.(type) {
	case queryir.Column:
		if x.Table != "" {
			f.write(x.Table + ".")
		}
		f.write(x.Name)
	case queryir.Star:
		if x.Table != "" {
			f.write(x.Table + ".")
		}
		f.write("*")
	case queryir.Value:
		return c.value(f, x.V)
	case queryir.Aggregate:
		f.write(string(x.Func) + "(")
		if x.Arg == nil {
			f.write("*")
		} else if err := c.expr(f, x.Arg); err != nil {
			return err
		}
		f.write(")")
	case queryir.Round:
		f.write("ROUND(")
		if err := c.expr(f, x.Arg); err != nil {
			return err
		}
		f.write(", " + strconv.Itoa(x.Places) + ")")
	case queryir.SecondsOfDay:
		f.write("(strftime('%s', ")
		if err := c.expr(f, x.Arg); err != nil {
			return err
		}
		f.write(") - strftime('%s', '00:00'))")
	case queryir.TimeOfSeconds:
		f.write("time(")
		if err := c.expr(f, x.Arg); err != nil {
			return err
		}
		f.write(", 'unixepoch')")
	case queryir.DayOfYear:
		f.write("strftime('%j', ")
		if err := c.expr(f, x.Arg); err != nil {
			return err
		}
		f.write(")")
	case queryir.Extract:
		format := "%Y"
		if x.Part == queryir.Month {
			format = "%m"
		}
		f.write("CAST(strftime('" + format + "', ")
		if err := c.expr(f, x.Arg); err != nil {
			return err
		}
		f.write(") AS INTEGER)")
	default:
		return errors.Newf("unsupported expression type: %T", e)
	}
	return nil
}

func (c *SQLCompiler) predicate(f *fragment, p queryir.Predicate) error {
	switch pred := p.(type) {
	case nil:
		f.write("1 = 1")
	case queryir.Compare:
		return c.compare(f, pred)
	case *queryir.Compare:
		return c.compare(f, *pred)
	case queryir.IsNull:
		return c.isNull(f, pred)
	case *queryir.IsNull:
		return c.isNull(f, *pred)
	case queryir.And:
		return c.and(f, pred)
	case *queryir.And:
		return c.and(f, *pred)
	default:
		return errors.Newf("unsupported predicate type: %T", p)
	}
	return nil
}

func (c *SQLCompiler) compare(f *fragment, cmp queryir.Compare) error {
	// A nil literal can only be tested for (non-)NULL.
	if v, ok := cmp.Right.(queryir.Value); ok && v.V == nil {
		switch cmp.Op {
		case queryir.Eq:
			return c.isNull(f, queryir.IsNull{Arg: cmp.Left})
		case queryir.Ne:
			return c.isNull(f, queryir.IsNull{Arg: cmp.Left, Not: true})
		default:
			return errors.Newf("cannot compare NULL with %s", cmp.Op)
		}
	}
	if err := c.expr(f, cmp.Left); err != nil {
		return err
	}
	f.write(" " + string(cmp.Op) + " ")
	return c.expr(f, cmp.Right)
}

func (c *SQLCompiler) isNull(f *fragment, p queryir.IsNull) error {
	if err := c.expr(f, p.Arg); err != nil {
		return err
	}
	if p.Not {
		f.write(" IS NOT NULL")
	} else {
		f.write(" IS NULL")
	}
	return nil
}

func (c *SQLCompiler) and(f *fragment, and queryir.And) error {
	if len(and.Predicates) == 0 {
		f.write("1 = 1")
		return nil
	}
	for i, sub := range and.Predicates {
		if i > 0 {
			f.write(" AND ")
		}
		if err := c.predicate(f, sub); err != nil {
			return err
		}
	}
	return nil
}

func (c *SQLCompiler) value(f *fragment, v any) error {
	if !c.inline {
		f.write("?", v)
		return nil
	}
	lit, err := Literal(v)
	if err != nil {
		return err
	}
	f.write(lit)
	return nil
}

// Literal renders v as a SQLite literal.
func Literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case []byte:
		return "X'" + hex.EncodeToString(x) + "'", nil
	case time.Time:
		return "'" + x.Format(schema.DateTimeLayout) + "'", nil
	}
	return "", errors.Newf("cannot render %T as a literal", v)
}
