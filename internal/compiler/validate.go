package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/dbobject/internal/schema"
)

// Validation error codes (E100-E199)
const (
	ErrTableName        = "E101" // invalid or duplicate table name
	ErrNoColumns        = "E102" // table declares no columns
	ErrColumnName       = "E103" // invalid or duplicate column name
	ErrInvalidFieldType = "E104" // unknown column type
	ErrMatchColumn      = "E105" // match column not declared
	ErrViewReference    = "E106" // view references an unknown table or column
	ErrViewOperator     = "E107" // view filter uses an unknown operator
	ErrStatDefinition   = "E108" // statistic is malformed
	ErrNoTemporal       = "E109" // feature needs a temporal column
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a set of record types, individually and against each
// other (views may join any table in the set). It returns all errors found.
func Validate(types []*schema.RecordType) []ValidationError {
	var errs []ValidationError

	byTable := make(map[string]*schema.RecordType, len(types))
	for _, rt := range types {
		if _, dup := byTable[rt.Table]; dup {
			errs = append(errs, ValidationError{
				Field:   "table." + rt.Table,
				Message: "table declared more than once",
				Code:    ErrTableName,
			})
			continue
		}
		byTable[rt.Table] = rt
	}

	for _, rt := range types {
		errs = append(errs, validateRecordType(rt, byTable)...)
	}
	return errs
}

func validateRecordType(rt *schema.RecordType, all map[string]*schema.RecordType) []ValidationError {
	var errs []ValidationError
	field := func(parts ...string) string {
		return strings.Join(append([]string{"table", rt.Table}, parts...), ".")
	}

	if !schema.ValidIdentifier(rt.Table) {
		errs = append(errs, ValidationError{Field: field(), Message: "invalid table name", Code: ErrTableName})
	}
	if len(rt.Columns) == 0 {
		errs = append(errs, ValidationError{Field: field("columns"), Message: "at least one column is required", Code: ErrNoColumns})
	}

	cols := make(map[string]schema.Column, len(rt.Columns))
	for i, c := range rt.Columns {
		f := field(fmt.Sprintf("columns[%d]", i))
		if !schema.ValidIdentifier(c.Name) {
			errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("invalid column name %q", c.Name), Code: ErrColumnName})
		}
		if _, dup := cols[c.Name]; dup {
			errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("duplicate column %q", c.Name), Code: ErrColumnName})
		}
		if !c.Type.Valid() {
			errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("unsupported type %q", c.Type), Code: ErrInvalidFieldType})
		}
		cols[c.Name] = c
	}

	for _, m := range rt.MatchColumns {
		if _, ok := cols[m]; !ok {
			errs = append(errs, ValidationError{Field: field("match_columns"), Message: fmt.Sprintf("unknown column %q", m), Code: ErrMatchColumn})
		}
	}

	_, temporal := schema.DiscoverColumns(rt.Columns)

	resolve := func(ref string) bool {
		table, name := rt.Table, ref
		if i := strings.IndexByte(ref, '.'); i >= 0 {
			table, name = ref[:i], ref[i+1:]
		}
		other, ok := all[table]
		if !ok {
			return false
		}
		for _, c := range other.Columns {
			if c.Name == name {
				return true
			}
		}
		return false
	}

	for i, vd := range rt.Views {
		f := field(fmt.Sprintf("views[%d]", i))
		if vd.Name != "" && !schema.ValidIdentifier(vd.Name) {
			errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("invalid view name %q", vd.Name), Code: ErrViewReference})
		}
		if len(vd.Select) == 0 {
			errs = append(errs, ValidationError{Field: f, Message: "view selects nothing", Code: ErrViewReference})
		}
		var refs []string
		for _, sc := range vd.Select {
			refs = append(refs, sc.Column)
		}
		for _, jd := range vd.Joins {
			if _, ok := all[jd.Table]; !ok {
				errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("joins unknown table %q", jd.Table), Code: ErrViewReference})
			}
			for _, on := range jd.On {
				refs = append(refs, on.Left, on.Right)
			}
		}
		for _, fd := range vd.Where {
			refs = append(refs, fd.Column)
			switch fd.Op {
			case "=", "!=", "<", "<=", ">", ">=":
			default:
				errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("unknown operator %q", fd.Op), Code: ErrViewOperator})
			}
		}
		for _, od := range vd.OrderBy {
			refs = append(refs, od.Column)
		}
		for _, ref := range refs {
			if !resolve(ref) {
				errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("unknown column %q", ref), Code: ErrViewReference})
			}
		}
	}

	seen := map[string]bool{}
	for i, sd := range rt.Stats {
		f := field(fmt.Sprintf("stats[%d]", i))
		if sd.Name == "" {
			errs = append(errs, ValidationError{Field: f, Message: "statistic needs a name", Code: ErrStatDefinition})
		} else if seen[sd.Name] {
			errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("duplicate statistic %q", sd.Name), Code: ErrStatDefinition})
		}
		seen[sd.Name] = true

		col, ok := cols[sd.Column]
		if !ok {
			errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("unknown column %q", sd.Column), Code: ErrStatDefinition})
		}
		fn := strings.ToUpper(sd.Fn)
		switch fn {
		case "SUM", "AVG", "MIN", "MAX", "COUNT":
		default:
			errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("unknown function %q", sd.Fn), Code: ErrStatDefinition})
		}
		switch sd.Kind {
		case "", schema.StatPlain:
		case schema.StatTimeOfDay:
			if ok && col.Type != schema.Time {
				errs = append(errs, ValidationError{Field: f, Message: "time_of_day needs a time column", Code: ErrStatDefinition})
			}
			if fn == "COUNT" {
				errs = append(errs, ValidationError{Field: f, Message: "time_of_day cannot count", Code: ErrStatDefinition})
			}
		case schema.StatDailyMax:
			if temporal == "" {
				errs = append(errs, ValidationError{Field: f, Message: "daily_max needs a temporal column", Code: ErrNoTemporal})
			}
			if fn == "COUNT" {
				errs = append(errs, ValidationError{Field: f, Message: "daily_max cannot count", Code: ErrStatDefinition})
			}
		default:
			errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("unknown kind %q", sd.Kind), Code: ErrStatDefinition})
		}
	}

	return errs
}
