package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dbobject/internal/schema"
)

// CompileRecordType parses a CUE value into a RecordType.
//
// The CUE value should be the table struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`table: sleep: { ... }`)
//	rt, err := CompileRecordType(v.LookupPath(cue.ParsePath("table.sleep")))
//
// The table name is the struct label.
func CompileRecordType(v cue.Value) (*schema.RecordType, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rt := &schema.RecordType{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		rt.Table = labels[len(labels)-1].String()
	}
	if !schema.ValidIdentifier(rt.Table) {
		return nil, &CompileError{
			Field:   "table",
			Message: fmt.Sprintf("invalid table name %q", rt.Table),
			Pos:     v.Pos(),
		}
	}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		rt.Name = name
	}

	var err error
	rt.Columns, err = parseColumns(v)
	if err != nil {
		return nil, err
	}
	if len(rt.Columns) == 0 {
		return nil, &CompileError{
			Field:   "columns",
			Message: "at least one column is required",
			Pos:     v.Pos(),
		}
	}

	if matchVal := v.LookupPath(cue.ParsePath("match_columns")); matchVal.Exists() {
		if err := matchVal.Decode(&rt.MatchColumns); err != nil {
			return nil, formatCUEError(err)
		}
	}

	if viewsVal := v.LookupPath(cue.ParsePath("views")); viewsVal.Exists() {
		if err := viewsVal.Decode(&rt.Views); err != nil {
			return nil, &CompileError{Field: "views", Message: err.Error(), Pos: viewsVal.Pos()}
		}
	}

	if statsVal := v.LookupPath(cue.ParsePath("stats")); statsVal.Exists() {
		if err := statsVal.Decode(&rt.Stats); err != nil {
			return nil, &CompileError{Field: "stats", Message: err.Error(), Pos: statsVal.Pos()}
		}
	}

	return rt, nil
}

// CompileRecordTypes compiles every table under the "table" field of v, in
// declaration order.
func CompileRecordTypes(v cue.Value) ([]*schema.RecordType, error) {
	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, nil
	}
	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []*schema.RecordType
	for iter.Next() {
		rt, err := CompileRecordType(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, nil
}

// parseColumns extracts the ordered column list.
func parseColumns(v cue.Value) ([]schema.Column, error) {
	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil, nil
	}

	iter, err := colsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var cols []schema.Column
	for iter.Next() {
		colVal := iter.Value()

		name, err := colVal.LookupPath(cue.ParsePath("name")).String()
		if err != nil {
			return nil, &CompileError{
				Field:   "columns.name",
				Message: "column name is required",
				Pos:     colVal.Pos(),
			}
		}

		typVal := colVal.LookupPath(cue.ParsePath("type"))
		typ, err := typVal.String()
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("columns.%s.type", name),
				Message: "column type is required",
				Pos:     colVal.Pos(),
			}
		}
		ct := schema.ColumnType(typ)
		if !ct.Valid() {
			return nil, &CompileError{
				Field:   "type",
				Message: fmt.Sprintf("column %q has unsupported type %q", name, typ),
				Pos:     typVal.Pos(),
			}
		}

		col := schema.Column{Name: name, Type: ct}
		if pkVal := colVal.LookupPath(cue.ParsePath("primary_key")); pkVal.Exists() {
			pk, err := pkVal.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			col.PrimaryKey = pk
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
