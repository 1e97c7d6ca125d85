package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidQueries(t *testing.T) {
	daily := Select{
		Items:   []SelectItem{{Expr: Aggregate{Func: Max, Arg: Col("steps")}, As: "maxes"}},
		From:    Table{Name: "steps"},
		GroupBy: []Expr{DayOfYear{Arg: Col("ts")}},
	}

	tests := []struct {
		name  string
		query Query
	}{
		{"plain select", Select{From: Table{Name: "steps"}}},
		{"pointer select", &Select{From: Table{Name: "steps"}, Filter: &And{}}},
		{"nested aggregate", Select{
			Items: []SelectItem{{Expr: Aggregate{Func: Sum, Arg: Col("maxes")}}},
			From:  Subquery{Query: daily, Alias: "daily"},
		}},
		{"count rows", Select{Items: []SelectItem{{Expr: Aggregate{Func: Count}}}, From: Table{Name: "steps"}}},
		{"join", Select{
			From:  Table{Name: "a"},
			Joins: []Join{{Table: "b", On: Compare{Left: Column{Table: "a", Name: "id"}, Op: Eq, Right: Column{Table: "b", Name: "a_id"}}}},
		}},
		{"insert", Insert{Table: "steps", Columns: []string{"ts", "steps"}, Values: []any{"x", 1}}},
		{"update", Update{Table: "steps", Set: []Assignment{{Column: "steps", Value: 2}}, Filter: Equal(Col("ts"), "x")}},
		{"create view", CreateView{Name: "steps_view", Query: Select{From: Table{Name: "steps"}}}},
		{"drop view", DropView{Name: "steps_view"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)
			assert.True(t, result.Valid, "problems: %v", result.Problems)
			assert.NoError(t, result.Err())
		})
	}
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		problem string
	}{
		{"nil query", nil, "nil query"},
		{"no source", Select{}, "select without source"},
		{"bad table", Select{From: Table{Name: "x; drop"}}, `invalid table name "x; drop"`},
		{"subquery alias", Select{From: Subquery{Query: Select{From: Table{Name: "a"}}}}, "subquery without alias"},
		{"join on", Select{From: Table{Name: "a"}, Joins: []Join{{Table: "b"}}}, `join "b" without ON predicate`},
		{"sum without arg", Select{From: Table{Name: "a"}, Items: []SelectItem{{Expr: Aggregate{Func: Sum}}}}, "SUM without argument"},
		{"unknown agg", Select{From: Table{Name: "a"}, Items: []SelectItem{{Expr: Aggregate{Func: "MEDIAN", Arg: Col("x")}}}}, `unknown aggregate "MEDIAN"`},
		{"bad op", Select{From: Table{Name: "a"}, Filter: Compare{Left: Col("x"), Op: "LIKE", Right: Value{V: "y"}}}, `unknown operator "LIKE"`},
		{"update without filter", Update{Table: "a", Set: []Assignment{{Column: "x", Value: 1}}}, `update of "a" without filter`},
		{"insert arity", Insert{Table: "a", Columns: []string{"x"}}, `insert into "a" has 1 columns and 0 values`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)
			assert.False(t, result.Valid)
			assert.Contains(t, result.Problems, tt.problem)

			err := result.Err()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}
