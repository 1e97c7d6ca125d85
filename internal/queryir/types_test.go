package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_ImplementsQuery(t *testing.T) {
	var q Query = Select{From: Table{Name: "readings"}}
	assert.NotNil(t, q)

	switch q.(type) {
	case Select:
		// Expected
	case Insert, Update, CreateView, DropView:
		t.Fatal("unexpected type")
	}
}

func TestSelect_Where(t *testing.T) {
	base := Select{From: Table{Name: "readings"}}

	first := Cmp(Col("ts"), Ge, "2024-01-01")
	second := Cmp(Col("ts"), Lt, "2024-01-02")
	third := Cmp(Col("value"), Gt, 0)

	one := base.Where(first)
	assert.Equal(t, first, one.Filter)
	assert.Nil(t, base.Filter, "Where must not mutate the receiver")

	two := one.Where(second)
	require.IsType(t, And{}, two.Filter)
	assert.Equal(t, []Predicate{first, second}, two.Filter.(And).Predicates)

	three := two.Where(third)
	assert.Equal(t, []Predicate{first, second, third}, three.Filter.(And).Predicates)
	assert.Len(t, two.Filter.(And).Predicates, 2, "earlier query keeps its filter")

	assert.Equal(t, three, three.Where(nil))
}

func TestEqual_NilIsNull(t *testing.T) {
	assert.Equal(t, IsNull{Arg: Col("b")}, Equal(Col("b"), nil))
	assert.Equal(t, Compare{Left: Col("a"), Op: Eq, Right: Value{V: 1}}, Equal(Col("a"), 1))
}

func TestAll(t *testing.T) {
	p := Cmp(Col("a"), Gt, 0)
	q := IsNull{Arg: Col("b")}

	assert.Nil(t, All())
	assert.Nil(t, All(nil, nil))
	assert.Equal(t, p, All(nil, p))
	assert.Equal(t, And{Predicates: []Predicate{p, q}}, All(p, nil, q))
}

func TestAggFunc_Valid(t *testing.T) {
	for _, f := range []AggFunc{Sum, Avg, Min, Max, Count} {
		assert.True(t, f.Valid(), f)
	}
	assert.False(t, AggFunc("MEDIAN").Valid())
}
