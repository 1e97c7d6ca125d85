package querysql

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbobject/internal/queryir"
	"github.com/roach88/dbobject/internal/schema"
)

func window(col, start, end string) queryir.Predicate {
	return queryir.And{Predicates: []queryir.Predicate{
		queryir.Cmp(queryir.Col(col), queryir.Ge, start),
		queryir.Cmp(queryir.Col(col), queryir.Lt, end),
	}}
}

func assertGoldenSQL(t *testing.T, name, sql string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(sql+"\n"))
}

func TestCompile_WindowedAggregate(t *testing.T) {
	compiler := NewSQLCompiler()

	query := queryir.Select{
		Items: []queryir.SelectItem{{Expr: queryir.Aggregate{Func: queryir.Avg, Arg: queryir.Col("heart_rate")}}},
		From:  queryir.Table{Name: "monitoring_hr"},
	}.
		Where(window("timestamp", "2024-01-01 00:00:00.000000", "2024-01-02 00:00:00.000000")).
		Where(queryir.Cmp(queryir.Col("heart_rate"), queryir.Gt, int64(0)))

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT AVG(heart_rate) FROM monitoring_hr WHERE timestamp >= ? AND timestamp < ? AND heart_rate > ?",
		sql)
	assert.Equal(t, []any{"2024-01-01 00:00:00.000000", "2024-01-02 00:00:00.000000", int64(0)}, params)
	assert.NotContains(t, sql, "2024", "values are never interpolated")
}

func TestCompile_SelectPointer(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(&queryir.Select{
		From:   queryir.Table{Name: "steps"},
		Filter: &queryir.Compare{Left: queryir.Col("steps"), Op: queryir.Gt, Right: queryir.Value{V: int64(10)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM steps WHERE steps > ?", sql)
	assert.Equal(t, []any{int64(10)}, params)
}

func TestCompile_DailyMax(t *testing.T) {
	compiler := NewSQLCompiler()

	daily := queryir.Select{
		Items:   []queryir.SelectItem{{Expr: queryir.Aggregate{Func: queryir.Max, Arg: queryir.Col("steps")}, As: "maxes"}},
		From:    queryir.Table{Name: "steps"},
		Filter:  window("ts", "2024-01-01", "2024-01-03"),
		GroupBy: []queryir.Expr{queryir.DayOfYear{Arg: queryir.Col("ts")}},
	}
	query := queryir.Select{
		Items: []queryir.SelectItem{{Expr: queryir.Aggregate{Func: queryir.Sum, Arg: queryir.Col("maxes")}}},
		From:  queryir.Subquery{Query: daily, Alias: "daily"},
	}

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)
	assert.Equal(t, []any{"2024-01-01", "2024-01-03"}, params)
	assertGoldenSQL(t, "daily_max", sql)
}

func TestCompile_TimeOfDay(t *testing.T) {
	compiler := NewSQLCompiler()

	seconds := queryir.SecondsOfDay{Arg: queryir.Col("bedtime")}
	query := queryir.Select{
		Items: []queryir.SelectItem{{Expr: queryir.TimeOfSeconds{
			Arg: queryir.Aggregate{Func: queryir.Avg, Arg: seconds},
		}}},
		From:   queryir.Table{Name: "sleep"},
		Filter: queryir.Cmp(seconds, queryir.Gt, int64(0)),
	}

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0)}, params)
	assertGoldenSQL(t, "time_of_day", sql)
}

func TestCompile_JoinView(t *testing.T) {
	compiler := NewSQLCompiler()

	query := queryir.CreateView{
		Name: "hr_view",
		Query: queryir.Select{
			Items: []queryir.SelectItem{
				{Expr: queryir.Column{Table: "monitoring_hr", Name: "timestamp"}},
				{Expr: queryir.Round{Arg: queryir.Col("heart_rate"), Places: 1}, As: "hr"},
			},
			From: queryir.Table{Name: "monitoring_hr"},
			Joins: []queryir.Join{{
				Table: "devices",
				On: queryir.Compare{
					Left:  queryir.Column{Table: "monitoring_hr", Name: "device"},
					Op:    queryir.Eq,
					Right: queryir.Column{Table: "devices", Name: "id"},
				},
			}},
			Filter:  queryir.Cmp(queryir.Column{Table: "devices", Name: "kind"}, queryir.Eq, "watch's"),
			OrderBy: []queryir.OrderTerm{{Expr: queryir.Column{Table: "monitoring_hr", Name: "timestamp"}, Desc: true}},
		},
	}

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)
	assert.Empty(t, params, "view bodies carry no parameters")
	assertGoldenSQL(t, "join_view", sql)
}

func TestCompile_NullComparisons(t *testing.T) {
	compiler := NewSQLCompiler()

	tests := []struct {
		name   string
		filter queryir.Predicate
		want   string
		params []any
	}{
		{"equal nil", queryir.Compare{Left: queryir.Col("b"), Op: queryir.Eq, Right: queryir.Value{}}, "b IS NULL", nil},
		{"not equal nil", queryir.Compare{Left: queryir.Col("b"), Op: queryir.Ne, Right: queryir.Value{}}, "b IS NOT NULL", nil},
		{"is not null", queryir.IsNull{Arg: queryir.Col("b"), Not: true}, "b IS NOT NULL", nil},
		{"match keys", queryir.All(queryir.Equal(queryir.Col("a"), int64(1)), queryir.Equal(queryir.Col("b"), nil)), "a = ? AND b IS NULL", []any{int64(1)}},
		{"empty and", queryir.And{}, "1 = 1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := compiler.Compile(queryir.Select{From: queryir.Table{Name: "pairs"}, Filter: tt.filter})
			require.NoError(t, err)
			assert.Equal(t, "SELECT * FROM pairs WHERE "+tt.want, sql)
			assert.Equal(t, tt.params, params)
		})
	}

	_, _, err := compiler.Compile(queryir.Select{
		From:   queryir.Table{Name: "pairs"},
		Filter: queryir.Compare{Left: queryir.Col("b"), Op: queryir.Gt, Right: queryir.Value{}},
	})
	assert.Error(t, err)
}

func TestCompile_DistinctOrderLimit(t *testing.T) {
	compiler := NewSQLCompiler()

	year := queryir.Extract{Part: queryir.Year, Arg: queryir.Col("day")}
	sql, params, err := compiler.Compile(queryir.Select{
		Distinct: true,
		Items:    []queryir.SelectItem{{Expr: year}},
		From:     queryir.Table{Name: "weight"},
		OrderBy:  []queryir.OrderTerm{{Expr: year}},
		Limit:    5,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT DISTINCT CAST(strftime('%Y', day) AS INTEGER) FROM weight ORDER BY CAST(strftime('%Y', day) AS INTEGER) LIMIT 5",
		sql)
	assert.Empty(t, params)

	sql, _, err = compiler.Compile(queryir.Select{
		Items: []queryir.SelectItem{{Expr: queryir.Aggregate{Func: queryir.Count}}},
		From:  queryir.Table{Name: "weight"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM weight", sql)
}

func TestCompile_Writes(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(queryir.Insert{
		Table:   "steps",
		Columns: []string{"ts", "steps"},
		Values:  []any{"2024-01-01 00:00:00.000000", int64(10)},
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO steps (ts, steps) VALUES (?, ?)", sql)
	assert.Equal(t, []any{"2024-01-01 00:00:00.000000", int64(10)}, params)

	sql, params, err = compiler.Compile(queryir.Insert{Table: "steps"})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO steps DEFAULT VALUES", sql)
	assert.Empty(t, params)

	sql, params, err = compiler.Compile(queryir.Update{
		Table: "steps",
		Set: []queryir.Assignment{
			{Column: "steps", Value: int64(12)},
			{Column: "note", Value: nil},
		},
		Filter: queryir.Equal(queryir.Col("ts"), "2024-01-01 00:00:00.000000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE steps SET steps = ?, note = ? WHERE ts = ?", sql)
	assert.Equal(t, []any{int64(12), nil, "2024-01-01 00:00:00.000000"}, params)

	sql, params, err = compiler.Compile(queryir.DropView{Name: "steps_view"})
	require.NoError(t, err)
	assert.Equal(t, "DROP VIEW IF EXISTS steps_view", sql)
	assert.Empty(t, params)
}

func TestCompile_InvalidQuery(t *testing.T) {
	compiler := NewSQLCompiler()

	_, _, err := compiler.Compile(nil)
	assert.Error(t, err)

	_, _, err = compiler.Compile(queryir.Select{From: queryir.Table{Name: "steps; DROP TABLE steps"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{"it's", "'it''s'"},
		{true, "1"},
		{int64(-3), "-3"},
		{2.5, "2.5"},
		{[]byte{0xde, 0xad}, "X'dead'"},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "'2024-01-01 00:00:00.000000'"},
	}
	for _, tt := range tests {
		got, err := Literal(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := Literal(struct{}{})
	assert.Error(t, err)
}

func TestCreateTable(t *testing.T) {
	tests := []struct {
		name string
		rt   *schema.RecordType
		want string
	}{
		{
			name: "single temporal key",
			rt: &schema.RecordType{Table: "monitoring_hr", Columns: []schema.Column{
				{Name: "timestamp", Type: schema.DateTime, PrimaryKey: true},
				{Name: "heart_rate", Type: schema.Integer},
			}},
			want: "CREATE TABLE IF NOT EXISTS monitoring_hr (timestamp DATETIME PRIMARY KEY, heart_rate INTEGER)",
		},
		{
			name: "composite key",
			rt: &schema.RecordType{Table: "device_days", Columns: []schema.Column{
				{Name: "device", Type: schema.Text, PrimaryKey: true},
				{Name: "day", Type: schema.Date, PrimaryKey: true},
				{Name: "bedtime", Type: schema.Time},
			}},
			want: "CREATE TABLE IF NOT EXISTS device_days (device TEXT, day DATE, bedtime TIME, PRIMARY KEY (device, day))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CreateTable(tt.rt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := CreateTable(&schema.RecordType{Table: "empty"})
	assert.ErrorIs(t, err, schema.ErrNoColumns)
}

func TestCreateMatchIndex(t *testing.T) {
	rt := &schema.RecordType{
		Table:        "pairs",
		Columns:      []schema.Column{{Name: "a", Type: schema.Integer}, {Name: "b", Type: schema.Integer}},
		MatchColumns: []string{"a", "b"},
	}
	sql, ok := CreateMatchIndex(rt)
	require.True(t, ok)
	assert.Equal(t, "CREATE UNIQUE INDEX IF NOT EXISTS idx_pairs_match ON pairs (a, b)", sql)

	_, ok = CreateMatchIndex(&schema.RecordType{Table: "plain"})
	assert.False(t, ok)
}
