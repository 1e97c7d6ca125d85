package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverColumns(t *testing.T) {
	tests := []struct {
		name         string
		cols         []Column
		wantIdentity string
		wantTemporal string
	}{
		{
			name: "temporal primary key is both",
			cols: []Column{
				{Name: "timestamp", Type: DateTime, PrimaryKey: true},
				{Name: "heart_rate", Type: Integer},
			},
			wantIdentity: "timestamp",
			wantTemporal: "timestamp",
		},
		{
			name: "integer primary key then first temporal",
			cols: []Column{
				{Name: "id", Type: Integer, PrimaryKey: true},
				{Name: "start", Type: DateTime},
				{Name: "day", Type: Date},
			},
			wantIdentity: "id",
			wantTemporal: "start",
		},
		{
			name: "first primary key wins",
			cols: []Column{
				{Name: "device", Type: Text, PrimaryKey: true},
				{Name: "day", Type: Date, PrimaryKey: true},
			},
			wantIdentity: "device",
			wantTemporal: "day",
		},
		{
			name: "no primary key keeps identity empty",
			cols: []Column{
				{Name: "name", Type: Text},
				{Name: "at", Type: Time},
			},
			wantIdentity: "",
			wantTemporal: "at",
		},
		{
			name: "no temporal column",
			cols: []Column{
				{Name: "id", Type: Integer, PrimaryKey: true},
				{Name: "name", Type: Text},
			},
			wantIdentity: "id",
			wantTemporal: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, temporal := DiscoverColumns(tt.cols)
			assert.Equal(t, tt.wantIdentity, identity)
			assert.Equal(t, tt.wantTemporal, temporal)

			// Same input, same output.
			identity2, temporal2 := DiscoverColumns(tt.cols)
			assert.Equal(t, identity, identity2)
			assert.Equal(t, temporal, temporal2)
		})
	}
}

func TestIntrospect_Memoized(t *testing.T) {
	rt := &RecordType{
		Table: "weight",
		Columns: []Column{
			{Name: "day", Type: Date, PrimaryKey: true},
			{Name: "weight", Type: Real},
		},
	}

	first, err := rt.Introspect()
	require.NoError(t, err)

	// Mutating the column list after introspection has no effect.
	rt.Columns = append(rt.Columns, Column{Name: "ts", Type: DateTime, PrimaryKey: true})

	second, err := rt.Introspect()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "day", second.Identity)
	assert.Equal(t, "day", second.Temporal)
}

func TestIntrospect_Errors(t *testing.T) {
	tests := []struct {
		name string
		rt   *RecordType
		want error
	}{
		{
			name: "no columns",
			rt:   &RecordType{Table: "empty"},
			want: ErrNoColumns,
		},
		{
			name: "bad table name",
			rt:   &RecordType{Table: "drop table;", Columns: []Column{{Name: "a", Type: Integer}}},
			want: ErrInvalidIdentifier,
		},
		{
			name: "bad column type",
			rt:   &RecordType{Table: "t", Columns: []Column{{Name: "a", Type: "decimal"}}},
			want: ErrInvalidType,
		},
		{
			name: "unknown match column",
			rt: &RecordType{
				Table:        "t",
				Columns:      []Column{{Name: "a", Type: Integer}},
				MatchColumns: []string{"b"},
			},
			want: ErrUnknownColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.rt.Introspect()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMetaAccessors(t *testing.T) {
	rt := &RecordType{
		Table: "steps",
		Columns: []Column{
			{Name: "id", Type: Integer, PrimaryKey: true},
			{Name: "steps", Type: Integer},
		},
	}
	meta, err := rt.Introspect()
	require.NoError(t, err)

	a, ok := meta.Accessor("steps")
	require.True(t, ok)
	assert.Equal(t, 1, a.Index)

	r, err := rt.NewRecord(nil)
	require.NoError(t, err)
	require.NoError(t, a.Set(r, 42))
	assert.Equal(t, int64(42), a.Get(r))

	_, ok = meta.Accessor("missing")
	assert.False(t, ok)
	_, ok = meta.TemporalColumn()
	assert.False(t, ok)
}
