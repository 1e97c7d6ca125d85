package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		typ  ColumnType
		in   any
		want any
	}{
		{"nil", Integer, nil, nil},
		{"int to int64", Integer, 7, int64(7)},
		{"integral float to int64", Integer, 3.0, int64(3)},
		{"numeric string", Integer, " 12 ", int64(12)},
		{"int to real", Real, 2, 2.0},
		{"text", Text, "walk", "walk"},
		{"text nfc", Text, "Cafe\u0301", "Caf\u00e9"},
		{"bool", Boolean, true, true},
		{"bool from int", Boolean, 0, false},
		{"datetime", DateTime, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), "2024-01-01 10:00:00.000000"},
		{"datetime from string", DateTime, "2024-01-01T10:00:00", "2024-01-01 10:00:00.000000"},
		{"date", Date, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), "2024-01-01"},
		{"time", Time, "01:30", "01:30:00.000000"},
		{"time from timestamp", Time, "2024-01-01 07:15:00", "07:15:00.000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.typ, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_Invalid(t *testing.T) {
	tests := []struct {
		typ ColumnType
		in  any
	}{
		{Integer, 1.5},
		{Integer, "abc"},
		{Real, true},
		{DateTime, "yesterday"},
		{Time, 12.5},
		{Blob, 3},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			_, err := Encode(tt.typ, tt.in)
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}

	_, err := Encode("decimal", 1)
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		typ  ColumnType
		in   any
		want any
	}{
		{"integer", Integer, int64(4), int64(4)},
		{"real from int", Real, int64(4), 4.0},
		{"text from bytes", Text, []byte("abc"), "abc"},
		{"bool from int", Boolean, int64(1), true},
		{"datetime from driver time", DateTime, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"datetime from text", DateTime, "2024-05-01 12:00:00.000000", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"date from text", Date, "2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"time from text", Time, "02:00:00", time.Date(0, 1, 1, 2, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.typ, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerce_DropsZoneKeepsWallClock(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(2024, 6, 1, 9, 30, 0, 123456789, zone)

	got, err := Coerce(DateTime, in)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 9, 30, 0, 123456000, time.UTC), got)
}

func TestEncode_OrdersChronologically(t *testing.T) {
	early, err := Encode(DateTime, time.Date(2024, 1, 1, 9, 59, 59, 999999000, time.UTC))
	require.NoError(t, err)
	late, err := Encode(DateTime, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Less(t, early.(string), late.(string))
}

func TestIsZeroValue(t *testing.T) {
	assert.True(t, IsZeroValue(0))
	assert.True(t, IsZeroValue(int64(0)))
	assert.True(t, IsZeroValue(0.0))
	assert.True(t, IsZeroValue(false))
	assert.False(t, IsZeroValue(true))
	assert.False(t, IsZeroValue(""))
	assert.False(t, IsZeroValue(nil))
	assert.False(t, IsZeroValue(-1))
}
