package testutil

import "github.com/roach88/dbobject/internal/schema"

// Sample record types. Each call returns a fresh value, since a record
// type caches its introspection and belongs to one registry.

// HeartRate is a monitoring table keyed by its timestamp.
func HeartRate() *schema.RecordType {
	return &schema.RecordType{
		Name:  "MonitoringHeartRate",
		Table: "monitoring_hr",
		Columns: []schema.Column{
			{Name: "timestamp", Type: schema.DateTime, PrimaryKey: true},
			{Name: "heart_rate", Type: schema.Integer},
		},
	}
}

// Sleep is a daily summary keyed by day, with time-of-day columns.
func Sleep() *schema.RecordType {
	return &schema.RecordType{
		Name:  "Sleep",
		Table: "sleep",
		Columns: []schema.Column{
			{Name: "day", Type: schema.Date, PrimaryKey: true},
			{Name: "start", Type: schema.DateTime},
			{Name: "total_sleep", Type: schema.Time},
			{Name: "score", Type: schema.Integer},
		},
		Stats: []schema.StatDef{
			{Name: "avg_sleep", Column: "total_sleep", Fn: "avg", Kind: schema.StatTimeOfDay},
			{Name: "avg_score", Column: "score", Fn: "avg", IgnoreLEZero: true},
		},
	}
}

// Pairs has an autoincrement identity and a two-column match key. It has
// no temporal column.
func Pairs() *schema.RecordType {
	return &schema.RecordType{
		Table: "pairs",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Integer, PrimaryKey: true},
			{Name: "a", Type: schema.Integer},
			{Name: "b", Type: schema.Integer},
			{Name: "note", Type: schema.Text},
		},
		MatchColumns: []string{"a", "b"},
	}
}

// Steps is a per-device activity table with a timestamp that is not the
// identity.
func Steps() *schema.RecordType {
	return &schema.RecordType{
		Name:  "Steps",
		Table: "steps",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Integer, PrimaryKey: true},
			{Name: "device", Type: schema.Text},
			{Name: "ts", Type: schema.DateTime},
			{Name: "steps", Type: schema.Integer},
			{Name: "distance", Type: schema.Real},
		},
		MatchColumns: []string{"device", "ts"},
		Stats: []schema.StatDef{
			{Name: "steps", Column: "steps", Fn: "sum"},
			{Name: "max_distance", Column: "distance", Fn: "max"},
			{Name: "daily_peak", Column: "steps", Fn: "avg", Kind: schema.StatDailyMax},
		},
	}
}

// Devices is a lookup table joined by Steps views.
func Devices() *schema.RecordType {
	return &schema.RecordType{
		Table: "devices",
		Columns: []schema.Column{
			{Name: "serial", Type: schema.Text, PrimaryKey: true},
			{Name: "label", Type: schema.Text},
		},
	}
}
