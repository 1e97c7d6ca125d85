// Package compiler turns CUE table definitions into schema.RecordType values.
//
// A definition file declares tables under the top-level "table" field:
//
//	table: monitoring_hr: {
//		name: "MonitoringHeartRate"
//		columns: [
//			{name: "timestamp", type: "datetime", primary_key: true},
//			{name: "heart_rate", type: "integer"},
//		]
//		views: [{select: [{column: "timestamp"}, {column: "heart_rate"}]}]
//		stats: [{name: "avg_hr", column: "heart_rate", fn: "avg", ignore_le_zero: true}]
//	}
//
// CompileRecordType handles one table; Validate checks a whole set of
// compiled types against each other.
package compiler
