// Package harness runs YAML scenarios against a fresh in-memory store.
//
// A scenario names the tables it uses, then lists steps: upserts that load
// rows and queries whose results can be checked inline. Every step is
// recorded in a trace; assertions then check the trace and the final table
// contents. Traces render deterministically and can be compared against
// golden files:
//
//	go test ./internal/harness -update
//
// regenerates them.
package harness
