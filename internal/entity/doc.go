// Package entity implements the shared temporal capabilities of every
// record type: time-windowed queries, aggregate statistics, idempotent
// upserts, derived views and periodic rollups.
//
// A Table binds one registered schema.RecordType to a store.Store. All
// operations take a context and a *store.Session:
//
//   - a non-nil session composes the operation into the caller's unit of
//     work; the caller commits or rolls back
//   - a nil session makes the operation open, commit (or roll back) and
//     release its own session
//
// Windows are half-open: a row is in [Start, End) when its temporal
// column value t satisfies Start <= t < End. A zero bound is open.
//
// Errors are *Error values carrying a Kind (configuration, precondition,
// consistency, store); use the Is*Error helpers to branch on them.
package entity
