// Package schema describes record types and their in-memory rows.
//
// A RecordType is a named table with an ordered column list, an optional
// set of match columns used for logical-identity lookups, and optional
// declarative views and statistics. Introspection derives two roles from
// the column list once per type:
//
//   - identity: the first primary-key column in declaration order
//   - temporal: the identity column if it is date/time/datetime typed,
//     otherwise the first date/time/datetime column
//
// Record is the mutable in-memory instance. Column access goes through
// Accessor pairs built at introspection, so nothing in this package uses
// reflection to find a column by name.
//
// Registry is the explicit collection of record types a store serves. It
// is populated at startup and frozen before the first query.
//
// This package is foundational: it imports no other internal package.
package schema
