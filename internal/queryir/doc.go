// Package queryir is the abstract query representation used by the entity
// layer.
//
// Queries, sources, expressions and predicates are sealed interfaces: only
// types in this package implement them, so backend compilers can switch
// over them exhaustively. The IR is plain data; building a query never
// touches a database.
//
// Values always appear as Value expressions. The SQL backend binds them as
// statement parameters, except inside view definitions where SQLite does
// not accept parameters and literals are rendered instead.
//
// The IR covers what temporal aggregation over one table needs:
//
//   - Select with optional DISTINCT, inner joins, filter, grouping,
//     ordering and limit; its source is a table or an aliased subquery
//   - aggregates (SUM, AVG, MIN, MAX, COUNT) and ROUND
//   - time-of-day arithmetic (seconds since midnight and back)
//   - calendar extraction (day of year, year, month)
//   - comparison predicates, IS [NOT] NULL and conjunction
//
// Insert, Update, CreateView and DropView cover writes and DDL.
package queryir
