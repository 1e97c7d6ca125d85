// Package store provides the SQLite backing store for record types.
//
// A Store owns:
//   - the database handle, pinned to a single connection
//   - the schema.Registry of record types it serves (Register is the
//     "add table" hook; EnsureTables creates them and freezes the registry)
//   - session management
//
// # Sessions
//
// A Session wraps one transaction. Callers either manage it themselves
// (Begin, then Commit or Rollback) or hand a function to WithSession, which
// commits on success, rolls back on error or panic, and always releases
// the transaction. Store errors are wrapped with context and returned
// after rollback; nothing is retried.
//
// Every session carries a UUIDv7 id that appears on each log line it
// produces.
//
// # Database Configuration
//
//   - journal_mode=WAL (configurable)
//   - synchronous=NORMAL
//   - busy_timeout=5000 (configurable)
//   - foreign_keys=ON
package store
