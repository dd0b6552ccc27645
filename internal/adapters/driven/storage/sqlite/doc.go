// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, accessed through jmoiron/sqlx for struct scanning. It implements several
// store interfaces over a single database connection pool:
//
//   - DocumentStore: Document and chunk persistence (chunks keep their embeddings)
//   - HistoryStore: Answered query persistence
//   - SyncStateStore: Aggregation progress persistence
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.quarry/data/quarry.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
