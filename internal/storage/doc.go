// Package storage persists activity run history.
//
// Drivers:
//   - "file": append-only JSON lines, rewritten on prune
//   - "sqlite": SQLite database (modernc.org/sqlite, pure Go)
package storage
