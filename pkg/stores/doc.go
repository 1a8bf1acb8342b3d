// Package stores provides the persistence layer for workflow runs.
// It includes a SQLite-backed store with WAL mode, connection pooling,
// and embedded schema migrations covering runs, their event streams,
// and the audit log. The store records execution history for later
// inspection; it does not checkpoint or resume runs.
package stores
