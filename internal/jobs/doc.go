// Package jobs persists download jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages the database connection, schema initialization, guarded
// status transitions, the cache-reuse query, and the maintenance queries the
// reaper sweeps are built on. A download job records which files were
// requested, the derived content key, build progress, the on-disk archive
// parts it produced, and which requested files had to be skipped.
//
// The database is treated as transient bookkeeping for the download cache
// rather than a long-term archive. Schema changes bump the version in
// schema.go; users clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for job semantics; when
// you add new statuses or fields, update schema.sql and bump schemaVersion.
package jobs
