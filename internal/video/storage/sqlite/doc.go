// Package sqlite contains SQLite repository implementations for
// stabilization runs.
//
// Run metadata and the per-frame motion log are written here rather than
// in the numeric layers (l1-l6), which stay free of SQL. The schema is
// owned by internal/db and its migrations.
package sqlite
