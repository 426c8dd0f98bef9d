// Package db opens the stabilizer's run-log database and keeps its schema
// current with the embedded migrations.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// pragmas are applied to every database opened by Open.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// DB wraps the sqlite handle.
type DB struct {
	*sql.DB
	path string
}

// Open opens (creating if needed) the sqlite database at path, applies the
// connection pragmas and migrates the schema to the latest version.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection keeps the pragmas in force for every statement.
	conn.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	db := &DB{DB: conn, path: path}
	if err := db.MigrateUp(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string { return db.path }
