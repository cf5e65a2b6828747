// Package store persists hosts, transfer history, bookmarks, and resume
// checkpoints in SQLite. All stores share one *sql.DB; SQLite handles its
// own locking, so the pool is capped at a single writer connection.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/portside-app/portside/internal/constants"
)

// ErrNotFound is returned when a row lookup matches nothing.
var ErrNotFound = errors.New("store: not found")

// Open opens the SQLite database at path, applying pending migrations.
// The path may be ":memory:" for tests.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	Configure(db, 0, 0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

// Configure sets the connection pool limits. Values of zero or less fall
// back to the single-writer default that keeps SQLite happy.
func Configure(db *sql.DB, maxOpen, maxIdle int) {
	if maxOpen <= 0 {
		maxOpen = constants.DBMaxOpenConns
	}
	if maxIdle <= 0 {
		maxIdle = constants.DBMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
}
