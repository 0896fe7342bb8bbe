package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the per-profile state database. One connection serializes writes to
// the kv table, so Delete(keys...) and Put never interleave.
type DB struct {
	*sql.DB
	path string
}

// Open opens (creating if needed) the state database at path.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping state db %s: %w", path, err)
	}
	return &DB{DB: conn, path: path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }
