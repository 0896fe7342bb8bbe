package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Get returns the raw value stored under key. ok is false when the key is
// absent.
func (db *DB) Get(key string) (value []byte, ok bool, err error) {
	var s string
	err = db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&s)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(s), true, nil
}

// Put inserts or replaces the value stored under key.
func (db *DB) Put(key string, value []byte) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, string(value), now)
	return err
}

// Delete removes the given keys in a single transaction.
func (db *DB) Delete(keys ...string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range keys {
		if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, k); err != nil {
			return fmt.Errorf("delete %q: %w", k, err)
		}
	}
	return tx.Commit()
}

// Keys returns all stored keys in lexical order.
func (db *DB) Keys() ([]string, error) {
	rows, err := db.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
