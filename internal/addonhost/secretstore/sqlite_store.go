// Package secretstore is the concrete, SQLite-backed implementation of
// the external secret store contract named in spec §6. The addon host
// itself only ever talks to the secretns.Store interface; this package
// exists so the module is runnable end-to-end without a real host
// application's secret store behind it.
package secretstore

import (
	"database/sql"
	"fmt"
)

// SQLiteStore persists secrets in a single table keyed by their already
// fully-scoped name ("addon_<id>_<key>"). It performs no namespacing of
// its own — that's secretns's job.
type SQLiteStore struct {
	db *sql.DB
}

// New wraps an existing *sql.DB. Callers must have already applied
// Migrate.
func New(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Migrate creates the secrets table if it doesn't already exist.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS addon_secrets (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`)
	if err != nil {
		return fmt.Errorf("secret store migration: %w", err)
	}
	return nil
}

// Set upserts the value for key.
func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO addon_secrets (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("set secret %q: %w", key, err)
	}
	return nil
}

// Get returns the stored value for key. ok is false when no row exists.
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM addon_secrets WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get secret %q: %w", key, err)
	}
	return value, true, nil
}

// Delete removes key. Deleting a key that doesn't exist is not an error.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM addon_secrets WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete secret %q: %w", key, err)
	}
	return nil
}
