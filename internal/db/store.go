// Package db provides SQLite-backed key/value storage for the portal client.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database that disappears with the process.
const MemoryPath = ":memory:"

const schema = `
	CREATE TABLE IF NOT EXISTS entries (
		scope TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updatedAt REAL NOT NULL,
		PRIMARY KEY (scope, key)
	);
`

// Store provides scoped key/value access to a SQLite database.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, _ = os.UserHomeDir()
	}
	return filepath.Join(dir, "portal", "portal.sqlite")
}

// Open opens (creating if needed) the database at path and applies the schema.
// Pass MemoryPath for a store that is never written to disk.
func Open(path string) (*Store, error) {
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == MemoryPath {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under scope/key. ok is false when absent.
func (s *Store) Get(scope, key string) (value string, ok bool, err error) {
	row := s.db.QueryRow(`SELECT value FROM entries WHERE scope = ? AND key = ?`, scope, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("scan entry: %w", err)
	}
	return value, true, nil
}

// Set stores value under scope/key, replacing any previous value.
func (s *Store) Set(scope, key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO entries (scope, key, value, updatedAt)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (scope, key) DO UPDATE SET value = excluded.value, updatedAt = excluded.updatedAt
	`, scope, key, value, unixFromTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set entry: %w", err)
	}
	return nil
}

// Delete removes scope/key. Deleting a missing key is not an error.
func (s *Store) Delete(scope, key string) error {
	if _, err := s.db.Exec(`DELETE FROM entries WHERE scope = ? AND key = ?`, scope, key); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Clear removes every key in scope.
func (s *Store) Clear(scope string) error {
	if _, err := s.db.Exec(`DELETE FROM entries WHERE scope = ?`, scope); err != nil {
		return fmt.Errorf("clear scope: %w", err)
	}
	return nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
