package pool

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DatabaseFileName is the pool database file inside the pool directory.
const DatabaseFileName = "coldstakepool.db"

// Store manages pool accounting persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore initializes or connects to the pool database inside poolDir.
func OpenStore(poolDir string) (*Store, error) {
	if err := os.MkdirAll(poolDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure pool directory: %w", err)
	}

	dbPath := filepath.Join(poolDir, DatabaseFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
