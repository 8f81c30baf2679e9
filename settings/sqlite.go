package settings

import (
	"database/sql"
	"errors"
	"fmt"

	// SQLite driver for the settings database.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const createSettingsTable = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStore persists settings in a single-table SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// OpenSQLite opens (creating if necessary) the settings database at path.
func OpenSQLite(path string, log zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("settings: open %s: %w", path, err)
	}

	if _, err := db.Exec(createSettingsTable); err != nil {
		db.Close()

		return nil, fmt.Errorf("settings: create schema: %w", err)
	}

	return &SQLiteStore{db: db, log: log}, nil
}

// Get returns the stored value for key. Query failures are treated the
// same as a missing key.
func (s *SQLiteStore) Get(key string) ([]byte, bool) {
	var value string

	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Debug().Err(err).Str("key", key).Msg("settings read failed, using default")
		}

		return nil, false
	}

	return []byte(value), true
}

// Set stores value under key, replacing any previous value.
func (s *SQLiteStore) Set(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(value),
	)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("settings write failed")

		return fmt.Errorf("settings: write %s: %w", key, err)
	}

	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
