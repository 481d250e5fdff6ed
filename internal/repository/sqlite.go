package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

const createStateTable = `
CREATE TABLE IF NOT EXISTS app_state (
	session_id TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at DATETIME NOT NULL
)`

// SQLiteStateStore keeps state snapshots in a local SQLite file.
type SQLiteStateStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStateStore opens (creating if needed) the database at path.
// If path is empty, defaults to ~/.welfare/state.db.
func NewSQLiteStateStore(path string) (*SQLiteStateStore, error) {
	if strings.TrimSpace(path) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("repository: home directory: %w", err)
		}
		path = filepath.Join(home, ".welfare", "state.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("repository: create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("repository: open database: %w", err)
	}
	if _, err := db.Exec(createStateTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("repository: create app_state table: %w", err)
	}
	return &SQLiteStateStore{db: db, path: path}, nil
}

func (s *SQLiteStateStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStateStore) Path() string {
	return s.path
}

// Load returns the stored snapshot, or nil when the session has none.
func (s *SQLiteStateStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM app_state WHERE session_id = ?`, sessionID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: Load: %w", err)
	}
	return []byte(payload), nil
}

func (s *SQLiteStateStore) Save(ctx context.Context, sessionID string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_state (session_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, sessionID, string(payload), now().UTC())
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	return nil
}

func (s *SQLiteStateStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_state WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("repository: Delete: %w", err)
	}
	return nil
}
