// Package history persists concluded transcripts to a local SQLite store so
// a dictation survives the toast that announced it.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one concluded session worth keeping.
type Entry struct {
	ID         int64
	SessionID  string
	Text       string
	Action     string
	Outcome    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// DefaultPath resolves the store location under XDG_DATA_HOME.
func DefaultPath() (string, error) {
	if dataHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); dataHome != "" {
		return filepath.Join(dataHome, "parlo", "history.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "parlo", "history.db"), nil
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	text        TEXT NOT NULL,
	action      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_finished_at ON entries(finished_at);
`

// Store appends and lists transcript history. WAL keeps a concurrent
// "parlo history" reader from blocking the session owner's insert.
type Store struct {
	db         *sql.DB
	maxEntries int
}

// Open creates the store, its parent directory, and its schema. A
// maxEntries of zero disables pruning.
func Open(path string, maxEntries int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA busy_timeout=2000`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure history database: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db, maxEntries: maxEntries}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one entry and prunes past the retention cap.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.Text) == "" {
		return errors.New("history entry text cannot be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (session_id, text, action, outcome, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.SessionID, entry.Text, entry.Action, entry.Outcome, entry.StartedAt.Unix(), entry.FinishedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	if s.maxEntries > 0 {
		if err := s.prune(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM entries
		WHERE id NOT IN (SELECT id FROM entries ORDER BY id DESC LIMIT ?)
	`, s.maxEntries)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

// List returns the newest entries first, at most limit.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, text, action, outcome, started_at, finished_at
		FROM entries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var startedAt, finishedAt int64
		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.Text, &entry.Action,
			&entry.Outcome, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.StartedAt = time.Unix(startedAt, 0)
		entry.FinishedAt = time.Unix(finishedAt, 0)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
