// Package store provides SQLite-backed persistence for decks, cards and
// domain events.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist or is not
// owned by the requesting user.
var ErrNotFound = errors.New("store: not found")

// Store holds the database handle and provides access to repositories.
type Store struct {
	db      *sql.DB
	entropy *rand.Rand
}

// Open creates a Store connected to the SQLite database at path.
// It applies recommended pragmas and runs schema migration.
func Open(path string) (*Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	s := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Decks returns a DeckRepo backed by this store.
func (s *Store) Decks() DeckRepo {
	return &deckRepo{db: s.db}
}

// Cards returns a CardRepo backed by this store.
func (s *Store) Cards() CardRepo {
	return &cardRepo{db: s.db}
}

// Events returns an EventRepo backed by this store.
func (s *Store) Events() EventRepo {
	return &eventRepo{store: s}
}

// newID generates a ULID for event rows.
func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// applyPragmas configures SQLite for concurrent request handling.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decks (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT,
		language    TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_decks_user ON decks(user_id);

	CREATE TABLE IF NOT EXISTS cards (
		id               TEXT PRIMARY KEY,
		deck_id          TEXT NOT NULL REFERENCES decks(id),
		user_id          TEXT NOT NULL,
		front            TEXT NOT NULL,
		back             TEXT NOT NULL,
		due_at           TEXT,
		ease_factor      REAL,
		repetitions      INTEGER,
		interval_days    INTEGER,
		last_grade       TEXT,
		last_graded_at   TEXT,
		last_reviewed_at TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(user_id, deck_id);
	CREATE INDEX IF NOT EXISTS idx_cards_due ON cards(user_id, deck_id, due_at);

	CREATE TABLE IF NOT EXISTS review_events (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		deck_id       TEXT NOT NULL,
		card_id       TEXT NOT NULL,
		grade         TEXT NOT NULL,
		quality       INTEGER NOT NULL,
		attempt_count INTEGER NOT NULL,
		revealed      INTEGER NOT NULL,
		due_at        TEXT NOT NULL,
		created_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_review_events_card ON review_events(card_id);

	CREATE TABLE IF NOT EXISTS llm_events (
		id            TEXT PRIMARY KEY,
		provider      TEXT NOT NULL,
		model         TEXT NOT NULL,
		purpose       TEXT NOT NULL,
		input_tokens  INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		latency_ms    INTEGER NOT NULL,
		success       INTEGER NOT NULL,
		error_message TEXT,
		created_at    TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// DefaultDBPath resolves the database file path in priority order:
// 1. PARLO_DB environment variable
// 2. $XDG_DATA_HOME/parlo/parlo.db
// 3. ~/.local/share/parlo/parlo.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("PARLO_DB"); p != "" {
		return p, nil
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, "parlo", "parlo.db"), nil
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// dbTime formats a timestamp for storage: RFC 3339, UTC, second precision.
func dbTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// parseDBTime parses a stored timestamp. Empty strings map to the zero time.
func parseDBTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
