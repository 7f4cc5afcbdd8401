package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// KeyToken is the key under which the auth token is persisted.
const KeyToken = "token"

// ErrNotFound is returned when no value is stored under a key.
var ErrNotFound = errors.New("credential not found")

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is a durable key-value store for client credentials, backed by a
// local SQLite database. It survives restarts so a logged-in client can
// skip straight to the bootstrap fetch.
type Store struct {
	db *sql.DB
}

// New opens (and if needed creates) the credential database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get credential: %w", err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO credentials (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	return nil
}

// Delete removes the value stored under key. Deleting a missing key is not
// an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
