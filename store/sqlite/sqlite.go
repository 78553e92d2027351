/*
Package sqlite provides a SQLite-backed implementation of generic.Store.

PURPOSE:
  Durable key-value persistence for the engine. Every record (wage config,
  history, active session, plans) is one row; the value column holds the
  JSON text produced by the factory codecs.

KEY TABLE:
  kv:
    key         TEXT PRIMARY KEY
    value       TEXT        raw string or JSON text
    kind        TEXT        'string' | 'object' | 'array'
    updated_at  TEXT        RFC3339, informational

  kind is checked on write and on read so that a map is never silently
  returned where a list is expected.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single open connection so
  that ":memory:" databases behave like one database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Every Set is durable once it returns

USAGE:
  kv, err := sqlite.New("./data/worktime.db")
  if err != nil {
      return err
  }
  defer kv.Close()

  gw := store.NewGateway(kv)

SEE ALSO:
  - generic/store.go: Interface definition
  - generic/store/memory.go: In-memory implementation for testing
  - store/gateway.go: Typed repositories over this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/worktime-engine/generic"
)

const (
	kindString = "string"
	kindObject = "object"
	kindArray  = "array"
)

// Store implements generic.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('string', 'object', 'array')),
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// generic.Store
// =============================================================================

func (s *Store) GetString(ctx context.Context, key string) (string, error) {
	value, _, err := s.get(ctx, key)
	return value, err
}

func (s *Store) SetString(ctx context.Context, key, value string) error {
	return s.put(ctx, key, value, kindString)
}

func (s *Store) GetMap(ctx context.Context, key string) (json.RawMessage, error) {
	return s.getJSON(ctx, key, kindObject)
}

func (s *Store) SetMap(ctx context.Context, key string, value json.RawMessage) error {
	if !generic.IsJSONObject(value) {
		return fmt.Errorf("sqlite store: value for %q is not a JSON object", key)
	}
	return s.put(ctx, key, string(value), kindObject)
}

func (s *Store) GetList(ctx context.Context, key string) (json.RawMessage, error) {
	return s.getJSON(ctx, key, kindArray)
}

func (s *Store) SetList(ctx context.Context, key string, value json.RawMessage) error {
	if !generic.IsJSONArray(value) {
		return fmt.Errorf("sqlite store: value for %q is not a JSON array", key)
	}
	return s.put(ctx, key, string(value), kindArray)
}

func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM kv")
	return err
}

// =============================================================================
// INSPECTION
// =============================================================================

// Entry describes one stored key without its value.
type Entry struct {
	Key       string
	Kind      string
	Size      int
	UpdatedAt time.Time
}

// Entries lists every key, ordered by key.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT key, kind, LENGTH(value), updated_at FROM kv ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var updatedAt string
		if err := rows.Scan(&e.Key, &e.Kind, &e.Size, &updatedAt); err != nil {
			return nil, err
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) get(ctx context.Context, key string) (value, kind string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.db.QueryRowContext(ctx, "SELECT value, kind FROM kv WHERE key = ?", key).Scan(&value, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", generic.ErrKeyNotFound
	}
	if err != nil {
		return "", "", err
	}
	return value, kind, nil
}

func (s *Store) getJSON(ctx context.Context, key, want string) (json.RawMessage, error) {
	value, kind, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if kind != want {
		return nil, fmt.Errorf("sqlite store: key %q holds %s, not %s", key, kind, want)
	}
	return json.RawMessage(value), nil
}

func (s *Store) put(ctx context.Context, key, value, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO kv (key, value, kind, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			kind = excluded.kind,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query, key, value, kind, now)
	return err
}
