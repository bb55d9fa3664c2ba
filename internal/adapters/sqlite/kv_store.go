package sqlite

// Package sqlite provides the device-local SQLite key-value store used for
// persisted sessions by default.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/target/ghsession/internal/errors"
	"github.com/target/ghsession/internal/ports"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `CREATE TABLE IF NOT EXISTS kv_items (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (unixepoch())
)`

// KVStore implements ports.KeyValueStore in a single SQLite table.
type KVStore struct {
	sqlDB *sql.DB
}

var _ ports.KeyValueStore = (*KVStore)(nil)

// Open opens (creating if needed) the SQLite store at path.
// MemoryPath gives a process-local store that is lost on exit.
func Open(path string) (*KVStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("storage path is required")
	}

	var dsn string
	if path == MemoryPath {
		dsn = "file::memory:?_pragma=busy_timeout(5000)"
	} else {
		cleanPath := filepath.Clean(path)
		if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
		dsn = cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &KVStore{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *KVStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetItem returns the stored value and whether it exists.
func (s *KVStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.sqlDB == nil {
		return "", false, apperrors.Internal("storage is not configured")
	}
	if key == "" {
		return "", false, apperrors.ValidationField("key", "key cannot be empty")
	}

	var value string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM kv_items WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get item %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem upserts value under key.
func (s *KVStore) SetItem(ctx context.Context, key, value string) error {
	if s == nil || s.sqlDB == nil {
		return apperrors.Internal("storage is not configured")
	}
	if key == "" {
		return apperrors.ValidationField("key", "key cannot be empty")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO kv_items (key, value, updated_at) VALUES (?, ?, unixepoch())
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set item %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *KVStore) RemoveItem(ctx context.Context, key string) error {
	if s == nil || s.sqlDB == nil {
		return apperrors.Internal("storage is not configured")
	}
	if key == "" {
		return nil
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM kv_items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove item %s: %w", key, err)
	}
	return nil
}
