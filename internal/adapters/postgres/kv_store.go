package postgres

// Package postgres provides a Postgres-backed key-value store so several
// hosts can share one persisted session.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/target/ghsession/internal/errors"
	"github.com/target/ghsession/internal/ports"
)

// KVStore implements ports.KeyValueStore on the session_kv table
// (see internal/migrate).
type KVStore struct {
	db *sql.DB
}

var _ ports.KeyValueStore = (*KVStore)(nil)

// NewKVStore wraps an open database handle. The caller runs migrations and owns db.
func NewKVStore(db *sql.DB) (*KVStore, error) {
	if db == nil {
		return nil, errors.New("database handle is required")
	}
	return &KVStore{db: db}, nil
}

// GetItem returns the stored value and whether it exists.
func (s *KVStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, apperrors.ValidationField("key", "key cannot be empty")
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get item %s: %w", key, mapped)
	}
	return value, true, nil
}

// SetItem upserts value under key.
func (s *KVStore) SetItem(ctx context.Context, key, value string) error {
	if key == "" {
		return apperrors.ValidationField("key", "key cannot be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_kv (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set item %s: %w", key, apperrors.MapDBError(err))
	}
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *KVStore) RemoveItem(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("remove item %s: %w", key, apperrors.MapDBError(err))
	}
	return nil
}
