package redis

// Package redis provides the Redis-backed key-value store for persisted sessions.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	apperrors "github.com/target/ghsession/internal/errors"
	"github.com/target/ghsession/internal/ports"
)

// DefaultPrefix scopes session keys inside a shared Redis database.
const DefaultPrefix = "ghsession:"

// KVStore implements ports.KeyValueStore on top of Redis strings.
// Keys are stored as prefix+key; values are written verbatim.
type KVStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ ports.KeyValueStore = (*KVStore)(nil)

// KVStoreOptions configures a KVStore.
type KVStoreOptions struct {
	// Prefix defaults to DefaultPrefix; set it to "-" for no prefix.
	Prefix string
	// TTL expires persisted entries; zero keeps them until removed.
	TTL time.Duration
}

// NewKVStore creates a Redis-backed key-value store.
func NewKVStore(client redis.UniversalClient, opts KVStoreOptions) *KVStore {
	prefix := opts.Prefix
	switch prefix {
	case "":
		prefix = DefaultPrefix
	case "-":
		prefix = ""
	}
	return &KVStore{client: client, prefix: prefix, ttl: opts.TTL}
}

// GetItem returns the stored value and whether it exists.
func (s *KVStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, apperrors.ValidationField("key", "key cannot be empty")
	}

	data, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, wrapRedisError(err, "redis get %s", key)
	}
	return data, true, nil
}

// SetItem stores value under key, replacing any previous value.
func (s *KVStore) SetItem(ctx context.Context, key, value string) error {
	if key == "" {
		return apperrors.ValidationField("key", "key cannot be empty")
	}
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return wrapRedisError(err, "redis set %s", key)
	}
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *KVStore) RemoveItem(ctx context.Context, key string) error {
	if key == "" {
		return nil // Nothing to delete
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return wrapRedisError(err, "redis del %s", key)
	}
	return nil
}

func wrapRedisError(err error, format string, args ...any) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrapf(err, apperrors.ErrCodeTimeout, format, args...)
	case errors.Is(err, context.Canceled):
		return apperrors.Wrapf(err, apperrors.ErrCodeCanceled, format, args...)
	case errors.Is(err, redis.ErrClosed):
		return apperrors.Wrapf(err, apperrors.ErrCodeUnavailable, format, args...)
	default:
		return fmt.Errorf(format+": %w", append(args, err)...)
	}
}
