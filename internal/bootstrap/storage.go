package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/ghsession/config"
	"github.com/target/ghsession/internal/adapters/postgres"
	redisstore "github.com/target/ghsession/internal/adapters/redis"
	"github.com/target/ghsession/internal/adapters/sqlite"
	"github.com/target/ghsession/internal/ports"
)

// Store is an opened session backend together with its release hook.
type Store struct {
	ports.KeyValueStore
	Backend config.StorageBackend
	close   func() error
}

// Close releases the backend's connections. It is safe to call on a nil Store.
func (s *Store) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore connects the configured key-value backend.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case config.StorageSQLite, "":
		kv, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.DebugContext(ctx, "session store opened", "backend", "sqlite", "path", cfg.SQLitePath)
		return &Store{KeyValueStore: kv, Backend: config.StorageSQLite, close: kv.Close}, nil

	case config.StorageMemory:
		kv, err := sqlite.Open(sqlite.MemoryPath)
		if err != nil {
			return nil, err
		}
		return &Store{KeyValueStore: kv, Backend: config.StorageMemory, close: kv.Close}, nil

	case config.StorageRedis:
		client, err := ConnectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		kv := redisstore.NewKVStore(client, redisstore.KVStoreOptions{
			Prefix: cfg.Redis.KeyPrefix,
			TTL:    cfg.Redis.TTL,
		})
		return &Store{KeyValueStore: kv, Backend: config.StorageRedis, close: client.Close}, nil

	case config.StoragePostgres:
		db, err := ConnectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrationsOnStart {
			if err := RunMigrations(ctx, db, logger); err != nil {
				return nil, errors.Join(err, db.Close())
			}
		}
		kv, err := postgres.NewKVStore(db)
		if err != nil {
			return nil, errors.Join(err, db.Close())
		}
		return &Store{KeyValueStore: kv, Backend: config.StoragePostgres, close: db.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
