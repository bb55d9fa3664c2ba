package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StorageBackend selects the key-value store holding the persisted session.
type StorageBackend string

const (
	// StorageSQLite keeps the session in a device-local SQLite file (default).
	StorageSQLite StorageBackend = "sqlite"
	// StorageRedis shares the session through Redis.
	StorageRedis StorageBackend = "redis"
	// StoragePostgres shares the session through a Postgres table.
	StoragePostgres StorageBackend = "postgres"
	// StorageMemory keeps the session for the life of the process only.
	StorageMemory StorageBackend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageBackend.
func (b *StorageBackend) UnmarshalText(text []byte) error {
	v := StorageBackend(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case StorageSQLite, StorageRedis, StoragePostgres, StorageMemory:
		*b = v
		return nil
	default:
		return fmt.Errorf("invalid StorageBackend: %q (valid options: sqlite, redis, postgres, memory)", v)
	}
}

// StorageConfig groups session persistence configuration.
type StorageConfig struct {
	Backend StorageBackend `env:"STORAGE_BACKEND" envDefault:"sqlite"`
	// Namespace prefixes the persisted keys: <namespace>:user and <namespace>:token.
	Namespace string `env:"STORAGE_NAMESPACE" envDefault:"@app"`
	// SQLitePath defaults to <user config dir>/ghsession/session.db.
	SQLitePath string `env:"STORAGE_SQLITE_PATH"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"ghsession"`
	Password string `env:"PASSWORD"                envDefault:"ghsession"`
	Name     string `env:"NAME"                    envDefault:"ghsession"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the session table is created during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig points at the single Redis server sharing the session.
type RedisConfig struct {
	// URI is a redis:// or rediss:// URL, or a bare host:port.
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	// DB applies to a bare host:port URI; a URL selects its database in the path.
	DB int `env:"DB" envDefault:"0"`
	// KeyPrefix scopes session keys inside a shared Redis; "-" disables it.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"ghsession:"`
	// TTL expires persisted session keys; zero keeps them until sign-out.
	TTL time.Duration `env:"TTL" envDefault:"0s"`
}

// Sanitize fills the derived SQLite path and trims the namespace.
func (s *StorageConfig) Sanitize() {
	if s.Backend == "" {
		s.Backend = StorageSQLite
	}
	s.Namespace = strings.TrimSpace(s.Namespace)
	if s.Namespace == "" {
		s.Namespace = "@app"
	}
	s.SQLitePath = strings.TrimSpace(s.SQLitePath)
	if s.SQLitePath == "" {
		s.SQLitePath = DefaultSQLitePath()
	}
	if s.Redis.TTL < 0 {
		s.Redis.TTL = 0
	}
}

// Validate checks backend-specific requirements.
func (s *StorageConfig) Validate() error {
	if strings.ContainsAny(s.Namespace, " \t\n") {
		return errors.New("STORAGE_NAMESPACE must not contain whitespace")
	}
	if s.Backend == StorageSQLite && s.SQLitePath == "" {
		return errors.New("STORAGE_SQLITE_PATH is required for the sqlite backend")
	}
	if s.Backend == StorageRedis && strings.TrimSpace(s.Redis.URI) == "" {
		return errors.New("REDIS_URI is required for the redis backend")
	}
	if s.Redis.DB < 0 {
		return errors.New("REDIS_DB must not be negative")
	}
	return nil
}

// DefaultSQLitePath returns <user config dir>/ghsession/session.db, falling back
// to the working directory when no config dir is known.
func DefaultSQLitePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".ghsession", "session.db")
	}
	return filepath.Join(dir, "ghsession", "session.db")
}
