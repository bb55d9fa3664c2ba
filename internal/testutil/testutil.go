// Package testutil connects store integration tests to Postgres and Redis.
// A test whose backend is unreachable is skipped, unless TEST_REQUIRE_INFRA
// (or TEST_REQUIRE_DB / TEST_REQUIRE_REDIS) turns the skip into a failure.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	"github.com/redis/go-redis/v9"

	"github.com/target/ghsession/internal/migrate"
)

const backendTimeout = 3 * time.Second

// TestDBConfig holds configuration for test database.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig reads TEST_DB_*. The default port 55432 is the local
// docker-compose test database; CI sets TEST_DB_PORT=5432.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "55432"),
		User:     getEnvOrDefault("TEST_DB_USER", "ghsession"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "ghsession"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "ghsession"),
	}
}

// DSN renders the config as a pgx connection string.
func (c TestDBConfig) DSN() string {
	hostPort := net.JoinHostPort(c.Host, c.Port)
	sslMode := getEnvOrDefault("DB_SSL_MODE", "disable")
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s", c.User, c.Password, hostPort, c.DBName, sslMode)
}

// SetupTestDB returns a migrated database whose session_kv table is empty at the
// start and end of the test.
func SetupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", DefaultTestDBConfig().DSN())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { closeAndLog(t, "test database", db) })

	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		unavailable(t, "TEST_REQUIRE_DB", "postgres", err)
	}
	if err := migrate.Run(ctx, db, nil); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	clearSessions(t, db)
	t.Cleanup(func() { clearSessions(t, db) })
	return db
}

func clearSessions(t testing.TB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, "DELETE FROM session_kv"); err != nil {
		t.Fatalf("clear session_kv: %v", err)
	}
}

// SetupTestRedis returns a client on an emptied Redis database. The server is
// TEST_REDIS_ADDR (default localhost:56379) and the database TEST_REDIS_DB
// (default 15), so tests never touch the database a real session uses.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	db, err := strconv.Atoi(getEnvOrDefault("TEST_REDIS_DB", "15"))
	if err != nil || db < 0 {
		t.Fatalf("invalid TEST_REDIS_DB %q", os.Getenv("TEST_REDIS_DB"))
	}
	client := redis.NewClient(&redis.Options{
		Addr: getEnvOrDefault("TEST_REDIS_ADDR", "localhost:56379"),
		DB:   db,
	})
	t.Cleanup(func() { closeAndLog(t, "test redis", client) })

	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		unavailable(t, "TEST_REQUIRE_REDIS", "redis", err)
	}

	flush := func() {
		ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
		defer cancel()
		if err := client.FlushDB(ctx).Err(); err != nil {
			t.Logf("flush test redis: %v", err)
		}
	}
	flush()
	t.Cleanup(flush)
	return client
}

// SetEnv sets key for the duration of the test.
func SetEnv(t testing.TB, key, value string) {
	t.Helper()
	t.Setenv(key, value)
}

// UnsetEnv clears key for the duration of the test.
func UnsetEnv(t testing.TB, key string) {
	t.Helper()
	// Setenv registers the restore of the previous value.
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

// unavailable skips the test, or fails it when requireVar or TEST_REQUIRE_INFRA is set.
func unavailable(t testing.TB, requireVar, backend string, err error) {
	t.Helper()
	if envBool(requireVar) || envBool("TEST_REQUIRE_INFRA") {
		t.Fatalf("%s not available: %v", backend, err)
	}
	t.Skipf("%s not available: %v", backend, err)
}

func closeAndLog(t testing.TB, name string, closer interface{ Close() error }) {
	if err := closer.Close(); err != nil {
		t.Logf("close %s: %v", name, err)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
