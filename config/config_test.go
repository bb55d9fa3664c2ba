package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseConfig(t *testing.T, vars map[string]string) AppConfig {
	t.Helper()
	var cfg AppConfig
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: vars}))
	cfg.Sanitize()
	return cfg
}

func TestAppConfig_Defaults(t *testing.T) {
	cfg := parseConfig(t, map[string]string{})

	assert.Equal(t, AuthModeOAuth, cfg.Auth.Mode)
	assert.Equal(t, "read:user", cfg.Auth.OAuth.Scope)
	assert.Equal(t, "http://127.0.0.1:8976/callback", cfg.Auth.OAuth.RedirectURL)
	assert.Equal(t, 10*time.Second, cfg.Auth.API.Timeout)
	assert.Equal(t, "user", cfg.Auth.API.UserExpr)
	assert.Equal(t, "token", cfg.Auth.API.TokenExpr)

	assert.Equal(t, StorageSQLite, cfg.Storage.Backend)
	assert.Equal(t, "@app", cfg.Storage.Namespace)
	assert.Equal(t, "session.db", filepath.Base(cfg.Storage.SQLitePath))
	assert.Equal(t, "ghsession:", cfg.Storage.Redis.KeyPrefix)

	assert.Equal(t, "127.0.0.1:8977", cfg.Agent.Addr)
	assert.True(t, cfg.Agent.ProxyEnabled)

	assert.Equal(t, MetricsNone, cfg.Observability.Metrics.Backend)
	assert.Equal(t, slog.LevelInfo, cfg.Observability.SlogLevel())
}

func TestAppConfig_FromEnvironment(t *testing.T) {
	cfg := parseConfig(t, map[string]string{
		"AUTH_MODE":                     "OAuth",
		"OAUTH_CLIENT_ID":               " 648177b13d0e7574397e ",
		"OAUTH_SCOPE":                   "read:user user:email",
		"API_BASE_URL":                  "https://api.example.com/",
		"API_TIMEOUT":                   "3s",
		"STORAGE_BACKEND":               "redis",
		"STORAGE_NAMESPACE":             "@heat",
		"REDIS_URI":                     "redis://localhost:6379/2",
		"REDIS_TTL":                     "720h",
		"AGENT_ADDR":                    "127.0.0.1:9999",
		"LOG_LEVEL":                     "DEBUG",
		"OBSERVABILITY_METRICS_BACKEND": "prometheus",
	})

	assert.Equal(t, "648177b13d0e7574397e", cfg.Auth.OAuth.ClientID)
	assert.Equal(t, "read:user user:email", cfg.Auth.OAuth.Scope)
	assert.Equal(t, "https://api.example.com", cfg.Auth.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Auth.API.Timeout)
	assert.Equal(t, StorageRedis, cfg.Storage.Backend)
	assert.Equal(t, "@heat", cfg.Storage.Namespace)
	assert.Equal(t, 720*time.Hour, cfg.Storage.Redis.TTL)
	assert.Equal(t, "127.0.0.1:9999", cfg.Agent.Addr)
	assert.Equal(t, slog.LevelDebug, cfg.Observability.SlogLevel())
	assert.Equal(t, MetricsPrometheus, cfg.Observability.Metrics.Backend)
	require.NoError(t, cfg.Validate())
}

func TestAppConfig_InvalidEnums(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{name: "auth mode", vars: map[string]string{"AUTH_MODE": "saml"}},
		{name: "storage backend", vars: map[string]string{"STORAGE_BACKEND": "etcd"}},
		{name: "metrics backend", vars: map[string]string{"OBSERVABILITY_METRICS_BACKEND": "datadog"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg AppConfig
			err := env.ParseWithOptions(&cfg, env.Options{Environment: tt.vars})
			require.Error(t, err)
		})
	}
}

func TestAuthConfig_Validate(t *testing.T) {
	t.Run("oauth requires client id and api base url", func(t *testing.T) {
		cfg := parseConfig(t, map[string]string{})
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OAUTH_CLIENT_ID")
		assert.Contains(t, err.Error(), "API_BASE_URL")
	})

	t.Run("mock needs only a login", func(t *testing.T) {
		cfg := parseConfig(t, map[string]string{"AUTH_MODE": "mock"})
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "octocat", cfg.Auth.DevAuth.Login)
	})

	t.Run("mock with blank login", func(t *testing.T) {
		cfg := parseConfig(t, map[string]string{"AUTH_MODE": "mock", "DEV_AUTH_LOGIN": " "})
		require.Error(t, cfg.Validate())
	})
}

func TestStorageConfig_Sanitize(t *testing.T) {
	s := StorageConfig{Namespace: "  ", SQLitePath: " /tmp/s.db ", Redis: RedisConfig{TTL: -time.Second}}
	s.Sanitize()

	assert.Equal(t, StorageSQLite, s.Backend)
	assert.Equal(t, "@app", s.Namespace)
	assert.Equal(t, "/tmp/s.db", s.SQLitePath)
	assert.Zero(t, s.Redis.TTL)
}

func TestStorageConfig_ValidateNamespace(t *testing.T) {
	s := StorageConfig{Backend: StorageMemory, Namespace: "@my app"}
	require.Error(t, s.Validate())
}

func TestStorageConfig_ValidateRedis(t *testing.T) {
	s := StorageConfig{Backend: StorageRedis, Namespace: "@app", Redis: RedisConfig{URI: " "}}
	require.ErrorContains(t, s.Validate(), "REDIS_URI")

	s.Redis = RedisConfig{URI: "localhost:6379", DB: -1}
	require.ErrorContains(t, s.Validate(), "REDIS_DB")

	s.Redis.DB = 3
	require.NoError(t, s.Validate())
}

func TestObservabilityConfig_StatsdWithoutAddressDisables(t *testing.T) {
	cfg := parseConfig(t, map[string]string{
		"OBSERVABILITY_METRICS_BACKEND":        "statsd",
		"OBSERVABILITY_METRICS_STATSD_ADDRESS": "  ",
	})
	assert.Equal(t, MetricsNone, cfg.Observability.Metrics.Backend)
}

func TestObservabilityConfig_BadLogLevelFallsBackToInfo(t *testing.T) {
	c := ObservabilityConfig{LogLevel: "verbose"}
	assert.Equal(t, slog.LevelInfo, c.SlogLevel())
}

func TestAgentConfig_Sanitize(t *testing.T) {
	a := AgentConfig{Addr: " ", ShutdownTimeout: -1, EventsHeartbeat: time.Millisecond}
	a.Sanitize()

	assert.Equal(t, "127.0.0.1:8977", a.Addr)
	assert.Equal(t, 10*time.Second, a.ShutdownTimeout)
	assert.Equal(t, time.Second, a.EventsHeartbeat)
}

func TestDetectDevMode(t *testing.T) {
	t.Setenv("GHSESSION_ENV", "development")
	cfg := AppConfig{}
	cfg.Sanitize()
	assert.True(t, cfg.IsDev)
}
