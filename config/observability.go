package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// MetricsBackend selects where session metrics go.
type MetricsBackend string

const (
	MetricsNone       MetricsBackend = "none"
	MetricsStatsd     MetricsBackend = "statsd"
	MetricsPrometheus MetricsBackend = "prometheus"
)

// UnmarshalText implements encoding.TextUnmarshaler for MetricsBackend.
func (m *MetricsBackend) UnmarshalText(text []byte) error {
	v := MetricsBackend(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case MetricsNone, MetricsStatsd, MetricsPrometheus:
		*m = v
		return nil
	case "":
		*m = MetricsNone
		return nil
	default:
		return fmt.Errorf("invalid MetricsBackend: %q (valid options: none, statsd, prometheus)", v)
	}
}

// ObservabilityConfig groups configuration that controls logging and metrics.
type ObservabilityConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Metrics  ObservabilityMetricsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Metrics.Sanitize()
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *ObservabilityConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ObservabilityMetricsConfig controls emission of metrics to StatsD or Prometheus.
type ObservabilityMetricsConfig struct {
	Backend       MetricsBackend `env:"OBSERVABILITY_METRICS_BACKEND"        envDefault:"none"`
	StatsdAddress string         `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	StatsdPrefix  string         `env:"OBSERVABILITY_METRICS_STATSD_PREFIX"  envDefault:"ghsession"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = MetricsNone
	}
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.Backend == MetricsStatsd && c.StatsdAddress == "" {
		c.Backend = MetricsNone
	}
}
