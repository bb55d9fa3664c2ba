package config

import (
	"strings"
	"time"
)

// AgentConfig contains the local agent HTTP server configuration.
type AgentConfig struct {
	// Addr is the address to bind the agent to. Keep it on loopback: the agent
	// hands out the session to any caller that can reach it.
	Addr string `env:"AGENT_ADDR" envDefault:"127.0.0.1:8977"`

	// ProxyEnabled mounts /api/* as an authorized reverse proxy to API_BASE_URL.
	ProxyEnabled bool `env:"AGENT_PROXY_ENABLED" envDefault:"true"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"AGENT_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// EventsHeartbeat is the keep-alive interval on /session/events.
	EventsHeartbeat time.Duration `env:"AGENT_EVENTS_HEARTBEAT" envDefault:"25s"`
}

// Sanitize applies guardrails to agent configuration values.
func (a *AgentConfig) Sanitize() {
	a.Addr = strings.TrimSpace(a.Addr)
	if a.Addr == "" {
		a.Addr = "127.0.0.1:8977"
	}
	if a.ShutdownTimeout <= 0 {
		a.ShutdownTimeout = 10 * time.Second
	}
	if a.EventsHeartbeat < time.Second {
		a.EventsHeartbeat = time.Second
	}
}
