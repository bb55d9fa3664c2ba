package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	httpx "github.com/target/ghsession/internal/http"
)

// AgentServer is a running agent HTTP server.
type AgentServer struct {
	Server *http.Server
	Addr   net.Addr
	errs   chan error
}

// Err reports a serve failure after startup. It never yields http.ErrServerClosed.
func (a *AgentServer) Err() <-chan error { return a.errs }

// StartAgent binds the agent address and serves the session API in the background.
// Binding happens before return so address conflicts surface to the caller.
func StartAgent(ctx context.Context, rt *Runtime) (*AgentServer, error) {
	if rt == nil || rt.Session == nil {
		return nil, errors.New("runtime is required")
	}
	logger := rt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := rt.Config

	var proxy http.Handler
	if cfg.Agent.ProxyEnabled && cfg.Auth.API.BaseURL != "" {
		upstream, err := url.Parse(cfg.Auth.API.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse API_BASE_URL: %w", err)
		}
		proxy, err = httpx.NewAPIProxy(httpx.ProxyOptions{
			Upstream: upstream,
			Source:   rt.Session,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
	}

	handler := httpx.NewRouter(httpx.RouterOptions{
		Session: rt.Session,
		Proxy:   proxy,
		Metrics: metricsHandler(rt.Metrics),
		Handlers: &httpx.SessionHandlers{
			Svc:       rt.Session,
			Heartbeat: cfg.Agent.EventsHeartbeat,
			Logger:    logger,
		},
		Logger: logger,
	})

	addr := cfg.Agent.Addr
	if addr == "" {
		addr = "127.0.0.1:8977"
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	// No write timeout: sign-in waits on the browser and /session/events streams.
	// Request contexts end at shutdown so open streams do not hold it up.
	baseCtx, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelBase)
	agent := &AgentServer{Server: server, Addr: ln.Addr(), errs: make(chan error, 1)}

	go func() {
		logger.Info("starting agent", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("agent server failed", "error", err)
			agent.errs <- err
		}
	}()

	return agent, nil
}

// ShutdownAgent gracefully shuts down the agent server within timeout.
func ShutdownAgent(ctx context.Context, agent *AgentServer, timeout time.Duration, logger *slog.Logger) error {
	if agent == nil || agent.Server == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	logger.Info("shutting down agent")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := agent.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("agent stopped")
	return nil
}

func metricsHandler(m *Metrics) http.Handler {
	if m == nil {
		return nil
	}
	return m.Handler
}
