package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/ghsession/config"
	"github.com/target/ghsession/internal/adapters/authapi"
	"github.com/target/ghsession/internal/adapters/devauth"
	"github.com/target/ghsession/internal/adapters/oauthflow"
	"github.com/target/ghsession/internal/ports"
	"github.com/target/ghsession/internal/service"
)

// BuildOptions carries process-level collaborators that are not configuration.
type BuildOptions struct {
	Logger *slog.Logger
	// Open shows the authorization URL; nil uses the system browser.
	Open oauthflow.BrowserOpener
	// Store overrides the configured backend (tests).
	Store ports.KeyValueStore
}

// Runtime is a fully wired session manager and the resources behind it.
type Runtime struct {
	Config  config.AppConfig
	Logger  *slog.Logger
	Session *service.SessionManager
	Store   *Store
	Metrics *Metrics
}

// Close releases the store and metrics backend.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	return errors.Join(r.Store.Close(), r.Metrics.Close())
}

// Build wires the session manager from cfg. It does not restore the session;
// callers run Restore once the runtime is ready.
func Build(ctx context.Context, cfg config.AppConfig, opts BuildOptions) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	auth, err := buildAuthAdapters(cfg, opts, logger)
	if err != nil {
		return nil, err
	}

	m, err := BuildMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	store := &Store{KeyValueStore: opts.Store, Backend: cfg.Storage.Backend}
	if opts.Store == nil {
		store, err = OpenStore(ctx, cfg.Storage, logger)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("storage: %w", err), m.Close())
		}
	}

	mgr, err := service.NewSessionManager(service.SessionManagerOptions{
		Provider:  auth.provider,
		Browser:   auth.browser,
		Exchanger: auth.exchanger,
		Store:     store,
		Namespace: cfg.Storage.Namespace,
		Metrics:   m.Recorder,
		Logger:    logger,
	})
	if err != nil {
		return nil, errors.Join(err, store.Close(), m.Close())
	}

	logger.DebugContext(ctx, "session manager wired",
		"auth_mode", cfg.Auth.Mode,
		"storage", store.Backend,
		"metrics", cfg.Observability.Metrics.Backend)

	return &Runtime{Config: cfg, Logger: logger, Session: mgr, Store: store, Metrics: m}, nil
}

type authAdapters struct {
	provider  ports.AuthProvider
	browser   ports.BrowserSession
	exchanger ports.TokenExchanger
}

func buildAuthAdapters(cfg config.AppConfig, opts BuildOptions, logger *slog.Logger) (authAdapters, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		if !cfg.IsDev {
			return authAdapters{}, errors.New("AUTH_MODE=mock requires development mode (DEV=true)")
		}
		dev, err := devauth.NewProvider(devauth.Config{
			UserID:    cfg.Auth.DevAuth.UserID,
			Login:     cfg.Auth.DevAuth.Login,
			Name:      cfg.Auth.DevAuth.Name,
			AvatarURL: cfg.Auth.DevAuth.AvatarURL,
			Token:     cfg.Auth.DevAuth.Token,
		})
		if err != nil {
			return authAdapters{}, err
		}
		logger.Warn("mock sign-in enabled", "login", dev.User().Login)
		return authAdapters{provider: dev, browser: dev, exchanger: dev}, nil

	case config.AuthModeOAuth, "":
		provider, err := oauthflow.NewProvider(oauthflow.ProviderConfig{
			ClientID:     cfg.Auth.OAuth.ClientID,
			ClientSecret: cfg.Auth.OAuth.ClientSecret,
			RedirectURL:  cfg.Auth.OAuth.RedirectURL,
			Scope:        cfg.Auth.OAuth.Scope,
			AuthorizeURL: cfg.Auth.OAuth.AuthorizeURL,
		})
		if err != nil {
			return authAdapters{}, fmt.Errorf("oauth provider: %w", err)
		}
		browser, err := oauthflow.NewLoopbackSession(oauthflow.LoopbackConfig{
			RedirectURL: cfg.Auth.OAuth.RedirectURL,
			Open:        opts.Open,
			Logger:      logger,
		})
		if err != nil {
			return authAdapters{}, fmt.Errorf("browser session: %w", err)
		}
		exchanger, err := authapi.NewClient(authapi.Config{
			BaseURL:   cfg.Auth.API.BaseURL,
			Timeout:   cfg.Auth.API.Timeout,
			UserExpr:  cfg.Auth.API.UserExpr,
			TokenExpr: cfg.Auth.API.TokenExpr,
		})
		if err != nil {
			return authAdapters{}, fmt.Errorf("exchange client: %w", err)
		}
		return authAdapters{provider: provider, browser: browser, exchanger: exchanger}, nil

	default:
		return authAdapters{}, fmt.Errorf("unsupported AUTH_MODE %q", cfg.Auth.Mode)
	}
}
