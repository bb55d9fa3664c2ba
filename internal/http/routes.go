package httpx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouterOptions holds everything the agent router serves.
type RouterOptions struct {
	Session SessionService
	// Proxy serves /api/*; nil leaves the prefix unrouted.
	Proxy http.Handler
	// Metrics serves /metrics; nil leaves it unrouted.
	Metrics http.Handler
	// AllowRemote disables the loopback Host check.
	AllowRemote bool
	Handlers    *SessionHandlers
	Logger      *slog.Logger
}

// NewRouter builds the agent router.
//
// Middleware order: Recover -> Logging -> LocalOnly -> CrossSite -> routes.
// The sign-in, sign-out and /api routes also require a non-simple request.
func NewRouter(opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := opts.Handlers
	if h == nil {
		h = &SessionHandlers{Svc: opts.Session, Logger: logger}
	}

	r := chi.NewRouter()
	r.Use(Recover(logger))
	r.Use(Logging(logger))
	if !opts.AllowRemote {
		r.Use(LocalOnly())
	}
	r.Use(CrossSite())
	nonSimple := RequireNonSimple()

	r.Get("/healthz", healthHandler)
	r.Head("/healthz", healthHandler)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.Get)
		r.With(nonSimple).Post("/signin", h.SignIn)
		r.With(nonSimple).Post("/signout", h.SignOut)
		r.Get("/events", h.Events)
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	if opts.Proxy != nil {
		r.Mount("/api", nonSimple(http.StripPrefix("/api", opts.Proxy)))
	}

	return r
}
