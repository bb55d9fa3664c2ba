package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/target/ghsession/internal/adapters/authapi"
)

// ProxyOptions configures the upstream API proxy.
type ProxyOptions struct {
	Upstream *url.URL
	Source   oauth2.TokenSource
	// Base is the transport under the bearer transport; nil means http.DefaultTransport.
	Base   http.RoundTripper
	Logger *slog.Logger
}

// NewAPIProxy returns a reverse proxy to the upstream API that authorizes every request
// with the current session. Caller-supplied Authorization headers are dropped.
func NewAPIProxy(opts ProxyOptions) (http.Handler, error) {
	if opts.Upstream == nil || opts.Upstream.Host == "" {
		return nil, errors.New("upstream URL is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	target := opts.Upstream
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Authorization")
			pr.Out.Host = target.Host
		},
		Transport: &authapi.BearerTransport{Source: opts.Source, Base: opts.Base},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.WarnContext(r.Context(), "upstream request failed",
				"path", r.URL.Path, "error", err)
			WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "upstream_unavailable", Err: err})
		},
	}
	return proxy, nil
}
