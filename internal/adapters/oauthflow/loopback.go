package oauthflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	domainauth "github.com/target/ghsession/internal/domain/auth"
	"github.com/target/ghsession/internal/ports"
)

const callbackPage = `<!doctype html><html><body><p>%s You can close this window.</p></body></html>`

// BrowserOpener shows authURL to the user.
type BrowserOpener func(ctx context.Context, authURL string) error

// LoopbackConfig configures a LoopbackSession.
type LoopbackConfig struct {
	// RedirectURL is the http://127.0.0.1:<port>/<path> address registered with the OAuth app.
	// Port 0 picks a free port and rewrites redirect_uri in the authorization URL.
	RedirectURL string
	Open        BrowserOpener
	Logger      *slog.Logger
}

// LoopbackSession implements ports.BrowserSession by opening the authorization URL in the
// system browser and listening on a loopback address for the provider redirect.
type LoopbackSession struct {
	redirect *url.URL
	open     BrowserOpener
	logger   *slog.Logger
}

var _ ports.BrowserSession = (*LoopbackSession)(nil)

// NewLoopbackSession validates cfg and constructs a LoopbackSession.
func NewLoopbackSession(cfg LoopbackConfig) (*LoopbackSession, error) {
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	u, err := url.Parse(cfg.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("parse redirect URL: %w", err)
	}
	if u.Scheme != "http" || u.Port() == "" {
		return nil, fmt.Errorf("redirect URL must be http://host:port/path, got %q", cfg.RedirectURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}

	open := cfg.Open
	if open == nil {
		open = SystemBrowser(os.Stderr)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LoopbackSession{redirect: u, open: open, logger: logger}, nil
}

// Start listens for the redirect, opens the browser, and blocks until the provider
// redirects back or ctx ends.
func (s *LoopbackSession) Start(
	ctx context.Context,
	req ports.AuthorizationRequest,
) (domainauth.AuthorizationResponse, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.redirect.Host)
	if err != nil {
		return domainauth.AuthorizationResponse{}, fmt.Errorf("listen on %s: %w", s.redirect.Host, err)
	}

	authURL, err := s.bindRedirect(req.AuthURL, ln.Addr())
	if err != nil {
		_ = ln.Close()
		return domainauth.AuthorizationResponse{}, err
	}

	results := make(chan domainauth.AuthorizationResponse, 1)
	var once sync.Once
	deliver := func(resp domainauth.AuthorizationResponse) {
		once.Do(func() { results <- resp })
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+s.redirect.Path, s.callbackHandler(req.State, deliver))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.DebugContext(ctx, "loopback shutdown", "error", err)
		}
	}()

	s.logger.InfoContext(ctx, "waiting for authorization redirect", "addr", ln.Addr().String())
	if err := s.open(ctx, authURL); err != nil {
		return domainauth.AuthorizationResponse{}, fmt.Errorf("open browser: %w", err)
	}

	select {
	case resp := <-results:
		return resp, nil
	case err := <-serveErr:
		return domainauth.AuthorizationResponse{}, fmt.Errorf("serve callback: %w", err)
	case <-ctx.Done():
		return domainauth.AuthorizationResponse{Type: domainauth.ResponseDismiss}, ctx.Err()
	}
}

func (s *LoopbackSession) callbackHandler(
	wantState string,
	deliver func(domainauth.AuthorizationResponse),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := domainauth.AuthorizationParams{
			Code:  q.Get("code"),
			Error: q.Get("error"),
			State: q.Get("state"),
		}

		// A redirect without the issued state did not come from this attempt.
		// It is refused and the attempt keeps waiting.
		if wantState != "" && params.State != wantState {
			s.logger.WarnContext(r.Context(), "ignoring callback with unexpected state")
			s.writePage(w, r, http.StatusBadRequest, "Unexpected sign in request.")
			return
		}

		resp := domainauth.AuthorizationResponse{Type: domainauth.ResponseSuccess, Params: params}
		message := "Signed in."
		status := http.StatusOK
		switch {
		case params.Error != "":
			resp.Type = domainauth.ResponseError
			message = "Sign in was not completed."
		case params.Code == "":
			resp.Type = domainauth.ResponseError
			resp.Params.Error = "missing_code"
			message = "Sign in failed: no authorization code."
			status = http.StatusBadRequest
		}

		s.writePage(w, r, status, message)
		deliver(resp)
	}
}

func (s *LoopbackSession) writePage(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := fmt.Fprintf(w, callbackPage, message); err != nil {
		s.logger.DebugContext(r.Context(), "write callback page", "error", err)
	}
}

// bindRedirect rewrites redirect_uri when the configured port was 0.
func (s *LoopbackSession) bindRedirect(authURL string, addr net.Addr) (string, error) {
	if s.redirect.Port() != "0" {
		return authURL, nil
	}
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected listener address %T", addr)
	}
	u, err := url.Parse(authURL)
	if err != nil {
		return "", fmt.Errorf("parse authorization URL: %w", err)
	}
	redirect := *s.redirect
	redirect.Host = net.JoinHostPort(s.redirect.Hostname(), strconv.Itoa(tcp.Port))
	q := u.Query()
	q.Set("redirect_uri", redirect.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SystemBrowser returns a BrowserOpener that prints the URL to out and asks the
// operating system to open it. Failure to launch a browser is not an error; the
// printed URL can be opened by hand.
func SystemBrowser(out io.Writer) BrowserOpener {
	return func(ctx context.Context, authURL string) error {
		if out != nil {
			if _, err := fmt.Fprintf(out, "Open this URL to sign in:\n\n  %s\n\n", authURL); err != nil {
				return err
			}
		}
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.CommandContext(ctx, "open", authURL)
		case "windows":
			cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", authURL)
		default:
			cmd = exec.CommandContext(ctx, "xdg-open", authURL)
		}
		if err := cmd.Start(); err != nil {
			slog.Default().DebugContext(ctx, "could not launch browser", "error", err)
			return nil
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
}
