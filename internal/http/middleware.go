package httpx

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses working behind the logger.
func (w *respWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *respWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// LocalOnly rejects requests whose Host header is not a loopback name or address.
func LocalOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isLoopbackHost(r.Host) {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "forbidden_host",
					Err:     errForbiddenHost,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestedWithHeader marks a request as sent by a client rather than a plain
// browser form or navigation.
const RequestedWithHeader = "X-Requested-With"

// CrossSite rejects browser requests that another site initiated. A request whose
// Origin is neither a loopback address nor the request's own host is refused, as is
// one the browser marks Sec-Fetch-Site: cross-site.
func CrossSite() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Sec-Fetch-Site") == "cross-site" || !allowedOrigin(r) {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "cross_site_request",
					Err:     errCrossSite,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireNonSimple admits only requests a browser would preflight: a JSON body or
// an X-Requested-With header.
func RequireNonSimple() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isNonSimple(r) {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "simple_request",
					Err:     errSimpleRequest,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
