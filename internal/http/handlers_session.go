// Package httpx serves the local session agent API.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/target/ghsession/internal/domain/auth"
)

// DefaultHeartbeat is the interval between keep-alive comments on the events stream.
const DefaultHeartbeat = 15 * time.Second

// SessionService is the part of the session manager the agent exposes.
type SessionService interface {
	State() domainauth.State
	Subscribe() (<-chan domainauth.State, func())
	SignIn(ctx context.Context) (domainauth.Session, error)
	SignOut(ctx context.Context) error
}

// SessionHandlers provides HTTP handlers for the session lifecycle.
type SessionHandlers struct {
	Svc       SessionService
	Heartbeat time.Duration
	Logger    *slog.Logger
}

func (h *SessionHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Get returns the current session state. The bearer token is never included.
func (h *SessionHandlers) Get(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.Svc.State())
}

// SignIn runs an interactive sign-in and blocks until it completes. A request that
// arrives while another sign-in is pending joins it.
func (h *SessionHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.SignIn(r.Context())
	if err != nil {
		writeAuthError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, domainauth.State{
		User:  &sess.User,
		Phase: domainauth.PhaseSignedIn,
	})
}

// SignOut clears the session. Memory is cleared even when storage removal fails,
// in which case the response is 500 and the state is signed out.
func (h *SessionHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.SignOut(r.Context()); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "storage", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, h.Svc.State())
}

// Events streams state changes as server-sent events. The first event is the current state.
func (h *SessionHandlers) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "streaming_unsupported",
			Err:     fmt.Errorf("response writer %T cannot flush", w),
		})
		return
	}

	states, unsubscribe := h.Svc.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case st, open := <-states:
			if !open {
				return
			}
			if err := writeStateEvent(w, st); err != nil {
				h.logger().DebugContext(ctx, "events stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeStateEvent(w http.ResponseWriter, st domainauth.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
	return err
}
