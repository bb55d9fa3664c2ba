package ports

// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/target/ghsession/internal/domain/auth"
)

// AuthorizationRequest describes one interactive authorization attempt.
type AuthorizationRequest struct {
	AuthURL     string
	State       string
	RedirectURL string
}

// AuthProvider builds authorization requests for the OAuth provider.
type AuthProvider interface {
	// Begin returns the provider authorization URL bound to a fresh state value.
	Begin(ctx context.Context) (AuthorizationRequest, error)
}

// BrowserSession drives an authorization request in a user agent and waits for
// its single completion. It blocks until the redirect arrives, the session is
// dismissed, or ctx ends.
type BrowserSession interface {
	Start(ctx context.Context, req AuthorizationRequest) (domainauth.AuthorizationResponse, error)
}

// TokenExchanger trades an authorization code for a user and bearer token.
type TokenExchanger interface {
	Authenticate(ctx context.Context, code string) (domainauth.Session, error)
}

// KeyValueStore is the persistent string store backing the session.
// GetItem reports ok=false for missing keys; RemoveItem on a missing key is not an error.
type KeyValueStore interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// SessionMetrics records session lifecycle outcomes.
type SessionMetrics interface {
	RecordRestore(result string)
	RecordSignIn(in SignInMetric)
	RecordSignOut(err error)
}

// SignInMetric describes one completed sign-in attempt.
type SignInMetric struct {
	Result   string
	Kind     domainauth.ErrorKind
	Duration time.Duration
	Err      error
}
