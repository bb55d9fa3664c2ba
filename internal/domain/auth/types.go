package auth

// Package auth contains domain-level types for the GitHub session lifecycle.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"fmt"
)

// User is the signed-in principal as returned by the authentication backend.
// JSON field names match the persisted and wire representation.
type User struct {
	ID        string `json:"id"`
	AvatarURL string `json:"avatar_url"`
	Name      string `json:"name"`
	Login     string `json:"login"`
}

// Session pairs a user with the bearer credential issued for them.
// Both halves are persisted and cleared together.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Valid reports whether the session carries a usable user and token.
func (s Session) Valid() bool { return s.User.ID != "" && s.Token != "" }

// Phase is the lifecycle position of the session manager.
type Phase string

const (
	PhaseRestoring Phase = "restoring"
	PhaseSignedOut Phase = "signed_out"
	PhaseSigningIn Phase = "signing_in"
	PhaseSignedIn  Phase = "signed_in"
)

// State is the consumer-visible view of the session manager.
type State struct {
	User        *User `json:"user"`
	IsSigningIn bool  `json:"is_signing_in"`
	Phase       Phase `json:"phase"`
}

// SignedIn reports whether a user is present.
func (s State) SignedIn() bool { return s.User != nil }

// ResponseType is the outcome of an interactive browser session.
type ResponseType string

const (
	ResponseSuccess ResponseType = "success"
	ResponseError   ResponseType = "error"
	ResponseDismiss ResponseType = "dismiss"
)

// ErrorAccessDenied is the OAuth error code sent when the user declines.
const ErrorAccessDenied = "access_denied"

// AuthorizationParams are the redirect parameters delivered by the provider.
type AuthorizationParams struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
	State string `json:"state,omitempty"`
}

// AuthorizationResponse is the single-shot completion of a browser session.
type AuthorizationResponse struct {
	Type   ResponseType        `json:"type"`
	Params AuthorizationParams `json:"params"`
}

// Denied reports whether the user declined authorization.
func (r AuthorizationResponse) Denied() bool { return r.Params.Error == ErrorAccessDenied }

// Succeeded reports whether the response carries an authorization code that may be exchanged.
func (r AuthorizationResponse) Succeeded() bool {
	return r.Type == ResponseSuccess && !r.Denied() && r.Params.Code != ""
}

// ErrorKind categorises sign-in failures.
type ErrorKind string

const (
	ErrKindDenied   ErrorKind = "denied"
	ErrKindFlow     ErrorKind = "flow"
	ErrKindExchange ErrorKind = "exchange"
	ErrKindStorage  ErrorKind = "storage"
	ErrKindCanceled ErrorKind = "canceled"
)

// AuthError is returned by sign-in when no session was established.
type AuthError struct {
	Kind  ErrorKind
	Cause error
}

func (e *AuthError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("sign in %s", e.Kind)
	}
	return fmt.Sprintf("sign in %s: %v", e.Kind, e.Cause)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// NewAuthError wraps cause with kind.
func NewAuthError(kind ErrorKind, cause error) *AuthError {
	return &AuthError{Kind: kind, Cause: cause}
}

// KindOf returns the ErrorKind carried by err, or "" when err is not an AuthError.
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsDenied reports whether err represents a user-declined authorization.
func IsDenied(err error) bool { return KindOf(err) == ErrKindDenied }
