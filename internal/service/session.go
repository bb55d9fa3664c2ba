package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/ghsession/internal/domain/auth"
	"github.com/target/ghsession/internal/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// DefaultNamespace prefixes the persisted session keys.
const DefaultNamespace = "@app"

const (
	signInFlightKey = "sign-in"
	tracerName      = "github.com/target/ghsession/internal/service"
)

// Ownership of a sign-in attempt between the caller and the flight.
const (
	attemptPending int32 = iota
	attemptRunning
	attemptAbandoned
)

// Result values reported to SessionMetrics.
const (
	ResultSuccess   = "success"
	ResultDenied    = "denied"
	ResultError     = "error"
	ResultSignedIn  = "signed_in"
	ResultSignedOut = "signed_out"
)

// ErrNoSession is returned by Token when no user is signed in.
var ErrNoSession = errors.New("no active session")

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	Provider  ports.AuthProvider
	Browser   ports.BrowserSession
	Exchanger ports.TokenExchanger
	Store     ports.KeyValueStore

	// Namespace prefixes the storage keys ("<ns>:user", "<ns>:token"). Defaults to DefaultNamespace.
	Namespace string

	// Optional collaborators.
	Metrics ports.SessionMetrics
	Logger  *slog.Logger
	Tracer  trace.Tracer
}

// SessionManager owns the sign-in lifecycle, the current user, and the bearer credential.
// It is safe for concurrent use; sign-in attempts are single-flighted.
type SessionManager struct {
	provider  ports.AuthProvider
	browser   ports.BrowserSession
	exchanger ports.TokenExchanger
	store     ports.KeyValueStore
	metrics   ports.SessionMetrics
	logger    *slog.Logger
	tracer    trace.Tracer

	userKey  string
	tokenKey string

	flight singleflight.Group

	mu        sync.RWMutex
	state     domainauth.State
	token     string
	signingIn bool
	// generation increments whenever a sign-in or sign-out replaces the session,
	// so a slow Restore never overwrites a newer session.
	generation uint64
	subs       map[uint64]chan domainauth.State
	nextSub    uint64
}

// NewSessionManager constructs a SessionManager in the restoring phase.
// Call Restore once at startup before relying on State.
func NewSessionManager(opts SessionManagerOptions) (*SessionManager, error) {
	if opts.Provider == nil {
		return nil, errors.New("AuthProvider is required")
	}
	if opts.Browser == nil {
		return nil, errors.New("BrowserSession is required")
	}
	if opts.Exchanger == nil {
		return nil, errors.New("TokenExchanger is required")
	}
	if opts.Store == nil {
		return nil, errors.New("KeyValueStore is required")
	}

	ns := opts.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &SessionManager{
		provider:  opts.Provider,
		browser:   opts.Browser,
		exchanger: opts.Exchanger,
		store:     opts.Store,
		metrics:   metrics,
		logger:    logger,
		tracer:    tracer,
		userKey:   ns + ":user",
		tokenKey:  ns + ":token",
		state: domainauth.State{
			IsSigningIn: true,
			Phase:       domainauth.PhaseRestoring,
		},
		subs: make(map[uint64]chan domainauth.State),
	}, nil
}

// StorageKeys returns the user and token keys used in the KeyValueStore.
func (m *SessionManager) StorageKeys() (userKey, tokenKey string) {
	return m.userKey, m.tokenKey
}

// State returns a snapshot of the consumer-visible state.
func (m *SessionManager) State() domainauth.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Token implements oauth2.TokenSource for the current session.
func (m *SessionManager) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return nil, ErrNoSession
	}
	return &oauth2.Token{AccessToken: m.token, TokenType: "Bearer"}, nil
}

// AuthorizationHeader returns the Authorization header value for the current session,
// or "" when signed out.
func (m *SessionManager) AuthorizationHeader() string {
	tok, err := m.Token()
	if err != nil {
		return ""
	}
	return tok.Type() + " " + tok.AccessToken
}

// Subscribe returns a channel that receives the current state and every later change.
// Slow receivers only see the latest state. The returned func unsubscribes and closes the channel.
func (m *SessionManager) Subscribe() (<-chan domainauth.State, func()) {
	ch := make(chan domainauth.State, 1)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.snapshotLocked()
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if sub, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(sub)
			}
		})
	}
}

// Restore loads the persisted session. Both the user and the token must be present;
// anything else, including read or decode failures, yields the signed-out state.
// Restore never fails.
func (m *SessionManager) Restore(ctx context.Context) domainauth.State {
	ctx, span := m.tracer.Start(ctx, "session.restore")
	defer span.End()

	m.mu.RLock()
	gen := m.generation
	m.mu.RUnlock()

	sess, ok, readErr := m.readPersisted(ctx)
	result := ResultSignedOut
	switch {
	case readErr != nil:
		result = ResultError
		m.logger.WarnContext(ctx, "restore session failed, continuing signed out", "error", readErr)
		span.RecordError(readErr)
	case ok:
		result = ResultSignedIn
	}

	m.mu.Lock()
	if m.generation == gen {
		if ok {
			user := sess.User
			m.state.User = &user
			m.token = sess.Token
		} else {
			m.state.User = nil
			m.token = ""
		}
	}
	m.settleLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	span.SetAttributes(attribute.String("ghsession.restore_result", result))
	m.metrics.RecordRestore(result)
	m.logger.InfoContext(ctx, "session restored", "result", result, "phase", snap.Phase)
	return snap
}

// SignIn runs the interactive authorization flow and exchanges the resulting code for a session.
// On success the session is persisted and becomes current. On failure the previous state is
// kept and an *domainauth.AuthError describes why. Concurrent calls share one attempt.
func (m *SessionManager) SignIn(ctx context.Context) (domainauth.Session, error) {
	var claim atomic.Int32
	ch := m.flight.DoChan(signInFlightKey, func() (any, error) {
		if !claim.CompareAndSwap(attemptPending, attemptRunning) {
			return nil, domainauth.NewAuthError(domainauth.ErrKindCanceled, ctx.Err())
		}
		return m.signIn(ctx)
	})

	select {
	case res := <-ch:
		return flightResult(res)
	case <-ctx.Done():
		// A joined or not yet started attempt is left behind. An attempt running on
		// this ctx is waited for so the signing-in flag is settled on return.
		if claim.CompareAndSwap(attemptPending, attemptAbandoned) {
			return domainauth.Session{}, domainauth.NewAuthError(domainauth.ErrKindCanceled, ctx.Err())
		}
		return flightResult(<-ch)
	}
}

func flightResult(res singleflight.Result) (domainauth.Session, error) {
	if res.Err != nil {
		return domainauth.Session{}, res.Err
	}
	sess, _ := res.Val.(domainauth.Session)
	return sess, nil
}

func (m *SessionManager) signIn(ctx context.Context) (domainauth.Session, error) {
	start := time.Now()
	attemptID := uuid.NewString()
	logger := m.logger.With("attempt_id", attemptID)

	ctx, span := m.tracer.Start(ctx, "session.sign_in",
		trace.WithAttributes(attribute.String("ghsession.attempt_id", attemptID)))
	defer span.End()

	m.mu.Lock()
	m.signingIn = true
	m.state.IsSigningIn = true
	m.state.Phase = domainauth.PhaseSigningIn
	m.publishLocked()
	m.mu.Unlock()

	sess, err := m.authorize(ctx, logger)

	m.mu.Lock()
	m.signingIn = false
	if err == nil {
		user := sess.User
		m.state.User = &user
		m.token = sess.Token
		m.generation++
	}
	m.settleLocked()
	m.mu.Unlock()

	in := ports.SignInMetric{Result: ResultSuccess, Duration: time.Since(start), Err: err}
	switch {
	case err == nil:
		logger.InfoContext(ctx, "signed in", "user_id", sess.User.ID, "login", sess.User.Login)
	case domainauth.IsDenied(err):
		in.Result = ResultDenied
		in.Kind = domainauth.ErrKindDenied
		logger.InfoContext(ctx, "sign in declined by user")
	default:
		in.Result = ResultError
		in.Kind = domainauth.KindOf(err)
		logger.WarnContext(ctx, "sign in failed", "kind", in.Kind, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(in.Kind))
	}
	span.SetAttributes(attribute.String("ghsession.sign_in_result", in.Result))
	m.metrics.RecordSignIn(in)

	if err != nil {
		return domainauth.Session{}, err
	}
	return sess, nil
}

// authorize performs the browser flow, the code exchange, and persistence.
func (m *SessionManager) authorize(ctx context.Context, logger *slog.Logger) (domainauth.Session, error) {
	req, err := m.provider.Begin(ctx)
	if err != nil {
		return domainauth.Session{}, flowError(ctx, fmt.Errorf("begin authorization: %w", err))
	}

	resp, err := m.browser.Start(ctx, req)
	if err != nil {
		return domainauth.Session{}, flowError(ctx, fmt.Errorf("browser session: %w", err))
	}
	if resp.Denied() {
		return domainauth.Session{}, domainauth.NewAuthError(domainauth.ErrKindDenied, nil)
	}
	if resp.Type != domainauth.ResponseSuccess {
		cause := fmt.Errorf("authorization ended with %q", resp.Type)
		if resp.Params.Error != "" {
			cause = fmt.Errorf("authorization ended with %q: %s", resp.Type, resp.Params.Error)
		}
		return domainauth.Session{}, domainauth.NewAuthError(domainauth.ErrKindFlow, cause)
	}
	if req.State != "" && resp.Params.State != "" && resp.Params.State != req.State {
		return domainauth.Session{}, domainauth.NewAuthError(domainauth.ErrKindFlow, errors.New("state mismatch"))
	}
	if resp.Params.Code == "" {
		return domainauth.Session{}, domainauth.NewAuthError(domainauth.ErrKindFlow, errors.New("authorization code missing"))
	}

	sess, err := m.exchanger.Authenticate(ctx, resp.Params.Code)
	if err != nil {
		if ctx.Err() != nil {
			return domainauth.Session{}, domainauth.NewAuthError(domainauth.ErrKindCanceled, err)
		}
		return domainauth.Session{}, domainauth.NewAuthError(domainauth.ErrKindExchange, err)
	}
	if !sess.Valid() {
		return domainauth.Session{}, domainauth.NewAuthError(domainauth.ErrKindExchange,
			errors.New("authentication response missing user or token"))
	}

	if err := m.persist(ctx, sess, logger); err != nil {
		return domainauth.Session{}, domainauth.NewAuthError(domainauth.ErrKindStorage, err)
	}
	return sess, nil
}

// SignOut clears the in-memory session and removes both persisted keys.
// Memory is cleared even when a removal fails; the removal errors are returned joined.
func (m *SessionManager) SignOut(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "session.sign_out")
	defer span.End()

	m.mu.Lock()
	m.state.User = nil
	m.token = ""
	m.generation++
	m.settleLocked()
	m.mu.Unlock()

	var errs []error
	for _, key := range []string{m.userKey, m.tokenKey} {
		if err := m.store.RemoveItem(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	err := errors.Join(errs...)
	m.metrics.RecordSignOut(err)
	if err != nil {
		span.RecordError(err)
		m.logger.WarnContext(ctx, "sign out left persisted data behind", "error", err)
		return fmt.Errorf("sign out: %w", err)
	}
	m.logger.InfoContext(ctx, "signed out")
	return nil
}

func (m *SessionManager) readPersisted(ctx context.Context) (domainauth.Session, bool, error) {
	rawUser, okUser, err := m.store.GetItem(ctx, m.userKey)
	if err != nil {
		return domainauth.Session{}, false, fmt.Errorf("read %s: %w", m.userKey, err)
	}
	token, okToken, err := m.store.GetItem(ctx, m.tokenKey)
	if err != nil {
		return domainauth.Session{}, false, fmt.Errorf("read %s: %w", m.tokenKey, err)
	}
	if !okUser || !okToken || rawUser == "" || token == "" {
		return domainauth.Session{}, false, nil
	}

	var user *domainauth.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return domainauth.Session{}, false, fmt.Errorf("decode %s: %w", m.userKey, err)
	}
	if user == nil {
		return domainauth.Session{}, false, nil
	}
	return domainauth.Session{User: *user, Token: token}, true, nil
}

// persist writes the user then the token. A failed token write removes both keys
// so storage never holds a half-written session.
func (m *SessionManager) persist(ctx context.Context, sess domainauth.Session, logger *slog.Logger) error {
	data, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := m.store.SetItem(ctx, m.userKey, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", m.userKey, err)
	}
	if err := m.store.SetItem(ctx, m.tokenKey, sess.Token); err != nil {
		cleanup := errors.Join(m.store.RemoveItem(ctx, m.userKey), m.store.RemoveItem(ctx, m.tokenKey))
		if cleanup != nil {
			logger.ErrorContext(ctx, "cleanup of partial session failed", "error", cleanup)
		}
		return fmt.Errorf("write %s: %w", m.tokenKey, err)
	}
	return nil
}

// settleLocked leaves the restoring or signing-in phase. Caller holds m.mu.
func (m *SessionManager) settleLocked() {
	m.state.IsSigningIn = m.signingIn
	switch {
	case m.signingIn:
		m.state.Phase = domainauth.PhaseSigningIn
	case m.state.User != nil:
		m.state.Phase = domainauth.PhaseSignedIn
	default:
		m.state.Phase = domainauth.PhaseSignedOut
	}
	m.publishLocked()
}

func (m *SessionManager) snapshotLocked() domainauth.State {
	snap := m.state
	if m.state.User != nil {
		user := *m.state.User
		snap.User = &user
	}
	return snap
}

// publishLocked delivers the current state to every subscriber, replacing any
// value the subscriber has not consumed yet. Caller holds m.mu.
func (m *SessionManager) publishLocked() {
	snap := m.snapshotLocked()
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func flowError(ctx context.Context, err error) *domainauth.AuthError {
	if ctx.Err() != nil {
		return domainauth.NewAuthError(domainauth.ErrKindCanceled, err)
	}
	return domainauth.NewAuthError(domainauth.ErrKindFlow, err)
}

type noopMetrics struct{}

func (noopMetrics) RecordRestore(string)            {}
func (noopMetrics) RecordSignIn(ports.SignInMetric) {}
func (noopMetrics) RecordSignOut(error)             {}

var _ oauth2.TokenSource = (*SessionManager)(nil)
