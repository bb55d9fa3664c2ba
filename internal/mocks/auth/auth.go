package auth

// Package auth contains simple hand-written test doubles for session ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"
	"sync"

	domainauth "github.com/target/ghsession/internal/domain/auth"
	"github.com/target/ghsession/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider   = (*StaticAuthProvider)(nil)
	_ ports.BrowserSession = (*ScriptedBrowserSession)(nil)
	_ ports.TokenExchanger = (*ScriptedExchanger)(nil)
	_ ports.KeyValueStore  = (*MemoryStore)(nil)
)

// StaticAuthProvider returns deterministic authorization requests.
type StaticAuthProvider struct {
	BeginFunc func(ctx context.Context) (ports.AuthorizationRequest, error)

	AuthURL     string
	StatePrefix string

	mu        sync.Mutex
	callCount int
}

// NewStaticAuthProvider creates a StaticAuthProvider with sensible defaults.
func NewStaticAuthProvider() *StaticAuthProvider {
	return &StaticAuthProvider{
		AuthURL:     "https://github.com/login/oauth/authorize?client_id=test&scope=read:user",
		StatePrefix: "state",
	}
}

func (p *StaticAuthProvider) Begin(ctx context.Context) (ports.AuthorizationRequest, error) {
	if p.BeginFunc != nil {
		return p.BeginFunc(ctx)
	}

	p.mu.Lock()
	p.callCount++
	n := p.callCount
	p.mu.Unlock()

	prefix := p.StatePrefix
	if prefix == "" {
		prefix = "state"
	}
	return ports.AuthorizationRequest{
		AuthURL: p.AuthURL,
		State:   fmt.Sprintf("%s-%d", prefix, n),
	}, nil
}

// Calls returns how many times Begin ran without a BeginFunc override.
func (p *StaticAuthProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callCount
}

// ScriptedBrowserSession completes every Start with a fixed response.
// When Gate is non-nil Start blocks until it is closed or ctx ends.
type ScriptedBrowserSession struct {
	StartFunc func(ctx context.Context, req ports.AuthorizationRequest) (domainauth.AuthorizationResponse, error)

	Response domainauth.AuthorizationResponse
	Err      error
	Gate     chan struct{}

	mu       sync.Mutex
	requests []ports.AuthorizationRequest
}

// SucceedWithCode returns a session that completes with a success redirect carrying code.
func SucceedWithCode(code string) *ScriptedBrowserSession {
	return &ScriptedBrowserSession{Response: domainauth.AuthorizationResponse{
		Type:   domainauth.ResponseSuccess,
		Params: domainauth.AuthorizationParams{Code: code},
	}}
}

// DenyAccess returns a session that completes with access_denied.
func DenyAccess() *ScriptedBrowserSession {
	return &ScriptedBrowserSession{Response: domainauth.AuthorizationResponse{
		Type:   domainauth.ResponseError,
		Params: domainauth.AuthorizationParams{Error: domainauth.ErrorAccessDenied},
	}}
}

func (s *ScriptedBrowserSession) Start(
	ctx context.Context,
	req ports.AuthorizationRequest,
) (domainauth.AuthorizationResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.StartFunc != nil {
		return s.StartFunc(ctx, req)
	}
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return domainauth.AuthorizationResponse{}, ctx.Err()
		}
	}
	resp := s.Response
	if resp.Params.State == "" {
		resp.Params.State = req.State
	}
	return resp, s.Err
}

// Requests returns a copy of every request passed to Start.
func (s *ScriptedBrowserSession) Requests() []ports.AuthorizationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.AuthorizationRequest(nil), s.requests...)
}

// ScriptedExchanger returns a fixed session for any code.
type ScriptedExchanger struct {
	AuthenticateFunc func(ctx context.Context, code string) (domainauth.Session, error)

	Session domainauth.Session
	Err     error

	mu    sync.Mutex
	codes []string
}

func (e *ScriptedExchanger) Authenticate(ctx context.Context, code string) (domainauth.Session, error) {
	e.mu.Lock()
	e.codes = append(e.codes, code)
	e.mu.Unlock()

	if e.AuthenticateFunc != nil {
		return e.AuthenticateFunc(ctx, code)
	}
	if e.Err != nil {
		return domainauth.Session{}, e.Err
	}
	return e.Session, nil
}

// Codes returns every code passed to Authenticate.
func (e *ScriptedExchanger) Codes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.codes...)
}

// MemoryStore is an in-memory key-value store with per-key failure injection.
type MemoryStore struct {
	mu     sync.Mutex
	items  map[string]string
	setErr map[string]error
	getErr map[string]error
	rmErr  map[string]error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:  make(map[string]string),
		setErr: make(map[string]error),
		getErr: make(map[string]error),
		rmErr:  make(map[string]error),
	}
}

// FailSet makes SetItem on key return err.
func (m *MemoryStore) FailSet(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr[key] = err
}

// FailGet makes GetItem on key return err.
func (m *MemoryStore) FailGet(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr[key] = err
}

// FailRemove makes RemoveItem on key return err.
func (m *MemoryStore) FailRemove(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rmErr[key] = err
}

func (m *MemoryStore) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.getErr[key]; err != nil {
		return "", false, err
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryStore) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.setErr[key]; err != nil {
		return err
	}
	m.items[key] = value
	return nil
}

func (m *MemoryStore) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.rmErr[key]; err != nil {
		return err
	}
	delete(m.items, key)
	return nil
}

// Snapshot returns a copy of the stored items.
func (m *MemoryStore) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.items))
	for k, v := range m.items {
		out[k] = v
	}
	return out
}
