package devauth

// Package devauth provides a config-driven sign-in for local development that
// needs neither a browser nor the backend exchange endpoint.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	domainauth "github.com/target/ghsession/internal/domain/auth"
	"github.com/target/ghsession/internal/ports"
)

// Code is the authorization code the dev browser session hands back.
const Code = "dev"

// Config controls the dev auth provider behavior.
// Login is required; the other user fields default from it.
type Config struct {
	UserID    string
	Login     string
	Name      string
	AvatarURL string
	// Token is returned by every exchange when set; otherwise a random token is minted per exchange.
	Token string
}

// Provider implements ports.AuthProvider, ports.BrowserSession and
// ports.TokenExchanger for local development.
// It short-circuits the OAuth flow: the browser session immediately
// "redirects" with Code and the issued state, and Authenticate returns the
// configured user.
type Provider struct {
	user  domainauth.User
	token string
}

var (
	_ ports.AuthProvider   = (*Provider)(nil)
	_ ports.BrowserSession = (*Provider)(nil)
	_ ports.TokenExchanger = (*Provider)(nil)
)

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Login == "" {
		return nil, errors.New("dev auth: Login is required")
	}
	user := domainauth.User{
		ID:        cfg.UserID,
		Login:     cfg.Login,
		Name:      cfg.Name,
		AvatarURL: cfg.AvatarURL,
	}
	if user.ID == "" {
		user.ID = "dev-" + cfg.Login
	}
	if user.Name == "" {
		user.Name = cfg.Login
	}
	return &Provider{user: user, token: cfg.Token}, nil
}

// Begin returns a local pseudo authorization URL and a cryptographically secure state.
func (p *Provider) Begin(_ context.Context) (ports.AuthorizationRequest, error) {
	state, err := randomString(24)
	if err != nil {
		return ports.AuthorizationRequest{}, fmt.Errorf("generate state: %w", err)
	}
	return ports.AuthorizationRequest{
		AuthURL: "dev://authorize?code=" + Code + "&state=" + state,
		State:   state,
	}, nil
}

// Start completes immediately with a successful response echoing the request state.
func (p *Provider) Start(
	ctx context.Context,
	req ports.AuthorizationRequest,
) (domainauth.AuthorizationResponse, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.AuthorizationResponse{Type: domainauth.ResponseDismiss}, err
	}
	return domainauth.AuthorizationResponse{
		Type:   domainauth.ResponseSuccess,
		Params: domainauth.AuthorizationParams{Code: Code, State: req.State},
	}, nil
}

// Authenticate ignores the code contents and returns the dev user with a token.
func (p *Provider) Authenticate(ctx context.Context, code string) (domainauth.Session, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.Session{}, err
	}
	if code == "" {
		return domainauth.Session{}, errors.New("dev auth: empty code")
	}
	token := p.token
	if token == "" {
		var err error
		if token, err = randomString(40); err != nil {
			return domainauth.Session{}, fmt.Errorf("generate token: %w", err)
		}
		token = "dev_" + token
	}
	return domainauth.Session{User: p.user, Token: token}, nil
}

// User returns the configured dev user.
func (p *Provider) User() domainauth.User { return p.user }

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	// Compute number of random bytes needed to produce at least n base64 URL chars
	bLen := (n*3 + 3) / 4
	b := make([]byte, bLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
