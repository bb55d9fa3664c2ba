package oauthflow

// Package oauthflow provides the GitHub OAuth authorization adapters: the
// authorization URL builder and a loopback browser session that captures the redirect.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/target/ghsession/internal/ports"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const stateLength = 32

// Provider implements ports.AuthProvider for GitHub's authorization-code flow.
type Provider struct {
	config *oauth2.Config
}

// ProviderConfig holds configuration for the OAuth provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // optional; GitHub falls back to the app's registered callback
	Scope        string
	AuthorizeURL string // optional, defaults to GitHub
}

var _ ports.AuthProvider = (*Provider)(nil)

// NewProvider creates a new OAuth provider.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if strings.TrimSpace(config.ClientID) == "" {
		return nil, errors.New("client ID is required")
	}

	endpoint := github.Endpoint
	if config.AuthorizeURL != "" {
		endpoint.AuthURL = config.AuthorizeURL
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       strings.Fields(config.Scope),
			Endpoint:     endpoint,
		},
	}, nil
}

// Begin builds the authorization URL bound to a fresh state value.
func (p *Provider) Begin(_ context.Context) (ports.AuthorizationRequest, error) {
	state, err := generateRandomString(stateLength)
	if err != nil {
		return ports.AuthorizationRequest{}, fmt.Errorf("generate state: %w", err)
	}

	return ports.AuthorizationRequest{
		AuthURL:     p.config.AuthCodeURL(state),
		State:       state,
		RedirectURL: p.config.RedirectURL,
	}, nil
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	// Compute number of random bytes needed to produce at least 'length' base64 URL-safe chars
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}
