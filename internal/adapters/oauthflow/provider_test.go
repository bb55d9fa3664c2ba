package oauthflow

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_RequiresClientID(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Scope: "read:user"})
	require.Error(t, err)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "client ID is required")
}

func TestProvider_Begin(t *testing.T) {
	p, err := NewProvider(ProviderConfig{
		ClientID:    "648177b13d0e7574397e",
		Scope:       "read:user",
		RedirectURL: "http://127.0.0.1:8976/callback",
	})
	require.NoError(t, err)

	req, err := p.Begin(context.Background())
	require.NoError(t, err)
	assert.Len(t, req.State, stateLength)
	assert.Equal(t, "http://127.0.0.1:8976/callback", req.RedirectURL)

	u, err := url.Parse(req.AuthURL)
	require.NoError(t, err)
	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "/login/oauth/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "648177b13d0e7574397e", q.Get("client_id"))
	assert.Equal(t, "read:user", q.Get("scope"))
	assert.Equal(t, req.State, q.Get("state"))
	assert.Equal(t, "http://127.0.0.1:8976/callback", q.Get("redirect_uri"))

	// Each attempt gets a fresh state.
	req2, err := p.Begin(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, req.State, req2.State)
}

func TestProvider_CustomAuthorizeURL(t *testing.T) {
	p, err := NewProvider(ProviderConfig{
		ClientID:     "client",
		Scope:        "read:user user:email",
		AuthorizeURL: "https://ghe.example.com/login/oauth/authorize",
	})
	require.NoError(t, err)

	req, err := p.Begin(context.Background())
	require.NoError(t, err)

	u, err := url.Parse(req.AuthURL)
	require.NoError(t, err)
	assert.Equal(t, "ghe.example.com", u.Host)
	assert.Equal(t, "read:user user:email", u.Query().Get("scope"))
	assert.Empty(t, u.Query().Get("redirect_uri"))
}

func TestGenerateRandomString(t *testing.T) {
	for _, n := range []int{0, 1, 7, 32, 33} {
		s, err := generateRandomString(n)
		require.NoError(t, err)
		assert.Len(t, s, n)
	}
}
