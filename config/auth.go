package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthMode represents how the session manager signs users in.
type AuthMode string

const (
	// AuthModeOAuth runs the GitHub authorization-code flow in the browser.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock signs in a configured dev user (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains GitHub OAuth app configuration.
type OAuthConfig struct {
	ClientID string `env:"CLIENT_ID"`
	// ClientSecret is not needed by the browser flow; the backend holds it.
	ClientSecret string `env:"CLIENT_SECRET"`
	Scope        string `env:"SCOPE"         envDefault:"read:user"`
	// AuthorizeURL overrides the GitHub authorize endpoint (GitHub Enterprise).
	AuthorizeURL string `env:"AUTHORIZE_URL"`
	// RedirectURL is the loopback callback registered with the OAuth app.
	RedirectURL string `env:"REDIRECT_URL" envDefault:"http://127.0.0.1:8976/callback"`
}

// APIConfig describes the backend that exchanges the authorization code.
type APIConfig struct {
	BaseURL string        `env:"BASE_URL"`
	Timeout time.Duration `env:"TIMEOUT"    envDefault:"10s"`
	// UserExpr and TokenExpr are JMESPath expressions into the /authenticate response.
	UserExpr  string `env:"USER_EXPR"  envDefault:"user"`
	TokenExpr string `env:"TOKEN_EXPR" envDefault:"token"`
}

// DevAuthConfig controls the mock sign-in identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID    string `env:"USER_ID"    envDefault:"1"`
	Login     string `env:"LOGIN"      envDefault:"octocat"`
	Name      string `env:"NAME"       envDefault:"The Octocat"`
	AvatarURL string `env:"AVATAR_URL" envDefault:"https://github.com/images/error/octocat_happy.gif"`
	Token     string `env:"TOKEN"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which sign-in adapters are wired.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// API configuration (used when Mode=oauth).
	API APIConfig `envPrefix:"API_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}

// Sanitize trims values and restores defaults for blanks.
func (a *AuthConfig) Sanitize() {
	a.OAuth.ClientID = strings.TrimSpace(a.OAuth.ClientID)
	a.OAuth.Scope = strings.TrimSpace(a.OAuth.Scope)
	if a.OAuth.Scope == "" {
		a.OAuth.Scope = "read:user"
	}
	a.API.BaseURL = strings.TrimRight(strings.TrimSpace(a.API.BaseURL), "/")
	if a.API.Timeout <= 0 {
		a.API.Timeout = 10 * time.Second
	}
	if strings.TrimSpace(a.API.UserExpr) == "" {
		a.API.UserExpr = "user"
	}
	if strings.TrimSpace(a.API.TokenExpr) == "" {
		a.API.TokenExpr = "token"
	}
}

// Validate checks the settings required by the selected mode.
func (a *AuthConfig) Validate() error {
	switch a.Mode {
	case AuthModeMock:
		if strings.TrimSpace(a.DevAuth.Login) == "" {
			return errors.New("DEV_AUTH_LOGIN is required when AUTH_MODE=mock")
		}
		return nil
	case AuthModeOAuth, "":
		var errs []error
		if a.OAuth.ClientID == "" {
			errs = append(errs, errors.New("OAUTH_CLIENT_ID is required"))
		}
		if a.API.BaseURL == "" {
			errs = append(errs, errors.New("API_BASE_URL is required"))
		}
		return errors.Join(errs...)
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", a.Mode)
	}
}
