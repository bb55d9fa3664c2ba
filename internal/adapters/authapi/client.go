package authapi

// Package authapi talks to the backend that trades an OAuth authorization code
// for a session, and authorizes outgoing requests with the session token.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/target/ghsession/internal/domain/auth"
	"github.com/target/ghsession/internal/ports"
)

const (
	authenticatePath = "/authenticate"
	// maxErrorBody caps how much of a failed response is quoted in the error.
	maxErrorBody = 512
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("authenticate: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("authenticate: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Config configures the exchange Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
	// UserExpr and TokenExpr are JMESPath expressions locating the user object and
	// the token string in the response body. Defaults: "user" and "token".
	UserExpr  string
	TokenExpr string
}

// Client implements ports.TokenExchanger against POST <BaseURL>/authenticate.
type Client struct {
	endpoint  string
	client    *http.Client
	userExpr  string
	tokenExpr string
}

var _ ports.TokenExchanger = (*Client)(nil)

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api base url is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("invalid api base url: missing host")
	}

	userExpr := fallbackString(strings.TrimSpace(cfg.UserExpr), "user")
	tokenExpr := fallbackString(strings.TrimSpace(cfg.TokenExpr), "token")
	for _, expr := range []string{userExpr, tokenExpr} {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("invalid response JMESPath %q: %w", expr, err)
		}
	}

	hc := cfg.Client
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:  base + authenticatePath,
		client:    hc,
		userExpr:  userExpr,
		tokenExpr: tokenExpr,
	}, nil
}

// Authenticate posts {"code": code} and maps the response into a session.
func (c *Client) Authenticate(ctx context.Context, code string) (domainauth.Session, error) {
	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("encode authenticate payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("create authenticate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("authenticate request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domainauth.Session{}, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domainauth.Session{}, fmt.Errorf("decode authenticate response: %w", err)
	}
	return c.mapSession(payload)
}

func (c *Client) mapSession(payload any) (domainauth.Session, error) {
	rawUser, err := jmespath.Search(c.userExpr, payload)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("evaluate user expression: %w", err)
	}
	user, err := userFrom(rawUser)
	if err != nil {
		return domainauth.Session{}, err
	}

	rawToken, err := jmespath.Search(c.tokenExpr, payload)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("evaluate token expression: %w", err)
	}
	token, ok := rawToken.(string)
	if !ok || token == "" {
		return domainauth.Session{}, errors.New("authenticate response has no token")
	}

	return domainauth.Session{User: user, Token: token}, nil
}

// userFrom accepts numeric ids since GitHub user ids are numbers.
func userFrom(v any) (domainauth.User, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return domainauth.User{}, errors.New("authenticate response has no user object")
	}
	user := domainauth.User{
		ID:        scalarString(m["id"]),
		AvatarURL: scalarString(m["avatar_url"]),
		Name:      scalarString(m["name"]),
		Login:     scalarString(m["login"]),
	}
	if user.ID == "" {
		return domainauth.User{}, errors.New("authenticate response user has no id")
	}
	return user, nil
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
