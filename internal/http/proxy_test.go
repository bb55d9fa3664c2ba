package httpx

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type upstreamSeen struct {
	path   string
	query  string
	auth   string
	method string
}

func newUpstream(t *testing.T, seen *upstreamSeen) *url.URL {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.path = r.URL.Path
		seen.query = r.URL.RawQuery
		seen.auth = r.Header.Get("Authorization")
		seen.method = r.Method
		_, _ = io.WriteString(w, "upstream")
	}))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL + "/v1")
	require.NoError(t, err)
	return u
}

func TestNewAPIProxy_RequiresUpstream(t *testing.T) {
	_, err := NewAPIProxy(ProxyOptions{})
	require.Error(t, err)
}

func TestAPIProxy_AddsBearerToken(t *testing.T) {
	var seen upstreamSeen
	proxy, err := NewAPIProxy(ProxyOptions{
		Upstream: newUpstream(t, &seen),
		Source:   oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc", TokenType: "Bearer"}),
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	router := NewRouter(RouterOptions{Session: &fakeSession{}, Proxy: proxy, Logger: quietLogger()})

	req := httptest.NewRequest(http.MethodPost, "/api/repos?page=2", nil)
	req.Host = "127.0.0.1:8977"
	req.Header.Set("Authorization", "Bearer caller-supplied")
	req.Header.Set(RequestedWithHeader, "test")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "upstream", rec.Body.String())
	assert.Equal(t, "/v1/repos", seen.path)
	assert.Equal(t, "page=2", seen.query)
	assert.Equal(t, http.MethodPost, seen.method)
	assert.Equal(t, "Bearer abc", seen.auth)
}

func TestAPIProxy_RejectsForgedBrowserRequests(t *testing.T) {
	var seen upstreamSeen
	proxy, err := NewAPIProxy(ProxyOptions{
		Upstream: newUpstream(t, &seen),
		Source:   oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "secret", TokenType: "Bearer"}),
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	router := NewRouter(RouterOptions{Session: &fakeSession{}, Proxy: proxy, Logger: quietLogger()})

	tests := []struct {
		name    string
		headers map[string]string
		wantErr string
	}{
		{
			name:    "foreign origin",
			headers: map[string]string{"Origin": "https://evil.example", "Content-Type": "application/json"},
			wantErr: "cross_site_request",
		},
		{
			name:    "cross-site fetch",
			headers: map[string]string{"Sec-Fetch-Site": "cross-site", RequestedWithHeader: "x"},
			wantErr: "cross_site_request",
		},
		{
			name:    "form post",
			headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
			wantErr: "simple_request",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/repos/delete", nil)
			req.Host = "127.0.0.1:8977"
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantErr)
			assert.Empty(t, seen.auth)
		})
	}
}

func TestAPIProxy_SignedOutSendsNoCredential(t *testing.T) {
	var seen upstreamSeen
	proxy, err := NewAPIProxy(ProxyOptions{Upstream: newUpstream(t, &seen), Logger: quietLogger()})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.Header.Set("Authorization", "Bearer caller-supplied")
	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, seen.auth)
}

func TestAPIProxy_UpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	srv.Close()

	proxy, err := NewAPIProxy(ProxyOptions{Upstream: u, Logger: quietLogger()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream_unavailable")
}
