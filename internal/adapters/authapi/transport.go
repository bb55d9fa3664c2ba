package authapi

import (
	"net/http"

	"golang.org/x/oauth2"
)

// BearerTransport is an http.RoundTripper that authorizes each request with the
// token the Source holds at send time. Requests go out unauthenticated while
// the Source has no token, so signing out stops authorizing immediately.
type BearerTransport struct {
	Source oauth2.TokenSource
	Base   http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Source == nil {
		return t.base().RoundTrip(req)
	}
	tok, err := t.Source.Token()
	if err != nil || tok == nil || !tok.Valid() {
		return t.base().RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	r2 := req.Clone(req.Context())
	tok.SetAuthHeader(r2)
	return t.base().RoundTrip(r2)
}

func (t *BearerTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// NewHTTPClient returns an *http.Client whose requests carry the current bearer token.
func NewHTTPClient(src oauth2.TokenSource, base http.RoundTripper) *http.Client {
	return &http.Client{Transport: &BearerTransport{Source: src, Base: base}}
}
