package httpx

import (
	"errors"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
)

var (
	errForbiddenHost = errors.New("host not allowed")
	errCrossSite     = errors.New("cross-site request not allowed")
	errSimpleRequest = errors.New("request needs Content-Type: application/json or an " + RequestedWithHeader + " header")
)

func isLoopbackHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// allowedOrigin accepts requests without an Origin header. "null" and unparsable
// origins are refused.
func allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return isLoopbackHost(u.Host) || strings.EqualFold(u.Host, r.Host)
}

func isNonSimple(r *http.Request) bool {
	if r.Header.Get(RequestedWithHeader) != "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
