package middleware

import (
	"net"
	"net/http"
	"strings"
)

// SessionIDHeader lets a browser tab identify itself so that concurrent
// generations are limited per tab rather than per address.
const SessionIDHeader = "X-Session-ID"

// ClientIP returns the request's remote address without the port. Behind a
// trusted proxy, chi's RealIP middleware has already rewritten RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SessionKey identifies the caller for the generation guard.
func SessionKey(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SessionIDHeader)); id != "" && len(id) <= 128 {
		return "session:" + id
	}
	return "ip:" + ClientIP(r)
}
