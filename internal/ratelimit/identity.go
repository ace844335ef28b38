package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

const UnknownIdentity = "unknown"

// ClientIdentity derives the bucket key from the best available client
// address. Unidentified clients all share the "unknown" bucket.
func ClientIdentity(r *http.Request) string {
	if r == nil {
		return UnknownIdentity
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}
	return UnknownIdentity
}
