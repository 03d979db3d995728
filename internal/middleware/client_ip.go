package middleware

import (
	"net"
	"net/http"
	"strings"
)

// clientIP reports the first X-Forwarded-For entry, falling back to the connection address.
// The header is set by the caller and is not checked against trusted proxies, so the result
// is only fit for logging, never for access control.
func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
