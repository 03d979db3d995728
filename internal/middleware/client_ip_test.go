package middleware

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name      string
		forwarded string
		remote    string
		want      string
	}{
		{name: "remote address", remote: "10.0.0.7:5123", want: "10.0.0.7"},
		{name: "first forwarded entry", forwarded: "203.0.113.9, 10.0.0.1", remote: "10.0.0.1:80", want: "203.0.113.9"},
		{name: "forwarded value is taken verbatim", forwarded: "not-an-ip", remote: "10.0.0.1:80", want: "not-an-ip"},
		{name: "remote without port", remote: "10.0.0.8", want: "10.0.0.8"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := clientIP(req); got != tc.want {
				t.Fatalf("expected %q got %q", tc.want, got)
			}
		})
	}
}
