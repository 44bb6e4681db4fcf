package middleware

import (
	"net/http/httptest"
	"testing"
)

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "invalid,, 203.0.113.7, 10.0.0.2")

	if got := ClientIP(r); got != "203.0.113.7" {
		t.Fatalf("client ip %q, want first valid forwarded entry", got)
	}
}

func TestClientIPFallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "198.51.100.4:9999"

	if got := ClientIP(r); got != "198.51.100.4" {
		t.Fatalf("client ip %q", got)
	}
}
