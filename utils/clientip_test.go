package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	if _, err := ParseTrustedProxies([]string{"10.0.0.0/8", "not-an-ip"}); err == nil {
		t.Fatal("expected an error for an invalid entry")
	}
	if _, err := ParseTrustedProxies([]string{"", " 192.168.1.1 ", "fd00::/8"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "::1"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tests := []struct {
		name       string
		proxies    TrustedProxies
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"no proxies ignores forwarded for", TrustedProxies{}, "203.0.113.5:4000", "198.51.100.1", "", "203.0.113.5"},
		{"untrusted peer ignores headers", proxies, "203.0.113.5:4000", "198.51.100.1", "198.51.100.2", "203.0.113.5"},
		{"bracketed ipv6 peer", TrustedProxies{}, "[2001:db8::1]:4000", "", "", "2001:db8::1"},
		{"peer without port", TrustedProxies{}, "203.0.113.5", "", "", "203.0.113.5"},
		{"trusted peer uses forwarded client", proxies, "10.0.0.2:80", "198.51.100.1", "", "198.51.100.1"},
		{"spoofed left hop is skipped", proxies, "10.0.0.2:80", "1.2.3.4, 198.51.100.1, 10.0.0.3", "", "198.51.100.1"},
		{"all hops trusted returns leftmost", proxies, "10.0.0.2:80", "10.0.0.9, 10.0.0.3", "", "10.0.0.9"},
		{"trusted ipv6 peer with real ip", proxies, "[::1]:80", "", "198.51.100.7", "198.51.100.7"},
		{"trusted peer without headers", proxies, "10.0.0.2:80", "", "", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := tt.proxies.ClientIP(req); got != tt.want {
				t.Fatalf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
