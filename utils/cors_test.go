package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOriginPolicyAllows(t *testing.T) {
	policy := OriginPolicy{Allowed: []string{"https://binge.example.com/"}}
	tests := []struct {
		origin  string
		allowed bool
	}{
		{"http://localhost:8081", true},
		{"http://192.168.1.20:7777", true},
		{"http://10.0.0.1", true},
		{"http://127.0.0.1:3000", true},
		{"http://169.254.1.1", true},
		{"http://[::1]:7777", true},
		{"http://mynas.local", true},
		{"http://mediaserver:7777", true},
		{"https://binge.example.com", true},

		{"https://evil.com", false},
		{"http://8.8.8.8", false},
		{"http://binge.example.com.evil.com", false},
		{"", false},
		{"not-a-url", false},
	}

	for _, tt := range tests {
		if got := policy.Allows(tt.origin); got != tt.allowed {
			t.Errorf("Allows(%q) = %v, want %v", tt.origin, got, tt.allowed)
		}
	}
}

func TestWildcardOrigin(t *testing.T) {
	if !(OriginPolicy{Allowed: []string{"*"}}).Allows("https://anywhere.example.org") {
		t.Fatal("expected wildcard to allow any origin")
	}
}

func TestRouterHealthAndPreflight(t *testing.T) {
	r := NewRouter(OriginPolicy{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"status":"ok"}` {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8081" {
		t.Fatalf("expected origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS header for public origin, got %q", got)
	}
}
