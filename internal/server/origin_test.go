package server

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestOriginPolicyCheck covers the allow-list matching rules: case and
// default-port normalization, missing headers, and the wildcard.
func TestOriginPolicyCheck(t *testing.T) {
	cases := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"exact match", []string{"http://localhost:8080"}, "http://localhost:8080", true},
		{"case insensitive", []string{"http://localhost:8080"}, "HTTP://LOCALHOST:8080", true},
		{"different port", []string{"http://localhost:8080"}, "http://localhost:9090", false},
		{"different scheme", []string{"https://example.com"}, "http://example.com", false},
		{"unlisted host", []string{"https://example.com"}, "https://evil.example", false},
		{"no origin header", []string{"https://example.com"}, "", true},
		{"wildcard", []string{"*"}, "https://anything.example", true},
		{"wildcard still rejects garbage", []string{"*"}, "not a url", false},
		{"malformed origin", []string{"https://example.com"}, "://broken", false},
		{"empty allow list", nil, "https://example.com", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newOriginPolicy(tc.allowed, discardLogger())
			r := httptest.NewRequest("GET", "/ws/1", nil)
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			if got := p.check(r); got != tc.want {
				t.Errorf("check(origin=%q) = %v, want %v", tc.origin, got, tc.want)
			}
		})
	}
}

// TestOriginPolicySkipsInvalidConfig verifies bad entries in the configured
// list are dropped rather than poisoning the policy.
func TestOriginPolicySkipsInvalidConfig(t *testing.T) {
	p := newOriginPolicy([]string{"", "   ", "not a url", "https://good.example"}, discardLogger())

	r := httptest.NewRequest("GET", "/ws/1", nil)
	r.Header.Set("Origin", "https://good.example")
	if !p.check(r) {
		t.Error("valid configured origin should be allowed")
	}
	if len(p.allowed) != 1 {
		t.Errorf("allow list has %d entries, want 1", len(p.allowed))
	}
}

// TestNormalizeOrigin checks scheme/host extraction and lowercasing.
func TestNormalizeOrigin(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"http://Example.COM:8080", "http://example.com:8080", true},
		{"https://example.com", "https://example.com", true},
		{"example.com", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := normalizeOrigin(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("normalizeOrigin(%q) = %q, %v, want %q, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}
