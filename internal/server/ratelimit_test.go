package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"applypilot/internal/errors"
)

func newTestLimiter(t *testing.T, requestsPerMin, burst int) *LimiterManager {
	t.Helper()

	logger, err := errors.New("error")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	m := NewRateLimiter(requestsPerMin, time.Minute, burst, logger)
	t.Cleanup(m.Close)
	return m
}

func TestAllowExhaustsBurst(t *testing.T) {
	// 1 request per minute refills far too slowly to matter here, so the
	// burst capacity is the effective budget.
	m := newTestLimiter(t, 1, 3)

	for i := range 3 {
		if !m.Allow("ip:10.0.0.1") {
			t.Fatalf("request %d within burst was denied", i+1)
		}
	}
	if m.Allow("ip:10.0.0.1") {
		t.Error("request beyond burst was allowed")
	}

	// A different key has its own bucket.
	if !m.Allow("ip:10.0.0.2") {
		t.Error("independent key was denied")
	}
}

func TestCleanupEvictsIdleLimiters(t *testing.T) {
	m := newTestLimiter(t, 60, 1)

	m.Allow("ip:10.0.0.1")
	m.Allow("ip:10.0.0.2")

	m.mu.Lock()
	m.lastSeen["ip:10.0.0.1"] = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	m.cleanup(10 * time.Minute)

	stats := m.GetStats()
	if got := stats["active_limiters"].(int); got != 1 {
		t.Errorf("active_limiters = %d, want 1", got)
	}

	m.mu.Lock()
	_, evicted := m.limiters["ip:10.0.0.1"]
	_, kept := m.limiters["ip:10.0.0.2"]
	m.mu.Unlock()

	if evicted {
		t.Error("idle limiter was not evicted")
	}
	if !kept {
		t.Error("active limiter was evicted")
	}
}

func TestGetRateLimitKey(t *testing.T) {
	tests := []struct {
		name     string
		byAPIKey bool
		byIP     bool
		headers  map[string]string
		expected string
	}{
		{
			name:     "api key header",
			byAPIKey: true,
			headers:  map[string]string{"X-API-Key": "secret123"},
			expected: "api:secret123",
		},
		{
			name:     "bearer token fallback",
			byAPIKey: true,
			headers:  map[string]string{"Authorization": "Bearer tok456"},
			expected: "api:tok456",
		},
		{
			name:     "api key absent falls through to ip",
			byAPIKey: true,
			byIP:     true,
			expected: "ip:192.0.2.10",
		},
		{
			name:     "ip only",
			byIP:     true,
			expected: "ip:192.0.2.10",
		},
		{
			name:     "forwarded ip preferred",
			byIP:     true,
			headers:  map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			expected: "ip:203.0.113.7",
		},
		{
			name:     "neither dimension enabled",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/sessions", nil)
			r.RemoteAddr = "192.0.2.10:54321"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			if got := getRateLimitKey(r, tt.byAPIKey, tt.byIP); got != tt.expected {
				t.Errorf("getRateLimitKey() = %q, want %q", got, tt.expected)
			}
		})
	}
}
