package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/splat3api/splatsync/internal/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestRateLimitRefill(t *testing.T) {
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:             2,
		RefillPerIPPerMin: 6, // one token every 10s
		Now:               func() time.Time { return now },
	})(ok)

	hit := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/trigger", nil)
		r.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := hit("1.1.1.1"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := hit("1.1.1.1")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "10" {
		t.Fatalf("status %d Retry-After=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if rec := hit("2.2.2.2"); rec.Code != http.StatusNoContent {
		t.Fatalf("other client limited: %d", rec.Code)
	}

	now = now.Add(10 * time.Second)
	if rec := hit("1.1.1.1"); rec.Code != http.StatusNoContent {
		t.Fatalf("no refill after 10s: %d", rec.Code)
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"sync.example.com", "*.run.app"}, logger.Nop())(ok)

	tests := []struct {
		host string
		want int
	}{
		{"sync.example.com", http.StatusNoContent},
		{"SYNC.example.com:8080", http.StatusNoContent},
		{"splatsync-abc.a.run.app", http.StatusNoContent},
		{"run.app", http.StatusForbidden},
		{"evil.example.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/trigger", nil)
			r.Host = tt.host
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAllowOnlyCIDRSPassthrough(t *testing.T) {
	h := AllowOnlyCIDRS(nil, false, logger.Nop())(ok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("empty filter should pass, got %d", rec.Code)
	}
}
