package httpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/splat3api/splatsync/internal/domain"
	"github.com/splat3api/splatsync/internal/httpserver/deps"
	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/metrics"
	"github.com/splat3api/splatsync/internal/orchestrator"
)

type recordingTrigger struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (r *recordingTrigger) Handle(_ context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return r.err
}

func testDeps(trig deps.Trigger) deps.Deps {
	return deps.Deps{
		Logger:           logger.Nop(),
		StartTime:        time.Now(),
		Version:          "test",
		Trigger:          trig,
		TriggerTimeout:   time.Minute,
		TriggerBurst:     100,
		TriggerPerMinute: 100,
		Metrics:          metrics.NewManager(),
		Checks: map[string]deps.Check{
			"redis": func(context.Context) error { return nil },
		},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "10.1.2.3:4567"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTrigger(t *testing.T) {
	envelope := `{"message":{"data":"` + base64.StdEncoding.EncodeToString([]byte("update schedule")) +
		`","messageId":"1"},"subscription":"projects/p/subscriptions/s"}`

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "raw text", body: "update x-ranking\n", wantStatus: http.StatusOK, wantMsg: "update x-ranking"},
		{name: "push envelope", body: envelope, wantStatus: http.StatusOK, wantMsg: "update schedule"},
		{name: "busy", body: "update x-ranking", err: orchestrator.ErrBusy, wantStatus: http.StatusTooManyRequests, wantMsg: "update x-ranking"},
		{name: "job failure", body: "update x-ranking", err: domain.ErrDatasetUnavailable, wantStatus: http.StatusInternalServerError, wantMsg: "update x-ranking"},
		{name: "bad base64", body: `{"message":{"data":"%%%"}}`, wantStatus: http.StatusBadRequest},
		{name: "envelope without message", body: `{"subscription":"s"}`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trig := &recordingTrigger{err: tt.err}
			h := NewRouter(logger.Nop(), testDeps(trig))

			rec := do(t, h, http.MethodPost, "/trigger", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantMsg == "" {
				if len(trig.messages) != 0 {
					t.Fatalf("trigger called with %v", trig.messages)
				}
				return
			}
			if len(trig.messages) != 1 || trig.messages[0] != tt.wantMsg {
				t.Fatalf("messages = %v, want [%s]", trig.messages, tt.wantMsg)
			}
		})
	}
}

func TestTriggerCIDRRestricted(t *testing.T) {
	trig := &recordingTrigger{}
	d := testDeps(trig)
	d.AllowedCIDRS = []string{"192.168.0.0/16"}
	h := NewRouter(logger.Nop(), d)

	if rec := do(t, h, http.MethodPost, "/trigger", "update schedule"); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if len(trig.messages) != 0 {
		t.Fatal("trigger reached despite CIDR restriction")
	}
}

func TestTriggerRateLimited(t *testing.T) {
	d := testDeps(&recordingTrigger{})
	d.TriggerBurst = 1
	d.TriggerPerMinute = 1
	h := NewRouter(logger.Nop(), d)

	if rec := do(t, h, http.MethodPost, "/trigger", "update schedule"); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/trigger", "update schedule")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second status = %d, Retry-After=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
}

func TestReadyz(t *testing.T) {
	d := testDeps(&recordingTrigger{})
	h := NewRouter(logger.Nop(), d)
	if rec := do(t, h, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	d.Checks["bucket"] = func(context.Context) error { return errors.New("access denied") }
	h = NewRouter(logger.Nop(), d)
	rec := do(t, h, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "access denied") {
		t.Fatalf("body does not report the failing component: %s", rec.Body.String())
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	d := testDeps(&recordingTrigger{})
	d.Metrics.CacheSwap("Schedules")
	h := NewRouter(logger.Nop(), d)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `splatsync_cache_swaps_total{dataset="Schedules"} 1`) {
		t.Fatalf("metrics = %d\n%s", rec.Code, rec.Body.String())
	}
}
