package splatnet

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/splat3api/splatsync/internal/domain"
)

func testCatalogue(t *testing.T) *Catalogue {
	t.Helper()
	c, err := LoadCatalogue("")
	if err != nil {
		t.Fatalf("LoadCatalogue() error = %v", err)
	}
	return c
}

func TestFetchPageRequest(t *testing.T) {
	var gotBody requestBody
	var gotHeader http.Header
	var gotPath string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Clone()
		b, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(b, &gotBody)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer ts.Close()

	c := newClient(ClientConfig{BaseURL: ts.URL + "/", Catalogue: testCatalogue(t)}, "tok-123")
	raw, err := c.FetchPage(context.Background(), RankingQuery(domain.ModeTower), map[string]any{"id": "season", "page": 2, "cursor": nil})
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if string(raw) != `{"data":{}}` {
		t.Errorf("FetchPage() body = %s", raw)
	}

	if gotPath != "/api/graphql" {
		t.Errorf("path = %q, want /api/graphql", gotPath)
	}
	if gotHeader.Get("Authorization") != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotHeader.Get("Authorization"))
	}
	if gotHeader.Get("X-Web-View-Ver") == "" {
		t.Error("X-Web-View-Ver header missing")
	}
	if gotBody.Extensions.PersistedQuery.SHA256Hash != "4e8b381ae6f9620443627f4eac3a2210" {
		t.Errorf("sha256Hash = %q", gotBody.Extensions.PersistedQuery.SHA256Hash)
	}
	if gotBody.Extensions.PersistedQuery.Version != 1 {
		t.Errorf("version = %d, want 1", gotBody.Extensions.PersistedQuery.Version)
	}
	if gotBody.Variables["id"] != "season" {
		t.Errorf("variables = %v", gotBody.Variables)
	}
}

func TestFetchPageStatusClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantErr       bool
		wantTransient bool
	}{
		{"ok", http.StatusOK, false, false},
		{"rate limited", http.StatusTooManyRequests, true, true},
		{"server error", http.StatusBadGateway, true, true},
		{"unauthorized", http.StatusUnauthorized, true, false},
		{"bad request", http.StatusBadRequest, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{}`))
			}))
			defer ts.Close()

			c := newClient(ClientConfig{BaseURL: ts.URL, Catalogue: testCatalogue(t)}, "tok")
			_, err := c.FetchPage(context.Background(), QueryStageSchedule, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FetchPage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, domain.ErrTransientUpstream); got != tt.wantTransient {
				t.Errorf("transient = %v, want %v (err: %v)", got, tt.wantTransient, err)
			}
		})
	}
}

func TestFetchPageNetworkErrorIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c := newClient(ClientConfig{BaseURL: url, Catalogue: testCatalogue(t)}, "tok")
	_, err := c.FetchPage(context.Background(), QueryStageSchedule, nil)
	if !errors.Is(err, domain.ErrTransientUpstream) {
		t.Errorf("FetchPage() error = %v, want ErrTransientUpstream", err)
	}
}

func TestNewClientLeavesCallerClientAlone(t *testing.T) {
	shared := &http.Client{}
	c := newClient(ClientConfig{HTTPClient: shared, BaseURL: "http://127.0.0.1:1", Timeout: 5 * time.Second}, "tok")
	if shared.Timeout != 0 {
		t.Errorf("caller client Timeout = %v, want untouched", shared.Timeout)
	}
	if c.httpClient != shared {
		t.Error("caller client not used")
	}

	c = newClient(ClientConfig{BaseURL: "http://127.0.0.1:1"}, "tok")
	if c.httpClient.Timeout != 30*time.Second {
		t.Errorf("default Timeout = %v, want 30s", c.httpClient.Timeout)
	}
}

func TestFetchPageUnknownQuery(t *testing.T) {
	c := newClient(ClientConfig{BaseURL: "http://127.0.0.1:1", Catalogue: testCatalogue(t)}, "tok")
	if _, err := c.FetchPage(context.Background(), "NoSuchQuery", nil); err == nil {
		t.Error("FetchPage(unknown) error = nil")
	}
}

func TestFetchSeasonInfo(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(b), `"region":"PACIFIC"`) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"xRanking":{"currentSeason":{"id":"c","name":"now","startTime":"2026-09-01T00:00:00Z","endTime":"2026-12-01T00:00:00Z"},"pastSeasons":{"nodes":[]}}}}`))
	}))
	defer ts.Close()

	c := newClient(ClientConfig{BaseURL: ts.URL, Catalogue: testCatalogue(t)}, "tok")
	got, err := c.FetchSeasonInfo(context.Background(), "PACIFIC")
	if err != nil {
		t.Fatalf("FetchSeasonInfo() error = %v", err)
	}
	if got.Current.ID != "c" || len(got.Past) != 0 {
		t.Errorf("FetchSeasonInfo() = %+v", got)
	}
}
