package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/bytedance/sonic"

	"github.com/splat3api/splatsync/internal/httpserver/deps"
)

const checkTimeout = 2 * time.Second

type componentStatus struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz probes every backing service. Any failing component answers 503.
func Readyz(d deps.Deps) http.HandlerFunc {
	names := make([]string, 0, len(d.Checks))
	for name := range d.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyzResponse{Ready: true, Components: make(map[string]componentStatus, len(names))}
		for _, name := range names {
			resp.Components[name] = runCheck(r.Context(), d.Checks[name])
			if !resp.Components[name].OK {
				resp.Ready = false
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if resp.Ready {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(resp)
	}
}

func runCheck(parent context.Context, check deps.Check) componentStatus {
	ctx, cancel := context.WithTimeout(parent, checkTimeout)
	defer cancel()
	if err := check(ctx); err != nil {
		return componentStatus{OK: false, Error: err.Error()}
	}
	return componentStatus{OK: true}
}
