package mw

import (
	"net/http"

	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/utils"
)

// AllowOnlyCIDRS rejects callers outside the allowed IPs/CIDRs with 403.
// An empty list disables the filter.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Warn("request rejected by ip filter",
					logger.String("path", r.URL.Path),
					logger.String("client_ip", ip))
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
