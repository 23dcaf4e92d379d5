package mw

import (
	"net/http"
	"strings"

	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/utils"
)

// EnforceHost allows requests only if the Host header matches one of the
// allowed hosts, port ignored. Patterns like "*.run.app" match any
// subdomain. An empty list disables the check.
func EnforceHost(allowedHosts []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(allowedHosts) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := utils.ParseHostNoPort(r.Host)
			for _, pattern := range allowedHosts {
				if matchHost(host, pattern) {
					next.ServeHTTP(w, r)
					return
				}
			}

			log.Warn("request rejected by host filter", logger.String("host", r.Host))
			w.WriteHeader(http.StatusForbidden)
		})
	}
}

func matchHost(host, pattern string) bool {
	if strings.EqualFold(host, pattern) {
		return true
	}
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
		return len(host) > len(suffix) && strings.HasSuffix(strings.ToLower(host), strings.ToLower(suffix))
	}
	return false
}
