package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/splat3api/splatsync/internal/httpserver/deps"
	"github.com/splat3api/splatsync/internal/httpserver/handlers"
	"github.com/splat3api/splatsync/internal/httpserver/mw"
)

func init() { Register(registerTrigger) }

func registerTrigger(r chi.Router, d deps.Deps) {
	r.With(
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.TriggerBurst,
			RefillPerIPPerMin: d.TriggerPerMinute,
			MaxEntries:        1024,
			TrustProxy:        d.TrustProxy,
		}),
	).Post("/trigger", handlers.Trigger(d))
}
