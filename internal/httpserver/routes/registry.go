package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splat3api/splatsync/internal/httpserver/deps"
)

// Each route file registers itself from init(), so adding an endpoint never
// touches server.go.
type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg Registrar
	mws []Middleware
}

var registry []entry

// Register adds a registrar, optionally wrapped in route middlewares.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// RegisterAll mounts every registered route on r. Called once by NewRouter.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		if len(e.mws) == 0 {
			e.reg(r, d)
			continue
		}
		sub := r.With(e.mws...)
		e.reg(sub, d)
	}
}
