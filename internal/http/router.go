// Package httpapi assembles the public HTTP surface: module routes behind
// bearer-token auth, plus unauthenticated health and metrics endpoints.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tessera/internal/authz"
	"tessera/internal/platform/metrics"
	"tessera/pkg/platform/httputil"
	"tessera/pkg/platform/middleware/requestid"
	"tessera/pkg/platform/middleware/requesttime"
)

// ModuleHandler mounts one module's routes on a router.
type ModuleHandler interface {
	Register(r chi.Router)
}

// NewRouter wires all endpoints. Every module route requires a valid bearer
// token; capability checks happen per operation inside the services.
// httpMetrics may be nil to skip request instrumentation.
func NewRouter(tokens *authz.TokenService, logger *slog.Logger, httpMetrics *metrics.HTTP, modules ...ModuleHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authz.RequireAuth(tokens, logger))
		for _, m := range modules {
			m.Register(r)
		}
	})
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
