package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/guaracyalima/xeco-public-sub002/pkg/httpapi"
	"github.com/guaracyalima/xeco-public-sub002/pkg/metrics"
)

type RouterConfig struct {
	Relay    *RelayHandler
	BasePath string
	Metrics  *metrics.ServerMetrics
	Gatherer prometheus.Gatherer
}

// NewRouter mounts the relay endpoints under BasePath. Health and metrics
// stay at the root.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(httpapi.RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpapi.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(cfg.Gatherer))
	}

	base := cfg.BasePath
	if base == "" {
		base = "/"
	}
	r.Route(base, func(r chi.Router) {
		r.Post("/checkout", cfg.Relay.CreateCheckout)
		r.Post("/accounts", cfg.Relay.CreateAccount)
	})

	return r
}
