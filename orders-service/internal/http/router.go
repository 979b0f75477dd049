package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/guaracyalima/xeco-public-sub002/pkg/httpapi"
	"github.com/guaracyalima/xeco-public-sub002/pkg/metrics"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Orders   *OrdersHandler
	Auth     *httpapi.Authenticator
	Metrics  *metrics.ServerMetrics
	Gatherer prometheus.Gatherer
	Store    Pinger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(httpapi.RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Store.Ping(ctx); err != nil {
				httpapi.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "mongo": err.Error()})
				return
			}
		}
		httpapi.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/api/v1/orders", func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(cfg.Auth.Middleware)
		}
		r.Get("/", cfg.Orders.ListOrders)
		r.Get("/stream", cfg.Orders.StreamOrders)
		r.Get("/{order_id}", cfg.Orders.GetOrder)
	})

	return r
}
