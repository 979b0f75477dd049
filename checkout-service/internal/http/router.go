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

// Pinger is a dependency the health check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Checkout *CheckoutHandler
	Webhook  *WebhookHandler
	// nil disables authentication; only tests do that
	Auth     *httpapi.Authenticator
	Metrics  *metrics.ServerMetrics
	Gatherer prometheus.Gatherer
	Checks   map[string]Pinger
	Timeout  time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(httpapi.RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}

	r.Get("/health", healthHandler(cfg.Checks))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/payment", cfg.Webhook.HandlePayment)

		r.Group(func(r chi.Router) {
			if cfg.Auth != nil {
				r.Use(cfg.Auth.Middleware)
			}
			r.Post("/checkout/sign", cfg.Checkout.Sign)
			r.Post("/checkout", cfg.Checkout.InitiateCheckout)
			r.Get("/checkout/{session_id}", cfg.Checkout.GetCheckout)
			r.Post("/companies/{company_id}/account", cfg.Checkout.CreateMerchantAccount)
		})
	})

	return r
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				status[name] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httpapi.RespondJSON(w, code, status)
	}
}
