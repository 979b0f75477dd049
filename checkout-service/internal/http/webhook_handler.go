package http

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/service"
	"github.com/guaracyalima/xeco-public-sub002/pkg/gateway"
	"github.com/guaracyalima/xeco-public-sub002/pkg/httpapi"
)

// WebhookHandler receives payment gateway notifications. The gateway retries
// anything that is not 2xx, so only failures worth a retry get one.
type WebhookHandler struct {
	svc    service.CheckoutService
	token  string
	logger *slog.Logger
}

func NewWebhookHandler(svc service.CheckoutService, token string, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{svc: svc, token: token, logger: logger}
}

// POST /api/v1/webhooks/payment
func (h *WebhookHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.authorized(r) {
		h.logger.WarnContext(ctx, "webhook with invalid token", "remote_addr", r.RemoteAddr)
		httpapi.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid webhook token")
		return
	}

	var event gateway.WebhookEvent
	if err := httpapi.DecodeJSON(r, &event); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	err := h.svc.HandlePaymentEvent(ctx, &event)
	switch {
	case err == nil:
		httpapi.RespondJSON(w, http.StatusOK, map[string]string{"status": "processed"})
	case errors.Is(err, service.ErrSessionNotFound):
		h.logger.WarnContext(ctx, "webhook for unknown checkout",
			"event", event.Event, "checkout_id", event.CheckoutID(), "external_reference", event.ExternalReference())
		httpapi.RespondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	case errors.Is(err, service.IllegalTransitionError):
		// the gateway checkout may not be recorded yet; let the gateway redeliver
		httpapi.RespondError(w, http.StatusConflict, "illegal_transition", err.Error())
	default:
		h.logger.ErrorContext(ctx, "webhook processing failed", "event", event.Event, "error", err)
		httpapi.RespondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	got := r.Header.Get(gateway.WebhookHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}
