package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/guaracyalima/xeco-public-sub002/pkg/gateway"
	"github.com/guaracyalima/xeco-public-sub002/pkg/httpapi"
	"github.com/guaracyalima/xeco-public-sub002/pkg/relay"
)

type RelayService interface {
	CreateCheckout(ctx context.Context, req relay.CheckoutRequest) (*relay.CheckoutResponse, error)
	CreateAccount(ctx context.Context, req relay.AccountRequest) (*relay.AccountResponse, error)
}

type RelayHandler struct {
	svc     RelayService
	timeout time.Duration
	logger  *slog.Logger
}

func NewRelayHandler(svc RelayService, timeout time.Duration, logger *slog.Logger) *RelayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayHandler{svc: svc, timeout: timeout, logger: logger}
}

func (h *RelayHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req relay.CheckoutRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	resp, err := h.svc.CreateCheckout(ctx, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusCreated, resp)
}

func (h *RelayHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req relay.AccountRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	resp, err := h.svc.CreateAccount(ctx, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusCreated, resp)
}

func (h *RelayHandler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

// handleError answers gateway outages with 502, which the relay client
// treats as retryable.
func (h *RelayHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, gateway.ErrUnavailable) {
		h.logger.ErrorContext(r.Context(), "payment gateway unavailable",
			"path", r.URL.Path, "request_id", httpapi.RequestID(r.Context()), "error", err)
		httpapi.RespondError(w, http.StatusBadGateway, "gateway_unavailable", "payment gateway is unavailable")
		return
	}
	if status, _ := httpapi.Status(err); status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "relay request failed",
			"path", r.URL.Path, "request_id", httpapi.RequestID(r.Context()), "error", err)
	}
	httpapi.WriteError(w, err)
}
