package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/guaracyalima/xeco-public-sub002/orders-service/internal/domain"
	"github.com/guaracyalima/xeco-public-sub002/orders-service/internal/repository"
	"github.com/guaracyalima/xeco-public-sub002/pkg/httpapi"
)

const maxListLimit = 200

type OrdersHandler struct {
	repo      repository.OrderRepository
	timeout   time.Duration
	heartbeat time.Duration
	logger    *slog.Logger
}

func NewOrdersHandler(repo repository.OrderRepository, timeout time.Duration, logger *slog.Logger) *OrdersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrdersHandler{repo: repo, timeout: timeout, heartbeat: 15 * time.Second, logger: logger}
}

type OrdersListResponse struct {
	Orders []*domain.Order `json:"orders"`
}

// GET /api/v1/orders?limit=N
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := httpapi.UserID(r.Context())
	if userID == "" {
		httpapi.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > maxListLimit {
			httpapi.RespondError(w, http.StatusBadRequest, "invalid_limit",
				fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}

	orders, err := h.repo.ListOrdersByUserID(ctx, userID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list orders", "user_id", userID, "error", err)
		httpapi.RespondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	httpapi.RespondJSON(w, http.StatusOK, OrdersListResponse{Orders: orders})
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := httpapi.UserID(r.Context())
	if userID == "" {
		httpapi.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	order, err := h.repo.GetOrder(ctx, chi.URLParam(r, "order_id"))
	// another user's order reads as missing
	if errors.Is(err, repository.ErrOrderNotFound) || (err == nil && order.UserID != userID) {
		httpapi.RespondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get order", "error", err)
		httpapi.RespondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, order)
}

// GET /api/v1/orders/stream
//
// Server-sent events: one "order" event per created or updated order of the
// caller, and a comment line every heartbeat to keep proxies from closing the
// connection.
func (h *OrdersHandler) StreamOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpapi.UserID(ctx)
	if userID == "" {
		httpapi.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpapi.RespondError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming unsupported")
		return
	}

	orders, err := h.repo.WatchOrders(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to watch orders", "user_id", userID, "error", err)
		httpapi.RespondError(w, http.StatusServiceUnavailable, "stream_unavailable", "order stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case order, ok := <-orders:
			if !ok {
				return
			}
			data, err := json.Marshal(order)
			if err != nil {
				h.logger.ErrorContext(ctx, "failed to encode order", "order_id", order.ID, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: order\ndata: %s\n\n", order.ID, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
