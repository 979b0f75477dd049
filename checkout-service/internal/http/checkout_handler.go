package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	d "github.com/guaracyalima/xeco-public-sub002/checkout-service/domain"
	"github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/service"
	"github.com/guaracyalima/xeco-public-sub002/pkg/httpapi"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type CheckoutHandler struct {
	svc     service.CheckoutService
	timeout time.Duration
	logger  *slog.Logger
}

func NewCheckoutHandler(svc service.CheckoutService, timeout time.Duration, logger *slog.Logger) *CheckoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{svc: svc, timeout: timeout, logger: logger}
}

type ItemDTO struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type SignRequestDTO struct {
	MerchantID  string    `json:"merchantId"`
	CompanyID   string    `json:"companyId"`
	TotalAmount float64   `json:"totalAmount"`
	Items       []ItemDTO `json:"items"`
	CouponCode  string    `json:"couponCode,omitempty"`
}

type SignResponseDTO struct {
	Signature string `json:"signature"`
}

type CustomerDTO struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	CpfCnpj string `json:"cpfCnpj"`
	Phone   string `json:"phone,omitempty"`
}

type CheckoutRequestDTO struct {
	IdempotencyKey string       `json:"idempotencyKey"`
	CompanyID      string       `json:"companyId"`
	MerchantID     string       `json:"merchantId"`
	Items          []ItemDTO    `json:"items"`
	CouponCode     string       `json:"couponCode,omitempty"`
	AffiliateCode  string       `json:"affiliateCode,omitempty"`
	Customer       *CustomerDTO `json:"customer,omitempty"`
}

type CheckoutResponseDTO struct {
	SessionID   string `json:"sessionId"`
	CheckoutID  string `json:"checkoutId,omitempty"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
	Status      string `json:"status"`
}

type SessionDTO struct {
	SessionID     string    `json:"sessionId"`
	CompanyID     string    `json:"companyId"`
	Status        string    `json:"status"`
	TotalAmount   string    `json:"totalAmount"`
	Currency      string    `json:"currency"`
	CheckoutID    string    `json:"checkoutId,omitempty"`
	CheckoutURL   string    `json:"checkoutUrl,omitempty"`
	FailureReason string    `json:"failureReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// POST /api/v1/checkout/sign
func (h *CheckoutHandler) Sign(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SignRequestDTO
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sig, err := h.svc.Sign(ctx, &d.SignRequest{
		MerchantID:  firstNonEmpty(req.MerchantID, req.CompanyID),
		TotalAmount: req.TotalAmount,
		Items:       cartItems(req.Items),
		CouponCode:  req.CouponCode,
	})
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, SignResponseDTO{Signature: sig})
}

// POST /api/v1/checkout
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := httpapi.UserID(r.Context())
	if userID == "" {
		httpapi.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	key := firstNonEmpty(r.Header.Get(IdempotencyKeyHeader), req.IdempotencyKey)
	if key == "" {
		httpapi.RespondError(w, http.StatusBadRequest, "missing_idempotency_key",
			"Idempotency-Key header or idempotencyKey is required")
		return
	}

	request := &d.CheckoutRequest{
		UserID:         userID,
		IdempotencyKey: key,
		CompanyID:      firstNonEmpty(req.CompanyID, req.MerchantID),
		Items:          cartItems(req.Items),
		CouponCode:     strings.TrimSpace(req.CouponCode),
		AffiliateCode:  strings.TrimSpace(req.AffiliateCode),
	}
	if c := req.Customer; c != nil {
		request.Customer = &d.Customer{Name: c.Name, Email: c.Email, CpfCnpj: c.CpfCnpj, Phone: c.Phone}
	}

	resp, err := h.svc.InitiateCheckout(ctx, request)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	status := http.StatusCreated
	if resp.Status != d.CheckoutStatusPaymentPending || resp.CheckoutURL == "" {
		// replayed key for a session that is not payable
		status = http.StatusOK
	}
	httpapi.RespondJSON(w, status, CheckoutResponseDTO{
		SessionID:   resp.SessionID,
		CheckoutID:  resp.CheckoutID,
		CheckoutURL: resp.CheckoutURL,
		Status:      resp.Status.String(),
	})
}

// GET /api/v1/checkout/{session_id}
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := httpapi.UserID(r.Context())
	if userID == "" {
		httpapi.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_session_id", "session_id is required")
		return
	}

	session, err := h.svc.GetCheckout(ctx, sessionID, userID)
	if errors.Is(err, service.ErrSessionNotFound) {
		httpapi.RespondError(w, http.StatusNotFound, "not_found", "checkout session not found")
		return
	}
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	httpapi.RespondJSON(w, http.StatusOK, SessionDTO{
		SessionID:     session.ID,
		CompanyID:     session.CompanyID,
		Status:        session.Status.String(),
		TotalAmount:   session.TotalAmount.StringFixed(2),
		Currency:      session.Currency,
		CheckoutID:    session.GatewayCheckoutID,
		CheckoutURL:   session.CheckoutURL,
		FailureReason: session.FailureReason,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	})
}

// POST /api/v1/companies/{company_id}/account[?replace=true]
func (h *CheckoutHandler) CreateMerchantAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := httpapi.UserID(r.Context())
	if userID == "" {
		httpapi.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	in := service.MerchantAccountInput{
		CompanyID: chi.URLParam(r, "company_id"),
		UserID:    userID,
		Replace:   r.URL.Query().Get("replace") == "true",
	}
	if err := httpapi.DecodeJSON(r, &in.Account); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	account, err := h.svc.CreateMerchantAccount(ctx, &in)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusCreated, account)
}

func (h *CheckoutHandler) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := httpapi.Status(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "checkout request failed",
			"code", code, "request_id", httpapi.RequestID(ctx), "error", err)
	}
	httpapi.WriteError(w, err)
}

func cartItems(items []ItemDTO) []d.CartItem {
	out := make([]d.CartItem, 0, len(items))
	for _, item := range items {
		out = append(out, d.CartItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
