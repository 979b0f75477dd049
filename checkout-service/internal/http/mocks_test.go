package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	d "github.com/guaracyalima/xeco-public-sub002/checkout-service/domain"
	r "github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/repository"
	"github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/service"
	"github.com/guaracyalima/xeco-public-sub002/pkg/gateway"
	"github.com/guaracyalima/xeco-public-sub002/pkg/httpapi"
	"github.com/guaracyalima/xeco-public-sub002/pkg/relay"
)

type MockCheckoutService struct {
	SignFunc          func(ctx context.Context, req *d.SignRequest) (string, error)
	InitiateFunc      func(ctx context.Context, req *d.CheckoutRequest) (*d.CheckoutResponse, error)
	GetFunc           func(ctx context.Context, sessionID, userID string) (*r.CheckoutSession, error)
	PaymentEventFunc  func(ctx context.Context, event *gateway.WebhookEvent) error
	CreateAccountFunc func(ctx context.Context, in *service.MerchantAccountInput) (*relay.AccountResponse, error)

	LastSign     *d.SignRequest
	LastInitiate *d.CheckoutRequest
	LastEvent    *gateway.WebhookEvent
	LastAccount  *service.MerchantAccountInput
}

func (m *MockCheckoutService) Sign(ctx context.Context, req *d.SignRequest) (string, error) {
	m.LastSign = req
	if m.SignFunc != nil {
		return m.SignFunc(ctx, req)
	}
	return "sig", nil
}

func (m *MockCheckoutService) InitiateCheckout(ctx context.Context, req *d.CheckoutRequest) (*d.CheckoutResponse, error) {
	m.LastInitiate = req
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, req)
	}
	return &d.CheckoutResponse{}, nil
}

func (m *MockCheckoutService) GetCheckout(ctx context.Context, sessionID, userID string) (*r.CheckoutSession, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, sessionID, userID)
	}
	return nil, nil
}

func (m *MockCheckoutService) HandlePaymentEvent(ctx context.Context, event *gateway.WebhookEvent) error {
	m.LastEvent = event
	if m.PaymentEventFunc != nil {
		return m.PaymentEventFunc(ctx, event)
	}
	return nil
}

func (m *MockCheckoutService) CreateMerchantAccount(ctx context.Context, in *service.MerchantAccountInput) (*relay.AccountResponse, error) {
	m.LastAccount = in
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, in)
	}
	return &relay.AccountResponse{}, nil
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(httpapi.WithUserID(req.Context(), userID))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
