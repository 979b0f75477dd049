package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	d "github.com/guaracyalima/xeco-public-sub002/checkout-service/domain"
	r "github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/repository"
	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/signature"
)

func newCheckoutRequest() *d.CheckoutRequest {
	return &d.CheckoutRequest{
		UserID:         "user-123",
		IdempotencyKey: "idem-1",
		CompanyID:      "company-1",
		Items: []d.CartItem{
			{ProductID: "p1", Name: "Mug", Quantity: 2, UnitPrice: 25},
			{ProductID: "p2", Name: "Shirt", Quantity: 1, UnitPrice: 50},
		},
		CouponCode: "PROMO10",
		Customer:   &d.Customer{Name: "Ana", Email: "ana@example.com", CpfCnpj: "12345678909"},
	}
}

func TestSign(t *testing.T) {
	svc, deps := newTestCheckoutService(t)

	sig, err := svc.Sign(context.Background(), &d.SignRequest{
		MerchantID:  "company-1",
		TotalAmount: 100,
		Items:       []d.CartItem{{ProductID: "p1", Quantity: 2, UnitPrice: 50}},
	})
	require.NoError(t, err)

	assert.True(t, deps.guard.Verify(signature.Payload{
		MerchantID:  "company-1",
		TotalAmount: 100,
		LineItems:   []signature.LineItem{{Quantity: 2, UnitPrice: 50}},
	}, sig))
}

func TestSign_InvalidInput(t *testing.T) {
	svc, _ := newTestCheckoutService(t)
	items := []d.CartItem{{ProductID: "p1", Quantity: 1, UnitPrice: 10}}

	tests := []struct {
		name string
		req  *d.SignRequest
	}{
		{"missing merchant", &d.SignRequest{TotalAmount: 10, Items: items}},
		{"zero total", &d.SignRequest{MerchantID: "m", Items: items}},
		{"no items", &d.SignRequest{MerchantID: "m", TotalAmount: 10}},
		{"zero quantity", &d.SignRequest{MerchantID: "m", TotalAmount: 10, Items: []d.CartItem{{Quantity: 0, UnitPrice: 10}}}},
		{"negative price", &d.SignRequest{MerchantID: "m", TotalAmount: 10, Items: []d.CartItem{{Quantity: 1, UnitPrice: -1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Sign(context.Background(), tt.req)
			assert.ErrorIs(t, err, checkouterr.ErrInvalidInput)
		})
	}
}

func TestInitiateCheckout_NewRequest(t *testing.T) {
	svc, deps := newTestCheckoutService(t)
	deps.resolver.Affiliate = &d.Affiliate{ID: "aff-1", WalletID: "wallet-aff", CommissionPercentage: 5, Active: true}

	resp, err := svc.InitiateCheckout(context.Background(), newCheckoutRequest())
	require.NoError(t, err)

	assert.Equal(t, "chk_123", resp.CheckoutID)
	assert.Equal(t, "https://pay.example/c/chk_123", resp.CheckoutURL)
	assert.Equal(t, d.CheckoutStatusPaymentPending, resp.Status)
	assert.Equal(t, "PROMO10", deps.resolver.CouponCode)

	created := deps.repo.CreatedSession
	require.NotNil(t, created)
	assert.Equal(t, resp.SessionID, created.ID)
	assert.True(t, decimal.NewFromInt(100).Equal(created.TotalAmount))
	assert.True(t, decimal.NewFromInt(8).Equal(created.PlatformFeeAmount))
	assert.True(t, decimal.NewFromInt(5).Equal(created.AffiliateCommissionAmount))
	assert.True(t, decimal.NewFromInt(87).Equal(created.MerchantAmount))
	assert.Equal(t, "aff-1", created.AffiliateID)

	stored, err := deps.repo.GetCheckoutSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, d.CheckoutStatusPaymentPending, stored.Status)
	assert.Equal(t, "chk_123", stored.GatewayCheckoutID)

	require.Len(t, deps.relay.Requests, 1)
	sent := deps.relay.Requests[0]
	assert.Equal(t, created.ID, sent.OrderID)
	assert.Equal(t, "company-1", sent.MerchantID)
	assert.Equal(t, 100.0, sent.TotalAmount)
	assert.Equal(t, "PROMO10", sent.CouponCode)
	assert.True(t, deps.guard.Verify(sent.Payload, sent.Signature))
	assert.Equal(t, created.Signature, sent.Signature)

	require.Len(t, sent.Splits, 1)
	assert.Equal(t, "wallet-aff", sent.Splits[0].WalletID)
	assert.Equal(t, "wallet-merchant", sent.MerchantWalletID)
	assert.True(t, decimal.NewFromInt(5).Equal(sent.Splits[0].PercentageValue))
	require.NotNil(t, sent.Affiliate)
	assert.Equal(t, "wallet-aff", sent.Affiliate.WalletID)

	require.Len(t, sent.Items, 2)
	assert.Equal(t, 50.0, sent.Items[0].Total)
	assert.Equal(t, "Mug", sent.Items[0].Name)
	assert.Equal(t, "https://shop.example/checkout/"+created.ID+"/success", sent.Callback.SuccessURL)
	require.NotNil(t, sent.Customer)
	assert.Equal(t, "ana@example.com", sent.Customer.Email)
}

func TestInitiateCheckout_NoAffiliate(t *testing.T) {
	svc, deps := newTestCheckoutService(t)

	_, err := svc.InitiateCheckout(context.Background(), newCheckoutRequest())
	require.NoError(t, err)

	assert.Empty(t, deps.relay.Requests[0].Splits)
	assert.Nil(t, deps.relay.Requests[0].Affiliate)
	assert.True(t, decimal.NewFromInt(92).Equal(deps.repo.CreatedSession.MerchantAmount))
}

func TestInitiateCheckout_DuplicateRequest(t *testing.T) {
	svc, deps := newTestCheckoutService(t)
	deps.repo.put(&r.CheckoutSession{
		ID:                "session-abc",
		UserID:            "user-123",
		IdempotencyKey:    "idem-1",
		Status:            d.CheckoutStatusPaymentPending,
		GatewayCheckoutID: "chk_old",
		CheckoutURL:       "https://pay.example/c/chk_old",
	})

	resp, err := svc.InitiateCheckout(context.Background(), newCheckoutRequest())
	require.NoError(t, err)

	assert.Equal(t, "session-abc", resp.SessionID)
	assert.Equal(t, "chk_old", resp.CheckoutID)
	assert.Equal(t, d.CheckoutStatusPaymentPending, resp.Status)
	assert.Zero(t, deps.relay.Calls)
	assert.Nil(t, deps.repo.CreatedSession)
}

func TestInitiateCheckout_KeyReusedByAnotherUser(t *testing.T) {
	svc, deps := newTestCheckoutService(t)
	deps.repo.put(&r.CheckoutSession{ID: "session-abc", UserID: "someone-else", IdempotencyKey: "idem-1"})

	_, err := svc.InitiateCheckout(context.Background(), newCheckoutRequest())
	assert.ErrorIs(t, err, checkouterr.ErrInvalidInput)
}

func TestInitiateCheckout_RepositoryError(t *testing.T) {
	svc, deps := newTestCheckoutService(t)
	deps.repo.GetErr = errors.New("database connection failed")

	_, err := svc.InitiateCheckout(context.Background(), newCheckoutRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check idempotency")
	assert.Zero(t, deps.relay.Calls)
}

func TestInitiateCheckout_InvalidRequest(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*d.CheckoutRequest)
	}{
		{"missing user", func(req *d.CheckoutRequest) { req.UserID = "" }},
		{"missing idempotency key", func(req *d.CheckoutRequest) { req.IdempotencyKey = " " }},
		{"missing company", func(req *d.CheckoutRequest) { req.CompanyID = "" }},
		{"empty cart", func(req *d.CheckoutRequest) { req.Items = nil }},
		{"zero quantity", func(req *d.CheckoutRequest) { req.Items[0].Quantity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestCheckoutService(t)
			req := newCheckoutRequest()
			tt.mutate(req)

			_, err := svc.InitiateCheckout(context.Background(), req)
			assert.ErrorIs(t, err, checkouterr.ErrInvalidInput)
			assert.Nil(t, deps.repo.CreatedSession)
		})
	}
}

func TestInitiateCheckout_EmptyCart(t *testing.T) {
	svc, _ := newTestCheckoutService(t)
	req := newCheckoutRequest()
	req.Items = nil

	_, err := svc.InitiateCheckout(context.Background(), req)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestInitiateCheckout_FreeCartRejected(t *testing.T) {
	svc, deps := newTestCheckoutService(t)
	req := newCheckoutRequest()
	for i := range req.Items {
		req.Items[i].UnitPrice = 0
	}

	_, err := svc.InitiateCheckout(context.Background(), req)
	assert.ErrorIs(t, err, checkouterr.ErrInvalidInput)
	assert.Nil(t, deps.repo.CreatedSession)
}

func TestInitiateCheckout_UnknownMerchant(t *testing.T) {
	svc, deps := newTestCheckoutService(t)
	deps.resolver.MerchantErr = errors.Join(checkouterr.ErrInvalidInput, errors.New("unknown company"))

	_, err := svc.InitiateCheckout(context.Background(), newCheckoutRequest())
	assert.ErrorIs(t, err, checkouterr.ErrInvalidInput)
	assert.Nil(t, deps.repo.CreatedSession)
	assert.Zero(t, deps.relay.Calls)
}

func TestInitiateCheckout_RetriesRelayUnavailable(t *testing.T) {
	svc, deps := newTestCheckoutService(t)
	deps.relay.Errs = []error{checkouterr.ErrRelayUnavailable, checkouterr.ErrRelayUnavailable}

	resp, err := svc.InitiateCheckout(context.Background(), newCheckoutRequest())
	require.NoError(t, err)

	assert.Equal(t, "chk_123", resp.CheckoutID)
	assert.Equal(t, 3, deps.relay.Calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, deps.clock.waits)
	// every attempt carries the same signed payload
	assert.Equal(t, deps.relay.Requests[0].Signature, deps.relay.Requests[2].Signature)
}

func TestInitiateCheckout_RelayExhausted(t *testing.T) {
	svc, deps := newTestCheckoutService(t)
	deps.relay.Errs = []error{
		checkouterr.ErrRelayUnavailable, checkouterr.ErrRelayUnavailable, checkouterr.ErrRelayUnavailable,
	}

	resp, err := svc.InitiateCheckout(context.Background(), newCheckoutRequest())

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, checkouterr.ErrRelayUnavailable)
	assert.Equal(t, 3, deps.relay.Calls)
	assert.Equal(t, deps.repo.CreatedSession.ID, deps.repo.FailedID)

	stored, err := deps.repo.GetCheckoutSession(context.Background(), deps.repo.CreatedSession.ID)
	require.NoError(t, err)
	assert.Equal(t, d.CheckoutStatusFailed, stored.Status)
}

func TestInitiateCheckout_TerminalErrorsNotRetried(t *testing.T) {
	gatewayErr := &checkouterr.GatewayError{
		StatusCode: 400,
		Errors:     []checkouterr.GatewayErrorEntry{{Code: "invalid_customer", Description: "CPF inválido"}},
	}
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"gateway rejection", gatewayErr, checkouterr.ErrGateway},
		{"signature mismatch", checkouterr.ErrSignatureMismatch, checkouterr.ErrSignatureMismatch},
		{"invalid input", checkouterr.ErrInvalidInput, checkouterr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestCheckoutService(t)
			deps.relay.Errs = []error{tt.err}

			_, err := svc.InitiateCheckout(context.Background(), newCheckoutRequest())

			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, 1, deps.relay.Calls)
			assert.Empty(t, deps.clock.waits)
			assert.Equal(t, deps.repo.CreatedSession.ID, deps.repo.FailedID)
		})
	}

	t.Run("gateway entries survive", func(t *testing.T) {
		svc, deps := newTestCheckoutService(t)
		deps.relay.Errs = []error{gatewayErr}

		_, err := svc.InitiateCheckout(context.Background(), newCheckoutRequest())

		var ge *checkouterr.GatewayError
		require.ErrorAs(t, err, &ge)
		assert.Equal(t, "invalid_customer", ge.Errors[0].Code)
	})
}

func TestInitiateCheckout_CancelledLeavesSessionInitiated(t *testing.T) {
	svc, deps := newTestCheckoutService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.InitiateCheckout(ctx, newCheckoutRequest())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, deps.repo.FailedID)
	stored, err := deps.repo.GetCheckoutSession(context.Background(), deps.repo.CreatedSession.ID)
	require.NoError(t, err)
	assert.Equal(t, d.CheckoutStatusInitiated, stored.Status)
}

func TestGetCheckout(t *testing.T) {
	svc, deps := newTestCheckoutService(t)
	deps.repo.put(&r.CheckoutSession{ID: "s1", UserID: "user-123", Status: d.CheckoutStatusPaymentPending})

	got, err := svc.GetCheckout(context.Background(), "s1", "user-123")
	require.NoError(t, err)
	assert.Equal(t, d.CheckoutStatusPaymentPending, got.Status)

	_, err = svc.GetCheckout(context.Background(), "s1", "intruder")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.GetCheckout(context.Background(), "missing", "user-123")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCompletedEvent(t *testing.T) {
	snapshot := d.NewCartSnapshot(newCheckoutRequest().Items, testNow)
	raw, err := json.Marshal(snapshot)
	require.NoError(t, err)

	session := &r.CheckoutSession{
		ID:                        "s1",
		UserID:                    "user-123",
		CompanyID:                 "company-1",
		CartSnapshot:              raw,
		TotalAmount:               decimal.NewFromInt(100),
		Currency:                  "BRL",
		AffiliateID:               "aff-1",
		AffiliateWalletID:         "wallet-aff",
		CommissionPercentage:      decimal.NewFromInt(5),
		PlatformFeeAmount:         decimal.NewFromInt(8),
		AffiliateCommissionAmount: decimal.NewFromInt(5),
		MerchantAmount:            decimal.NewFromInt(87),
		GatewayCheckoutID:         "chk_1",
	}

	payload, err := completedEvent(session, paidEvent("chk_1", "s1"), testNow)
	require.NoError(t, err)

	var event d.CheckoutCompletedEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "s1", event.CheckoutID)
	assert.Equal(t, "pay_1", event.PaymentID)
	assert.Len(t, event.Items, 2)
	assert.Equal(t, 87.0, event.MerchantAmount)
	require.NotNil(t, event.Affiliate)
	assert.Equal(t, 5.0, event.Affiliate.CommissionAmount)
}
