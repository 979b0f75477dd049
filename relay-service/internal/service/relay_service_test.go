package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checkout "github.com/guaracyalima/xeco-public-sub002/checkout-service/domain"
	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/gateway"
	"github.com/guaracyalima/xeco-public-sub002/pkg/relay"
	"github.com/guaracyalima/xeco-public-sub002/pkg/signature"
	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
)

func TestCreateCheckout(t *testing.T) {
	gw := &MockGateway{Session: &gateway.CheckoutSession{ID: "chk_1", Link: "https://pay.example/chk_1"}}
	svc := newTestService(t, gw)

	resp, err := svc.CreateCheckout(context.Background(), signedRequest(t))
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/chk_1", resp.CheckoutURL)
	assert.Equal(t, "chk_1", resp.CheckoutID)

	require.Len(t, gw.Checkouts, 1)
	sent := gw.Checkouts[0]
	assert.Equal(t, "session-1", sent.ExternalReference)
	assert.Equal(t, []string{"CREDIT_CARD", "PIX"}, sent.BillingTypes)
	assert.Equal(t, 60, sent.MinutesToExpire)
	assert.Equal(t, []gateway.Split{{WalletID: "wallet-aff", PercentualValue: 5}}, sent.Splits)
	assert.Equal(t, []gateway.Item{
		{Name: "Camiseta", Quantity: 2, Value: 30},
		{Name: "Boné", Quantity: 1, Value: 40},
	}, sent.Items)
	require.NotNil(t, sent.Installment)
	assert.Equal(t, 3, sent.Installment.MaxInstallmentCount)
	assert.Equal(t, "https://shop.example/ok/session-1", sent.Callback.SuccessURL)
}

func TestCreateCheckout_IgnoresClientSplits(t *testing.T) {
	gw := &MockGateway{Session: &gateway.CheckoutSession{ID: "chk_1", Link: "https://pay.example/chk_1"}}
	svc := newTestService(t, gw)

	req := signedRequest(t)
	req.Splits = []split.Split{{WalletID: "wallet-attacker", PercentageValue: decimal.NewFromInt(90)}}
	_, err := svc.CreateCheckout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []gateway.Split{{WalletID: "wallet-aff", PercentualValue: 5}}, gw.Checkouts[0].Splits)

	req = signedRequest(t)
	req.Affiliate = nil
	_, err = svc.CreateCheckout(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, gw.Checkouts[1].Splits)
}

func TestCreateCheckout_SignatureMismatch(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(*relay.CheckoutRequest)
	}{
		{"total changed", func(r *relay.CheckoutRequest) { r.TotalAmount = 10 }},
		{"price changed", func(r *relay.CheckoutRequest) { r.LineItems[0].UnitPrice = 1 }},
		{"merchant changed", func(r *relay.CheckoutRequest) { r.MerchantID = "company-2" }},
		{"signature missing", func(r *relay.CheckoutRequest) { r.Signature = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &MockGateway{}
			reg := prometheus.NewRegistry()
			guard, err := signature.NewGuard(testSecret)
			require.NoError(t, err)
			calc, err := split.NewCalculator(split.DefaultPlatformFeePercentage)
			require.NoError(t, err)
			svc := NewRelayService(guard, calc, gw, CheckoutOptions{}, reg, nil)

			req := signedRequest(t)
			tt.tamper(&req)
			_, err = svc.CreateCheckout(context.Background(), req)
			assert.ErrorIs(t, err, checkouterr.ErrSignatureMismatch)
			assert.Empty(t, gw.Checkouts)
			assert.Equal(t, 1.0, testutil.ToFloat64(svc.rejections))
		})
	}
}

func TestCreateCheckout_InvalidInput(t *testing.T) {
	guard, err := signature.NewGuard(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*relay.CheckoutRequest)
	}{
		{"no order id", func(r *relay.CheckoutRequest) { r.OrderID = "" }},
		{"company mismatch", func(r *relay.CheckoutRequest) { r.CompanyID = "company-9" }},
		{"no merchant wallet", func(r *relay.CheckoutRequest) { r.MerchantWalletID = "" }},
		{"commission too high", func(r *relay.CheckoutRequest) {
			r.Affiliate.CommissionPercentage = decimal.NewFromInt(95)
		}},
		{"total disagrees with items", func(r *relay.CheckoutRequest) {
			r.TotalAmount = 90
			r.Signature, _ = guard.Sign(r.Payload)
		}},
		{"no items", func(r *relay.CheckoutRequest) {
			r.LineItems = nil
			r.Signature, _ = guard.Sign(r.Payload)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &MockGateway{}
			req := signedRequest(t)
			tt.mutate(&req)
			_, err := newTestService(t, gw).CreateCheckout(context.Background(), req)
			assert.ErrorIs(t, err, checkouterr.ErrInvalidInput)
			assert.Empty(t, gw.Checkouts)
		})
	}
}

func TestCreateCheckout_GatewayFailures(t *testing.T) {
	rejection := &checkouterr.GatewayError{StatusCode: 400, Errors: []checkouterr.GatewayErrorEntry{
		{Code: "invalid_customer", Description: "cpfCnpj inválido"},
	}}
	unavailable := fmt.Errorf("%w: unexpected status 502", gateway.ErrUnavailable)

	for _, gwErr := range []error{rejection, unavailable} {
		gw := &MockGateway{CheckoutErr: gwErr}
		_, err := newTestService(t, gw).CreateCheckout(context.Background(), signedRequest(t))
		assert.True(t, errors.Is(err, gwErr))
	}
}

func TestCreateAccount(t *testing.T) {
	gw := &MockGateway{Account: &gateway.Account{ID: "acc_1", WalletID: "wallet-new", APIKey: "secret"}}
	svc := newTestService(t, gw)

	resp, err := svc.CreateAccount(context.Background(), relay.AccountRequest{
		Name: "Loja", Email: "loja@example.com", CpfCnpj: "12345678000199",
	})
	require.NoError(t, err)
	assert.Equal(t, &relay.AccountResponse{AccountID: "acc_1", WalletID: "wallet-new"}, resp)
	require.Len(t, gw.Accounts, 1)

	_, err = svc.CreateAccount(context.Background(), relay.AccountRequest{Name: "Loja"})
	assert.ErrorIs(t, err, checkouterr.ErrInvalidInput)
	assert.Contains(t, err.Error(), "email, cpfCnpj")
	assert.Len(t, gw.Accounts, 1)
}

// Totals priced by the checkout service must pass the relay's line item check.
func TestCreateCheckout_AcceptsCartSnapshotTotals(t *testing.T) {
	guard, err := signature.NewGuard(testSecret)
	require.NoError(t, err)

	items := []checkout.CartItem{
		{ProductID: "p1", Name: "Adesivo", Quantity: 1, UnitPrice: 10.005},
		{ProductID: "p2", Name: "Chaveiro", Quantity: 1, UnitPrice: 10.005},
		{ProductID: "p3", Name: "Caneta", Quantity: 3, UnitPrice: 0.335},
	}
	snapshot := checkout.NewCartSnapshot(items, time.Now())
	assert.Equal(t, 21.03, snapshot.TotalAmount)

	build := func(total float64) relay.CheckoutRequest {
		payload := signature.Payload{MerchantID: "company-1", TotalAmount: total}
		req := relay.CheckoutRequest{OrderID: "session-9", CompanyID: "company-1", MerchantWalletID: "wallet-merchant"}
		for _, item := range snapshot.Items {
			payload.LineItems = append(payload.LineItems, signature.LineItem{
				ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice,
			})
			req.Items = append(req.Items, relay.Item{
				ProductID: item.ProductID, Name: item.ProductName, Quantity: item.Quantity,
				UnitPrice: item.UnitPrice, Total: item.Subtotal,
			})
		}
		sig, err := guard.Sign(payload)
		require.NoError(t, err)
		req.Payload = payload
		req.Signature = sig
		return req
	}

	gw := &MockGateway{Session: &gateway.CheckoutSession{ID: "chk_9", Link: "https://pay.example/chk_9"}}
	svc := newTestService(t, gw)

	_, err = svc.CreateCheckout(context.Background(), build(snapshot.TotalAmount))
	require.NoError(t, err)
	require.Len(t, gw.Checkouts, 1)

	// rounding the raw sum once gives 21.02, which is not how orders are priced
	_, err = svc.CreateCheckout(context.Background(), build(21.02))
	assert.ErrorIs(t, err, checkouterr.ErrInvalidInput)
	assert.Len(t, gw.Checkouts, 1)
}
