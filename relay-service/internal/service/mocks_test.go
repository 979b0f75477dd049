package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/guaracyalima/xeco-public-sub002/pkg/gateway"
	"github.com/guaracyalima/xeco-public-sub002/pkg/relay"
	"github.com/guaracyalima/xeco-public-sub002/pkg/signature"
	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
)

const testSecret = "relay-test-secret"

// MockGateway records what the relay forwards.
type MockGateway struct {
	Session     *gateway.CheckoutSession
	Account     *gateway.Account
	CheckoutErr error
	AccountErr  error

	Checkouts []gateway.CheckoutRequest
	Accounts  []gateway.AccountRequest
}

func (m *MockGateway) CreateCheckout(_ context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	m.Checkouts = append(m.Checkouts, req)
	if m.CheckoutErr != nil {
		return nil, m.CheckoutErr
	}
	return m.Session, nil
}

func (m *MockGateway) CreateAccount(_ context.Context, req gateway.AccountRequest) (*gateway.Account, error) {
	m.Accounts = append(m.Accounts, req)
	if m.AccountErr != nil {
		return nil, m.AccountErr
	}
	return m.Account, nil
}

func newTestService(t *testing.T, gw Gateway) *RelayService {
	t.Helper()
	guard, err := signature.NewGuard(testSecret)
	require.NoError(t, err)
	calc, err := split.NewCalculator(split.DefaultPlatformFeePercentage)
	require.NoError(t, err)
	return NewRelayService(guard, calc, gw, CheckoutOptions{MaxInstallments: 3}, nil, nil)
}

// signedRequest builds a 100.00 order for company-1 with a 5% affiliate.
func signedRequest(t *testing.T) relay.CheckoutRequest {
	t.Helper()
	guard, err := signature.NewGuard(testSecret)
	require.NoError(t, err)

	payload := signature.Payload{
		MerchantID:  "company-1",
		TotalAmount: 100,
		LineItems: []signature.LineItem{
			{ProductID: "p1", Quantity: 2, UnitPrice: 30},
			{ProductID: "p2", Quantity: 1, UnitPrice: 40},
		},
	}
	sig, err := guard.Sign(payload)
	require.NoError(t, err)

	return relay.CheckoutRequest{
		Payload:          payload,
		Signature:        sig,
		OrderID:          "session-1",
		CompanyID:        "company-1",
		MerchantWalletID: "wallet-merchant",
		UserID:           "user-1",
		Items: []relay.Item{
			{ProductID: "p1", Name: "Camiseta", Quantity: 2, UnitPrice: 30, Total: 60},
			{ProductID: "p2", Name: "Boné", Quantity: 1, UnitPrice: 40, Total: 40},
		},
		Affiliate: &relay.Affiliate{
			ID:                   "aff-1",
			WalletID:             "wallet-aff",
			CommissionPercentage: decimal.NewFromInt(5),
		},
		Callback: gateway.Callback{SuccessURL: "https://shop.example/ok/session-1"},
	}
}
