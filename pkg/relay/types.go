package relay

import (
	"github.com/shopspring/decimal"

	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/gateway"
	"github.com/guaracyalima/xeco-public-sub002/pkg/signature"
	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
)

// Item is the audit copy of a cart line. It is not covered by the signature.
type Item struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Total     float64 `json:"total"`
}

type Affiliate struct {
	ID                   string          `json:"id,omitempty"`
	WalletID             string          `json:"walletId"`
	CommissionPercentage decimal.Decimal `json:"commissionPercentage"`
}

// CheckoutRequest is the body of POST /checkout. The embedded payload fields
// plus Signature are what the relay verifies; the rest is transport and audit.
type CheckoutRequest struct {
	signature.Payload
	Signature        string                `json:"signature"`
	OrderID          string                `json:"orderId"`
	CompanyID        string                `json:"companyId"`
	MerchantWalletID string                `json:"merchantWalletId"`
	UserID           string                `json:"userId"`
	Items            []Item                `json:"items"`
	Splits           []split.Split         `json:"splits,omitempty"`
	Affiliate        *Affiliate            `json:"affiliate,omitempty"`
	Callback         gateway.Callback      `json:"callback"`
	Customer         *gateway.CustomerData `json:"customer,omitempty"`
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
	CheckoutID  string `json:"checkoutId"`
}

type AccountRequest = gateway.AccountRequest

type AccountResponse struct {
	AccountID string `json:"accountId"`
	WalletID  string `json:"walletId"`
}

// ErrorResponse is what the relay returns on failure.
type ErrorResponse struct {
	Error  string                          `json:"error"`
	Code   string                          `json:"code"`
	Errors []checkouterr.GatewayErrorEntry `json:"errors,omitempty"`
}
