// Package signature signs and verifies the price-bearing fields of a checkout
// request. The signer (checkout-service) and the verifier (relay-service) must
// produce byte-identical canonical projections, so every formatting decision
// lives in Canonicalize.
package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
)

// LineItem is one cart line as transported. ProductID travels with the request
// but is not part of the signed projection.
type LineItem struct {
	ProductID string  `json:"productId,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Payload is the checkout request subset the guard works on. CouponCode is
// transported alongside but never signed.
type Payload struct {
	MerchantID  string     `json:"merchantId"`
	TotalAmount float64    `json:"totalAmount"`
	LineItems   []LineItem `json:"lineItems"`
	CouponCode  string     `json:"couponCode,omitempty"`
}

// key order of these structs is the wire contract
type canonicalItem struct {
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type canonicalPayload struct {
	MerchantID  string          `json:"merchantId"`
	TotalAmount float64         `json:"totalAmount"`
	LineItems   []canonicalItem `json:"lineItems"`
}

type Guard struct {
	secret []byte
}

// NewGuard fails with ErrConfiguration when secret is empty. There is no
// fallback secret.
func NewGuard(secret string) (*Guard, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: signing secret is not set", checkouterr.ErrConfiguration)
	}
	return &Guard{secret: []byte(secret)}, nil
}

// Canonicalize returns the exact bytes that get signed: compact JSON of
// {merchantId, totalAmount, lineItems:[{quantity, unitPrice}]} in that order,
// without HTML escaping. Numbers use the shortest round-trip form, so 100 and
// 100.0 both render as 100.
func Canonicalize(p Payload) ([]byte, error) {
	projection := canonicalPayload{
		MerchantID:  p.MerchantID,
		TotalAmount: normalizeNumber(p.TotalAmount),
		LineItems:   make([]canonicalItem, 0, len(p.LineItems)),
	}
	for _, item := range p.LineItems {
		projection.LineItems = append(projection.LineItems, canonicalItem{
			Quantity:  item.Quantity,
			UnitPrice: normalizeNumber(item.UnitPrice),
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(projection); err != nil {
		return nil, fmt.Errorf("%w: cannot serialize payload: %v", checkouterr.ErrInvalidInput, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Sign returns the lowercase hex HMAC-SHA256 of the canonical projection.
func (g *Guard) Sign(p Payload) (string, error) {
	canonical, err := Canonicalize(p)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature and compares it in constant time. Any
// failure, including a length mismatch or an unserializable payload, is false.
func (g *Guard) Verify(p Payload, candidate string) bool {
	expected, err := g.Sign(p)
	if err != nil {
		return false
	}
	if len(expected) != len(candidate) {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(candidate))
}

// negative zero renders as "-0" in Go but "0" in JavaScript
func normalizeNumber(v float64) float64 {
	if v == 0 && math.Signbit(v) {
		return 0
	}
	return v
}
