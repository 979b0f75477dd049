package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
)

const DefaultCurrency = "BRL"

type CartSnapshotItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

// CartSnapshot is the cart as priced at checkout time.
type CartSnapshot struct {
	Items       []CartSnapshotItem `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	Currency    string             `json:"currency"`
	CapturedAt  time.Time          `json:"captured_at"`
}

// NewCartSnapshot prices items, rounding each subtotal and the total to cents.
func NewCartSnapshot(items []CartItem, now time.Time) *CartSnapshot {
	snapshot := &CartSnapshot{
		Items:      make([]CartSnapshotItem, 0, len(items)),
		Currency:   DefaultCurrency,
		CapturedAt: now,
	}

	total := decimal.Zero
	for _, item := range items {
		subtotal := split.LineSubtotal(item.UnitPrice, item.Quantity)
		total = total.Add(subtotal)

		snapshot.Items = append(snapshot.Items, CartSnapshotItem{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    subtotal.InexactFloat64(),
		})
	}
	snapshot.TotalAmount = split.RoundAmount(total).InexactFloat64()
	return snapshot
}
