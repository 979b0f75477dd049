package split

import "github.com/shopspring/decimal"

// RoundAmount rounds a money amount to cents, half away from zero.
func RoundAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(currencyPlaces)
}

// LineSubtotal prices one cart line. Each line is rounded on its own, so an
// order total is the sum of rounded subtotals and not the rounded sum.
func LineSubtotal(unitPrice float64, quantity int) decimal.Decimal {
	return RoundAmount(decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity))))
}
