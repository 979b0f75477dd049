package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineSubtotal(t *testing.T) {
	tests := []struct {
		name      string
		unitPrice float64
		quantity  int
		expected  string
	}{
		{"exact", 29.90, 3, "89.70"},
		{"half cent rounds up", 10.005, 1, "10.01"},
		{"product rounds once", 0.335, 3, "1.01"},
		{"zero price", 0, 4, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.expected, LineSubtotal(tt.unitPrice, tt.quantity))
		})
	}
}

func TestLineSubtotal_SumOfRoundedLines(t *testing.T) {
	total := LineSubtotal(10.005, 1).Add(LineSubtotal(10.005, 1))
	assertDecimal(t, "20.02", total)

	raw := dec("10.005").Add(dec("10.005"))
	assert.False(t, RoundAmount(raw).Equal(total))
}

func TestRoundAmount(t *testing.T) {
	assertDecimal(t, "0.01", RoundAmount(dec("0.005")))
	assertDecimal(t, "-0.01", RoundAmount(dec("-0.005")))
	assertDecimal(t, "12.34", RoundAmount(dec("12.344")))
}
