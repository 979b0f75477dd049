// Package split partitions an order total into platform fee, affiliate
// commission and merchant residual, and builds the payout split instructions
// sent to the payment gateway.
package split

import (
	"fmt"
	"strings"

	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/shopspring/decimal"
)

// minor unit of the reference currency (BRL)
const currencyPlaces = 2

var (
	DefaultPlatformFeePercentage = decimal.NewFromInt(8)

	hundred = decimal.NewFromInt(100)
)

type Affiliate struct {
	WalletID             string
	CommissionPercentage decimal.Decimal
}

type Input struct {
	TotalAmount      decimal.Decimal
	MerchantWalletID string
	Affiliate        *Affiliate
}

// Split routes PercentageValue percent of the transaction to WalletID.
type Split struct {
	WalletID        string          `json:"walletId"`
	PercentageValue decimal.Decimal `json:"percentageValue"`
}

// Result amounts are rounded to the currency minor unit. The merchant is the
// gateway's default payee and never appears in Splits.
type Result struct {
	PlatformFeeAmount         decimal.Decimal `json:"platformFeeAmount"`
	AffiliateCommissionAmount decimal.Decimal `json:"affiliateCommissionAmount"`
	MerchantAmount            decimal.Decimal `json:"merchantAmount"`
	Splits                    []Split         `json:"splits"`
}

type Calculator struct {
	platformFeePercentage decimal.Decimal
}

func NewCalculator(platformFeePercentage decimal.Decimal) (*Calculator, error) {
	if !isPercentage(platformFeePercentage) {
		return nil, fmt.Errorf("%w: platform fee percentage %s is outside [0, 100]",
			checkouterr.ErrConfiguration, platformFeePercentage)
	}
	return &Calculator{platformFeePercentage: platformFeePercentage}, nil
}

func (c *Calculator) PlatformFeePercentage() decimal.Decimal {
	return c.platformFeePercentage
}

// Calculate takes fee and commission from the same base (the order total) and
// rounds each half-up to two places. A configuration that would leave the
// merchant with a negative amount is rejected, never clamped.
func (c *Calculator) Calculate(in Input) (Result, error) {
	if !in.TotalAmount.IsPositive() {
		return Result{}, fmt.Errorf("%w: total amount must be greater than zero, got %s",
			checkouterr.ErrInvalidInput, in.TotalAmount)
	}
	if strings.TrimSpace(in.MerchantWalletID) == "" {
		return Result{}, fmt.Errorf("%w: merchant wallet id is required", checkouterr.ErrInvalidInput)
	}

	commissionPercentage := decimal.Zero
	if in.Affiliate != nil {
		commissionPercentage = in.Affiliate.CommissionPercentage
		if !isPercentage(commissionPercentage) {
			return Result{}, fmt.Errorf("%w: commission percentage %s is outside [0, 100]",
				checkouterr.ErrInvalidInput, commissionPercentage)
		}
		if commissionPercentage.IsPositive() && strings.TrimSpace(in.Affiliate.WalletID) == "" {
			return Result{}, fmt.Errorf("%w: affiliate wallet id is required", checkouterr.ErrInvalidInput)
		}
	}

	fee := percentOf(in.TotalAmount, c.platformFeePercentage)
	commission := percentOf(in.TotalAmount, commissionPercentage)
	merchant := in.TotalAmount.Sub(fee).Sub(commission).Round(currencyPlaces)

	if merchant.IsNegative() {
		return Result{}, fmt.Errorf("%w: fee %s%% plus commission %s%% exceeds the order total",
			checkouterr.ErrInvalidInput, c.platformFeePercentage, commissionPercentage)
	}

	splits := make([]Split, 0, 1)
	if in.Affiliate != nil && commission.IsPositive() {
		splits = append(splits, Split{
			WalletID:        in.Affiliate.WalletID,
			PercentageValue: commissionPercentage,
		})
	}

	return Result{
		PlatformFeeAmount:         fee,
		AffiliateCommissionAmount: commission,
		MerchantAmount:            merchant,
		Splits:                    splits,
	}, nil
}

func percentOf(amount, percentage decimal.Decimal) decimal.Decimal {
	return amount.Mul(percentage).Div(hundred).Round(currencyPlaces)
}

func isPercentage(v decimal.Decimal) bool {
	return !v.IsNegative() && v.LessThanOrEqual(hundred)
}
