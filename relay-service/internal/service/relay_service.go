// Package service holds the relay's checkout and account logic: verify what
// checkout-service signed, recompute the payout splits, and forward to the
// payment gateway.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/gateway"
	"github.com/guaracyalima/xeco-public-sub002/pkg/relay"
	"github.com/guaracyalima/xeco-public-sub002/pkg/signature"
	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
)

type Gateway interface {
	CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error)
	CreateAccount(ctx context.Context, req gateway.AccountRequest) (*gateway.Account, error)
}

// CheckoutOptions are the gateway checkout settings the relay owns.
type CheckoutOptions struct {
	BillingTypes    []string
	ChargeTypes     []string
	MinutesToExpire int
	MaxInstallments int
}

type RelayService struct {
	guard      *signature.Guard
	calculator *split.Calculator
	gateway    Gateway
	options    CheckoutOptions
	rejections prometheus.Counter
	logger     *slog.Logger
}

func NewRelayService(
	guard *signature.Guard,
	calculator *split.Calculator,
	gw Gateway,
	options CheckoutOptions,
	reg prometheus.Registerer,
	logger *slog.Logger,
) *RelayService {
	if logger == nil {
		logger = slog.Default()
	}
	if len(options.BillingTypes) == 0 {
		options.BillingTypes = []string{"CREDIT_CARD", "PIX"}
	}
	if len(options.ChargeTypes) == 0 {
		options.ChargeTypes = []string{"DETACHED"}
	}
	if options.MinutesToExpire <= 0 {
		options.MinutesToExpire = 60
	}

	rejections := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "relay",
		Name:      "signature_rejections_total",
		Help:      "Checkout requests rejected because the signature did not verify.",
	})
	if reg != nil {
		reg.MustRegister(rejections)
	}

	return &RelayService{
		guard:      guard,
		calculator: calculator,
		gateway:    gw,
		options:    options,
		rejections: rejections,
		logger:     logger.With("component", "relay_service"),
	}
}

// CreateCheckout verifies req, recomputes its splits and opens a gateway
// checkout. Splits sent by the caller are ignored.
func (s *RelayService) CreateCheckout(ctx context.Context, req relay.CheckoutRequest) (*relay.CheckoutResponse, error) {
	if !s.guard.Verify(req.Payload, req.Signature) {
		s.rejections.Inc()
		s.logger.WarnContext(ctx, "checkout signature rejected",
			"fraud_suspected", true,
			"order_id", req.OrderID,
			"merchant_id", req.MerchantID,
			"total_amount", req.TotalAmount,
		)
		return nil, fmt.Errorf("%w: order %s", checkouterr.ErrSignatureMismatch, req.OrderID)
	}
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	splitInput := split.Input{
		TotalAmount:      decimal.NewFromFloat(req.TotalAmount),
		MerchantWalletID: req.MerchantWalletID,
	}
	if req.Affiliate != nil {
		splitInput.Affiliate = &split.Affiliate{
			WalletID:             req.Affiliate.WalletID,
			CommissionPercentage: req.Affiliate.CommissionPercentage,
		}
	}
	splits, err := s.calculator.Calculate(splitInput)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckout(ctx, s.gatewayRequest(req, splits))
	if err != nil {
		var ge *checkouterr.GatewayError
		if errors.As(err, &ge) {
			s.logger.WarnContext(ctx, "gateway rejected checkout", "order_id", req.OrderID, "status", ge.StatusCode)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "gateway checkout created",
		"order_id", req.OrderID,
		"checkout_id", session.ID,
		"platform_fee", splits.PlatformFeeAmount.StringFixed(2),
		"affiliate_commission", splits.AffiliateCommissionAmount.StringFixed(2),
		"merchant_amount", splits.MerchantAmount.StringFixed(2),
	)
	return &relay.CheckoutResponse{CheckoutURL: session.Link, CheckoutID: session.ID}, nil
}

func (s *RelayService) CreateAccount(ctx context.Context, req relay.AccountRequest) (*relay.AccountResponse, error) {
	var missing []string
	if strings.TrimSpace(req.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(req.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(req.CpfCnpj) == "" {
		missing = append(missing, "cpfCnpj")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s required", checkouterr.ErrInvalidInput, strings.Join(missing, ", "))
	}

	account, err := s.gateway.CreateAccount(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "gateway account created", "account_id", account.ID, "wallet_id", account.WalletID)
	return &relay.AccountResponse{AccountID: account.ID, WalletID: account.WalletID}, nil
}

// gatewayRequest prices every item from the signed line items. The audit
// items only contribute names.
func (s *RelayService) gatewayRequest(req relay.CheckoutRequest, splits split.Result) gateway.CheckoutRequest {
	items := make([]gateway.Item, 0, len(req.LineItems))
	for i, line := range req.LineItems {
		name := fmt.Sprintf("Item %d", i+1)
		if i < len(req.Items) && strings.TrimSpace(req.Items[i].Name) != "" {
			name = req.Items[i].Name
		}
		items = append(items, gateway.Item{
			Name:     name,
			Quantity: line.Quantity,
			Value:    line.UnitPrice,
		})
	}

	out := gateway.CheckoutRequest{
		BillingTypes:      s.options.BillingTypes,
		ChargeTypes:       s.options.ChargeTypes,
		MinutesToExpire:   s.options.MinutesToExpire,
		ExternalReference: req.OrderID,
		Callback:          req.Callback,
		Items:             items,
		CustomerData:      req.Customer,
	}
	for _, sp := range splits.Splits {
		out.Splits = append(out.Splits, gateway.Split{
			WalletID:        sp.WalletID,
			PercentualValue: sp.PercentageValue.InexactFloat64(),
		})
	}
	if s.options.MaxInstallments > 1 {
		out.Installment = &gateway.Installment{MaxInstallmentCount: s.options.MaxInstallments}
	}
	return out
}

func validateCheckout(req relay.CheckoutRequest) error {
	if strings.TrimSpace(req.OrderID) == "" {
		return fmt.Errorf("%w: orderId is required", checkouterr.ErrInvalidInput)
	}
	if len(req.LineItems) == 0 {
		return fmt.Errorf("%w: at least one line item is required", checkouterr.ErrInvalidInput)
	}
	if req.CompanyID != "" && req.CompanyID != req.MerchantID {
		return fmt.Errorf("%w: companyId does not match the signed merchant", checkouterr.ErrInvalidInput)
	}

	sum := decimal.Zero
	for _, line := range req.LineItems {
		if line.Quantity <= 0 || line.UnitPrice < 0 {
			return fmt.Errorf("%w: line items need a positive quantity and a non-negative price", checkouterr.ErrInvalidInput)
		}
		sum = sum.Add(split.LineSubtotal(line.UnitPrice, line.Quantity))
	}
	total := split.RoundAmount(decimal.NewFromFloat(req.TotalAmount))
	if !sum.Equal(total) {
		return fmt.Errorf("%w: line items add up to %s, total is %s",
			checkouterr.ErrInvalidInput, sum.StringFixed(2), total.StringFixed(2))
	}
	return nil
}
