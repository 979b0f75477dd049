package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	d "github.com/guaracyalima/xeco-public-sub002/checkout-service/domain"
	r "github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/repository"
	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/signature"
	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
)

// Sign returns the signature of the projection the client assembled. Nothing
// is persisted.
func (s *CheckoutServiceImpl) Sign(_ context.Context, request *d.SignRequest) (string, error) {
	if request.MerchantID == "" {
		return "", fmt.Errorf("%w: merchantId is required", checkouterr.ErrInvalidInput)
	}
	if request.TotalAmount <= 0 {
		return "", fmt.Errorf("%w: totalAmount must be positive", checkouterr.ErrInvalidInput)
	}
	if err := validateItems(request.Items); err != nil {
		return "", err
	}
	return s.guard.Sign(signature.Payload{
		MerchantID:  request.MerchantID,
		TotalAmount: request.TotalAmount,
		LineItems:   lineItems(request.Items),
		CouponCode:  request.CouponCode,
	})
}

func (s *CheckoutServiceImpl) InitiateCheckout(
	ctx context.Context,
	request *d.CheckoutRequest) (*d.CheckoutResponse, error) {

	if err := validateCheckout(request); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetCheckoutSessionByIdempotencyKey(ctx, request.IdempotencyKey)
	if err != nil && !errors.Is(err, r.ErrIdempotencyKeyNotFound) {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		return s.replay(ctx, request, existing)
	}

	merchant, err := s.resolver.ResolveMerchant(ctx, request.CompanyID)
	if err != nil {
		return nil, err
	}
	affiliate, err := s.resolver.ResolveAffiliate(ctx, request.CompanyID, request.CouponCode, request.AffiliateCode)
	if err != nil {
		return nil, err
	}

	snapshot := d.NewCartSnapshot(request.Items, s.now())
	payload := signature.Payload{
		MerchantID:  request.CompanyID,
		TotalAmount: snapshot.TotalAmount,
		LineItems:   lineItems(request.Items),
		CouponCode:  request.CouponCode,
	}
	sig, err := s.guard.Sign(payload)
	if err != nil {
		return nil, err
	}

	splitInput := split.Input{
		TotalAmount:      decimal.NewFromFloat(snapshot.TotalAmount),
		MerchantWalletID: merchant.WalletID,
	}
	if affiliate != nil {
		splitInput.Affiliate = &split.Affiliate{
			WalletID:             affiliate.WalletID,
			CommissionPercentage: decimal.NewFromFloat(affiliate.CommissionPercentage),
		}
	}
	splits, err := s.calculator.Calculate(splitInput)
	if err != nil {
		return nil, err
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	session := &r.CheckoutSession{
		ID:                        uuid.New().String(),
		UserID:                    request.UserID,
		CompanyID:                 request.CompanyID,
		CartSnapshot:              snapshotJSON,
		IdempotencyKey:            request.IdempotencyKey,
		TotalAmount:               splitInput.TotalAmount,
		Currency:                  snapshot.Currency,
		Signature:                 sig,
		CouponCode:                request.CouponCode,
		PlatformFeeAmount:         splits.PlatformFeeAmount,
		AffiliateCommissionAmount: splits.AffiliateCommissionAmount,
		MerchantAmount:            splits.MerchantAmount,
	}
	if affiliate != nil {
		session.AffiliateID = affiliate.ID
		session.AffiliateWalletID = affiliate.WalletID
		session.CommissionPercentage = splitInput.Affiliate.CommissionPercentage
	}

	if err := s.repo.CreateCheckoutSession(ctx, session); err != nil {
		if errors.Is(err, r.ErrDuplicateIdempotencyKey) {
			// lost the race to a concurrent request with the same key
			existing, getErr := s.repo.GetCheckoutSessionByIdempotencyKey(ctx, request.IdempotencyKey)
			if getErr != nil {
				return nil, fmt.Errorf("failed to load concurrent checkout: %w", getErr)
			}
			return s.replay(ctx, request, existing)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "checkout session created",
		"session_id", session.ID,
		"company_id", session.CompanyID,
		"total_amount", session.TotalAmount.StringFixed(2),
		"affiliate_id", session.AffiliateID,
	)

	resp, err := s.requestCheckout(ctx, s.relayRequest(session, request, payload, merchant.WalletID, snapshot, splits, affiliate))
	if err != nil {
		s.abandon(ctx, session.ID, err)
		return nil, err
	}

	if err := s.repo.SetGatewayCheckout(ctx, session.ID, resp.CheckoutID, resp.CheckoutURL); err != nil {
		s.logger.ErrorContext(ctx, "failed to record gateway checkout",
			"session_id", session.ID, "checkout_id", resp.CheckoutID, "error", err)
		return nil, fmt.Errorf("failed to record gateway checkout: %w", err)
	}

	return &d.CheckoutResponse{
		SessionID:   session.ID,
		CheckoutID:  resp.CheckoutID,
		CheckoutURL: resp.CheckoutURL,
		Status:      d.CheckoutStatusPaymentPending,
	}, nil
}

// replay answers a repeated idempotency key with the stored session.
func (s *CheckoutServiceImpl) replay(ctx context.Context, request *d.CheckoutRequest, existing *r.CheckoutSession) (*d.CheckoutResponse, error) {
	if existing.UserID != request.UserID {
		return nil, fmt.Errorf("%w: idempotency key belongs to another checkout", checkouterr.ErrInvalidInput)
	}
	s.logger.InfoContext(ctx, "duplicate checkout request",
		"idempotency_key", request.IdempotencyKey,
		"session_id", existing.ID,
		"status", existing.Status,
	)
	return &d.CheckoutResponse{
		SessionID:   existing.ID,
		CheckoutID:  existing.GatewayCheckoutID,
		CheckoutURL: existing.CheckoutURL,
		Status:      existing.Status,
	}, nil
}

// abandon marks the session FAILED after a relay failure. A cancelled caller
// leaves it INITIATED: the relay may still have created the gateway checkout,
// and stale session recovery settles it later.
func (s *CheckoutServiceImpl) abandon(ctx context.Context, sessionID string, cause error) {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		s.logger.WarnContext(ctx, "checkout interrupted", "session_id", sessionID, "error", cause)
		return
	}
	if err := s.repo.FailCheckoutSession(context.WithoutCancel(ctx), sessionID, cause.Error()); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark checkout failed", "session_id", sessionID, "error", err)
	}
}

func (s *CheckoutServiceImpl) GetCheckout(ctx context.Context, sessionID, userID string) (*r.CheckoutSession, error) {
	session, err := s.repo.GetCheckoutSession(ctx, sessionID)
	if errors.Is(err, r.ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	// other users' sessions look the same as missing ones
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func validateCheckout(request *d.CheckoutRequest) error {
	var problems []string
	if request.UserID == "" {
		problems = append(problems, "user is required")
	}
	if strings.TrimSpace(request.IdempotencyKey) == "" {
		problems = append(problems, "idempotency key is required")
	}
	if request.CompanyID == "" {
		problems = append(problems, "companyId is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", checkouterr.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return validateItems(request.Items)
}

func validateItems(items []d.CartItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: %w", checkouterr.ErrInvalidInput, ErrEmptyCart)
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be positive", checkouterr.ErrInvalidInput, i)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: item %d unitPrice must not be negative", checkouterr.ErrInvalidInput, i)
		}
	}
	return nil
}

func lineItems(items []d.CartItem) []signature.LineItem {
	out := make([]signature.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, signature.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return out
}
