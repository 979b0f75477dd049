package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	d "github.com/guaracyalima/xeco-public-sub002/checkout-service/domain"
	r "github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/repository"
	"github.com/guaracyalima/xeco-public-sub002/pkg/gateway"
)

// HandlePaymentEvent applies a gateway webhook to its session. Replayed
// events are no-ops, since the gateway redelivers until it gets a 2xx.
func (s *CheckoutServiceImpl) HandlePaymentEvent(ctx context.Context, event *gateway.WebhookEvent) error {
	if !event.IsPaid() && !event.IsAbandoned() {
		s.logger.DebugContext(ctx, "ignoring webhook event", "event", event.Event)
		return nil
	}

	session, err := s.findSession(ctx, event)
	if err != nil {
		return err
	}

	if event.IsPaid() {
		return s.complete(ctx, session, event)
	}
	return s.expire(ctx, session, event)
}

func (s *CheckoutServiceImpl) findSession(ctx context.Context, event *gateway.WebhookEvent) (*r.CheckoutSession, error) {
	if id := event.CheckoutID(); id != "" {
		session, err := s.repo.GetCheckoutSessionByGatewayID(ctx, id)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, r.ErrSessionNotFound) {
			return nil, err
		}
	}
	// the relay sends the session id as the gateway's external reference
	if ref := event.ExternalReference(); ref != "" {
		session, err := s.repo.GetCheckoutSession(ctx, ref)
		if errors.Is(err, r.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return session, err
	}
	return nil, ErrSessionNotFound
}

func (s *CheckoutServiceImpl) complete(ctx context.Context, session *r.CheckoutSession, event *gateway.WebhookEvent) error {
	if session.Status == d.CheckoutStatusCompleted {
		return nil
	}
	if !d.CanTransitionTo(session.Status, d.CheckoutStatusCompleted) {
		s.logger.WarnContext(ctx, "payment confirmed for session that cannot complete",
			"session_id", session.ID, "status", session.Status, "event", event.Event)
		return IllegalTransitionError
	}

	payload, err := completedEvent(session, event, s.now())
	if err != nil {
		return err
	}

	err = s.repo.CompleteCheckoutSession(ctx, session.ID, payload)
	if errors.Is(err, r.ErrStatusConflict) {
		s.logger.InfoContext(ctx, "checkout already settled", "session_id", session.ID)
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "checkout completed",
		"session_id", session.ID,
		"gateway_checkout_id", session.GatewayCheckoutID,
		"event", event.Event,
	)
	return nil
}

func (s *CheckoutServiceImpl) expire(ctx context.Context, session *r.CheckoutSession, event *gateway.WebhookEvent) error {
	if session.Status.IsTerminal() {
		return nil
	}
	reason := "gateway " + strings.ToLower(event.Event)
	err := s.repo.FailCheckoutSession(ctx, session.ID, reason)
	if errors.Is(err, r.ErrStatusConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "checkout abandoned", "session_id", session.ID, "reason", reason)
	return nil
}

func completedEvent(session *r.CheckoutSession, event *gateway.WebhookEvent, now time.Time) ([]byte, error) {
	var snapshot d.CartSnapshot
	if err := json.Unmarshal(session.CartSnapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart snapshot: %w", err)
	}

	payload := d.CheckoutCompletedEvent{
		CheckoutID:        session.ID,
		UserID:            session.UserID,
		CompanyID:         session.CompanyID,
		Items:             snapshot.Items,
		TotalAmount:       session.TotalAmount.InexactFloat64(),
		Currency:          session.Currency,
		PlatformFeeAmount: session.PlatformFeeAmount.InexactFloat64(),
		MerchantAmount:    session.MerchantAmount.InexactFloat64(),
		CouponCode:        session.CouponCode,
		GatewayCheckoutID: session.GatewayCheckoutID,
		CompletedAt:       now,
	}
	if event.Payment != nil {
		payload.PaymentID = event.Payment.ID
	}
	if session.AffiliateID != "" {
		payload.Affiliate = &d.EventAffiliate{
			ID:                   session.AffiliateID,
			WalletID:             session.AffiliateWalletID,
			CommissionPercentage: session.CommissionPercentage.InexactFloat64(),
			CommissionAmount:     session.AffiliateCommissionAmount.InexactFloat64(),
		}
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout payload: %w", err)
	}
	return payloadJSON, nil
}
