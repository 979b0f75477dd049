package service

import (
	"context"
	"strings"

	d "github.com/guaracyalima/xeco-public-sub002/checkout-service/domain"
	r "github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/repository"
	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/gateway"
	"github.com/guaracyalima/xeco-public-sub002/pkg/relay"
	"github.com/guaracyalima/xeco-public-sub002/pkg/retry"
	"github.com/guaracyalima/xeco-public-sub002/pkg/signature"
	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
)

// callback URLs may carry this placeholder for the session id
const sessionPlaceholder = "{session_id}"

// requestCheckout calls the relay under the retry policy. Only
// ErrRelayUnavailable is retried; every other failure comes back unchanged.
func (s *CheckoutServiceImpl) requestCheckout(ctx context.Context, req relay.CheckoutRequest) (*relay.CheckoutResponse, error) {
	policy := s.retry
	policy.Retryable = checkouterr.Retryable

	return retry.Do(ctx, policy, s.clock, func(ctx context.Context, attempt int) (*relay.CheckoutResponse, error) {
		resp, err := s.relay.CreateCheckout(ctx, req)
		if err != nil {
			s.logger.WarnContext(ctx, "relay checkout attempt failed",
				"session_id", req.OrderID,
				"attempt", attempt,
				"max_attempts", policy.MaxAttempts,
				"retryable", checkouterr.Retryable(err),
				"error", err,
			)
		}
		return resp, err
	})
}

func (s *CheckoutServiceImpl) relayRequest(
	session *r.CheckoutSession,
	request *d.CheckoutRequest,
	payload signature.Payload,
	merchantWalletID string,
	snapshot *d.CartSnapshot,
	splits split.Result,
	affiliate *d.Affiliate,
) relay.CheckoutRequest {
	items := make([]relay.Item, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, relay.Item{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Subtotal,
		})
	}

	req := relay.CheckoutRequest{
		Payload:          payload,
		Signature:        session.Signature,
		OrderID:          session.ID,
		CompanyID:        session.CompanyID,
		MerchantWalletID: merchantWalletID,
		UserID:           session.UserID,
		Items:            items,
		Splits:           splits.Splits,
		Callback: gateway.Callback{
			SuccessURL: withSession(s.callbacks.SuccessURL, session.ID),
			CancelURL:  withSession(s.callbacks.CancelURL, session.ID),
			ExpiredURL: withSession(s.callbacks.ExpiredURL, session.ID),
		},
	}
	if affiliate != nil {
		req.Affiliate = &relay.Affiliate{
			ID:                   affiliate.ID,
			WalletID:             affiliate.WalletID,
			CommissionPercentage: session.CommissionPercentage,
		}
	}
	if c := request.Customer; c != nil {
		req.Customer = &gateway.CustomerData{
			Name:    c.Name,
			Email:   c.Email,
			CpfCnpj: c.CpfCnpj,
			Phone:   c.Phone,
		}
	}
	return req
}

func withSession(url, sessionID string) string {
	return strings.ReplaceAll(url, sessionPlaceholder, sessionID)
}
