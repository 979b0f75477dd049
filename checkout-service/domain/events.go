package domain

import "time"

const EventCheckoutCompleted = "checkout.completed"

type EventAffiliate struct {
	ID                   string  `json:"id"`
	WalletID             string  `json:"wallet_id"`
	CommissionPercentage float64 `json:"commission_percentage"`
	CommissionAmount     float64 `json:"commission_amount"`
}

// CheckoutCompletedEvent is the outbox payload published once payment is confirmed.
type CheckoutCompletedEvent struct {
	CheckoutID        string             `json:"checkout_id"`
	UserID            string             `json:"user_id"`
	CompanyID         string             `json:"company_id"`
	Items             []CartSnapshotItem `json:"items"`
	TotalAmount       float64            `json:"total_amount"`
	Currency          string             `json:"currency"`
	PlatformFeeAmount float64            `json:"platform_fee_amount"`
	MerchantAmount    float64            `json:"merchant_amount"`
	CouponCode        string             `json:"coupon_code,omitempty"`
	Affiliate         *EventAffiliate    `json:"affiliate,omitempty"`
	GatewayCheckoutID string             `json:"gateway_checkout_id"`
	PaymentID         string             `json:"payment_id,omitempty"`
	CompletedAt       time.Time          `json:"completed_at"`
}
