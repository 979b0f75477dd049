package domain

import "time"

type OrderStatus string

const (
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
)

type OrderItem struct {
	ProductID   string  `bson:"product_id" json:"productId"`
	ProductName string  `bson:"product_name" json:"productName"`
	Quantity    int     `bson:"quantity" json:"quantity"`
	UnitPrice   float64 `bson:"unit_price" json:"unitPrice"`
	Subtotal    float64 `bson:"subtotal" json:"subtotal"`
}

type OrderAffiliate struct {
	ID                   string  `bson:"id" json:"id"`
	WalletID             string  `bson:"wallet_id" json:"walletId"`
	CommissionPercentage float64 `bson:"commission_percentage" json:"commissionPercentage"`
	CommissionAmount     float64 `bson:"commission_amount" json:"commissionAmount"`
}

// Order is a paid checkout. Its ID is the checkout session id, so replays of
// the same completion event map onto the same document.
type Order struct {
	ID                string          `bson:"_id" json:"id"`
	UserID            string          `bson:"user_id" json:"userId"`
	CompanyID         string          `bson:"company_id" json:"companyId"`
	Items             []OrderItem     `bson:"items" json:"items"`
	TotalAmount       float64         `bson:"total_amount" json:"totalAmount"`
	Currency          string          `bson:"currency" json:"currency"`
	PlatformFeeAmount float64         `bson:"platform_fee_amount" json:"platformFeeAmount"`
	MerchantAmount    float64         `bson:"merchant_amount" json:"merchantAmount"`
	CouponCode        string          `bson:"coupon_code,omitempty" json:"couponCode,omitempty"`
	Affiliate         *OrderAffiliate `bson:"affiliate,omitempty" json:"affiliate,omitempty"`
	GatewayCheckoutID string          `bson:"gateway_checkout_id" json:"gatewayCheckoutId"`
	PaymentID         string          `bson:"payment_id,omitempty" json:"paymentId,omitempty"`
	Status            OrderStatus     `bson:"status" json:"status"`
	PaidAt            time.Time       `bson:"paid_at" json:"paidAt"`
	CreatedAt         time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time       `bson:"updated_at" json:"updatedAt"`
}

type SaleStatus string

const SaleStatusPending SaleStatus = "PENDING"

// AffiliateSale records the commission an affiliate earned on one order.
// Credited flips once the commission has reached the affiliate's pending
// balance.
type AffiliateSale struct {
	ID                   string     `bson:"_id" json:"id"`
	AffiliateID          string     `bson:"affiliate_id" json:"affiliateId"`
	CompanyID            string     `bson:"company_id" json:"companyId"`
	OrderID              string     `bson:"order_id" json:"orderId"`
	UserID               string     `bson:"user_id" json:"userId"`
	OrderTotal           float64    `bson:"order_total" json:"orderTotal"`
	CommissionPercentage float64    `bson:"commission_percentage" json:"commissionPercentage"`
	CommissionAmount     float64    `bson:"commission_amount" json:"commissionAmount"`
	Status               SaleStatus `bson:"status" json:"status"`
	Credited             bool       `bson:"credited" json:"credited"`
	CreatedAt            time.Time  `bson:"created_at" json:"createdAt"`
}

func SaleID(orderID string) string {
	return "sale-" + orderID
}
