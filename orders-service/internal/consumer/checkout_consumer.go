package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/guaracyalima/xeco-public-sub002/orders-service/internal/domain"
	"github.com/guaracyalima/xeco-public-sub002/orders-service/internal/repository"
	"github.com/guaracyalima/xeco-public-sub002/pkg/retry"
)

const (
	DefaultTopic   = "checkout-outbox"
	DefaultGroupID = "orders-service"

	EventCheckoutCompleted = "checkout.completed"
	eventTypeHeader        = "event_type"
)

// eventItem mirrors the cart snapshot item the checkout-service publishes.
type eventItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

type eventAffiliate struct {
	ID                   string  `json:"id"`
	WalletID             string  `json:"wallet_id"`
	CommissionPercentage float64 `json:"commission_percentage"`
	CommissionAmount     float64 `json:"commission_amount"`
}

type CheckoutCompletedEvent struct {
	CheckoutID        string          `json:"checkout_id"`
	UserID            string          `json:"user_id"`
	CompanyID         string          `json:"company_id"`
	Items             []eventItem     `json:"items"`
	TotalAmount       float64         `json:"total_amount"`
	Currency          string          `json:"currency"`
	PlatformFeeAmount float64         `json:"platform_fee_amount"`
	MerchantAmount    float64         `json:"merchant_amount"`
	CouponCode        string          `json:"coupon_code,omitempty"`
	Affiliate         *eventAffiliate `json:"affiliate,omitempty"`
	GatewayCheckoutID string          `json:"gateway_checkout_id"`
	PaymentID         string          `json:"payment_id,omitempty"`
	CompletedAt       time.Time       `json:"completed_at"`
}

// MessageReader is the part of kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
	// store writes are retried this many times before a message is given up on
	MaxAttempts int
}

// errPoison marks messages that can never be processed.
var errPoison = errors.New("unprocessable message")

type Consumer struct {
	repo   repository.OrderRepository
	reader MessageReader
	retry  retry.Policy
	clock  retry.Clock
	logger *slog.Logger
}

func NewConsumer(repo repository.OrderRepository, cfg Config, logger *slog.Logger) *Consumer {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.GroupID == "" {
		cfg.GroupID = DefaultGroupID
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(repo, reader, cfg.MaxAttempts, retry.RealClock, logger)
}

func newConsumer(repo repository.OrderRepository, reader MessageReader, maxAttempts int, clock retry.Clock, logger *slog.Logger) *Consumer {
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		repo:   repo,
		reader: reader,
		retry: retry.Policy{
			MaxAttempts: maxAttempts,
			Delay:       retry.Exponential(500*time.Millisecond, 10*time.Second),
			Retryable:   func(err error) bool { return !errors.Is(err, errPoison) },
		},
		clock:  clock,
		logger: logger.With("component", "checkout_consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("error closing kafka reader", "error", err)
	}
}

// processMessage handles one message and commits it. Messages whose store
// writes keep failing are committed too, after logging the payload, so one
// bad message cannot stall the partition.
func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.logger.ErrorContext(ctx, "error reading message", "error", err)
		return
	}

	_, err = retry.Do(ctx, c.retry, c.clock, func(ctx context.Context, attempt int) (struct{}, error) {
		err := c.handle(ctx, m)
		if err != nil && !errors.Is(err, errPoison) {
			c.logger.WarnContext(ctx, "order processing attempt failed",
				"key", string(m.Key), "attempt", attempt, "error", err)
		}
		return struct{}{}, err
	})
	if ctx.Err() != nil {
		// not committed; redelivered after restart
		return
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "dropping checkout event",
			"key", string(m.Key), "offset", m.Offset, "partition", m.Partition,
			"payload", string(m.Value), "error", err)
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.logger.ErrorContext(ctx, "failed to commit message", "offset", m.Offset, "error", err)
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) error {
	if eventType := header(m, eventTypeHeader); eventType != "" && eventType != EventCheckoutCompleted {
		c.logger.DebugContext(ctx, "skipping event", "event_type", eventType)
		return nil
	}

	var event CheckoutCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("%w: %v", errPoison, err)
	}
	if event.CheckoutID == "" {
		return fmt.Errorf("%w: missing checkout_id", errPoison)
	}

	order := toOrder(&event)
	err := c.repo.CreateOrder(ctx, order)
	switch {
	case err == nil:
		c.logger.InfoContext(ctx, "order created", "order_id", order.ID, "user_id", order.UserID)
	case errors.Is(err, repository.ErrDuplicateOrder):
		// a replay still finishes a sale left uncredited
		c.logger.InfoContext(ctx, "order already exists, skipping", "order_id", order.ID)
	default:
		return err
	}

	sale := toAffiliateSale(&event)
	if sale == nil {
		return nil
	}
	err = c.repo.RecordAffiliateSale(ctx, sale)
	if errors.Is(err, repository.ErrAffiliateNotFound) {
		return fmt.Errorf("%w: %v", errPoison, err)
	}
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "affiliate commission credited",
		"order_id", order.ID, "affiliate_id", sale.AffiliateID, "amount", sale.CommissionAmount)
	return nil
}

func toOrder(event *CheckoutCompletedEvent) *domain.Order {
	currency := event.Currency
	if currency == "" {
		currency = "BRL"
	}

	items := make([]domain.OrderItem, len(event.Items))
	for i, item := range event.Items {
		items[i] = domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		}
	}

	order := &domain.Order{
		ID:                event.CheckoutID,
		UserID:            event.UserID,
		CompanyID:         event.CompanyID,
		Items:             items,
		TotalAmount:       event.TotalAmount,
		Currency:          currency,
		PlatformFeeAmount: event.PlatformFeeAmount,
		MerchantAmount:    event.MerchantAmount,
		CouponCode:        event.CouponCode,
		GatewayCheckoutID: event.GatewayCheckoutID,
		PaymentID:         event.PaymentID,
		Status:            domain.OrderStatusConfirmed,
		PaidAt:            event.CompletedAt,
	}
	if a := event.Affiliate; a != nil {
		order.Affiliate = &domain.OrderAffiliate{
			ID:                   a.ID,
			WalletID:             a.WalletID,
			CommissionPercentage: a.CommissionPercentage,
			CommissionAmount:     a.CommissionAmount,
		}
	}
	return order
}

func toAffiliateSale(event *CheckoutCompletedEvent) *domain.AffiliateSale {
	a := event.Affiliate
	if a == nil || a.ID == "" || a.CommissionAmount <= 0 {
		return nil
	}
	return &domain.AffiliateSale{
		ID:                   domain.SaleID(event.CheckoutID),
		AffiliateID:          a.ID,
		CompanyID:            event.CompanyID,
		OrderID:              event.CheckoutID,
		UserID:               event.UserID,
		OrderTotal:           event.TotalAmount,
		CommissionPercentage: a.CommissionPercentage,
		CommissionAmount:     a.CommissionAmount,
		Status:               domain.SaleStatusPending,
	}
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
