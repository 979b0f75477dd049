package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/guaracyalima/xeco-public-sub002/orders-service/internal/domain"
	"github.com/guaracyalima/xeco-public-sub002/pkg/docstore"
)

const defaultListLimit = 50

type Repository struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewRepository(store Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

var _ OrderRepository = (*Repository)(nil)

// EnsureIndexes creates the lookup indexes the listing queries rely on.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	for _, idx := range []struct{ collection, field string }{
		{OrdersCollection, "user_id"},
		{OrdersCollection, "company_id"},
		{AffiliateSalesCollection, "affiliate_id"},
	} {
		if err := r.store.EnsureIndex(ctx, idx.collection, idx.field, false); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	now := r.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	err := r.store.Create(ctx, OrdersCollection, order.ID, order)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return ErrDuplicateOrder
	}
	if err != nil {
		return fmt.Errorf("failed to create order %s: %w", order.ID, err)
	}
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := r.store.Get(ctx, OrdersCollection, id, &order)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return &order, nil
}

// ListOrdersByUserID returns the user's orders, newest first.
func (r *Repository) ListOrdersByUserID(ctx context.Context, userID string, limit int64) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var orders []*domain.Order
	err := r.store.Query(ctx, OrdersCollection, docstore.Query{
		Where:   bson.M{"user_id": userID},
		OrderBy: "created_at",
		Desc:    true,
		Limit:   limit,
	}, &orders)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// WatchOrders streams orders of userID as they are created or updated, until
// ctx is done.
func (r *Repository) WatchOrders(ctx context.Context, userID string) (<-chan *domain.Order, error) {
	changes, err := r.store.Subscribe(ctx, OrdersCollection, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}

	orders := make(chan *domain.Order)
	go func() {
		defer close(orders)
		for change := range changes {
			if change.Op == docstore.OpDelete {
				continue
			}
			var order domain.Order
			if err := change.Decode(&order); err != nil {
				r.logger.WarnContext(ctx, "undecodable order change", "order_id", change.ID, "error", err)
				continue
			}
			select {
			case orders <- &order:
			case <-ctx.Done():
				return
			}
		}
	}()
	return orders, nil
}

// RecordAffiliateSale stores the sale and credits its commission to the
// affiliate's pending balance exactly once per sale id. A replay finding an
// uncredited sale finishes the credit.
func (r *Repository) RecordAffiliateSale(ctx context.Context, sale *domain.AffiliateSale) error {
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = r.now()
	}

	err := r.store.Create(ctx, AffiliateSalesCollection, sale.ID, sale)
	switch {
	case err == nil:
	case errors.Is(err, docstore.ErrAlreadyExists):
		var existing domain.AffiliateSale
		if err := r.store.Get(ctx, AffiliateSalesCollection, sale.ID, &existing); err != nil {
			return fmt.Errorf("failed to read affiliate sale %s: %w", sale.ID, err)
		}
		if existing.Credited {
			return nil
		}
		sale = &existing
	default:
		return fmt.Errorf("failed to create affiliate sale %s: %w", sale.ID, err)
	}

	err = r.store.Increment(ctx, AffiliatesCollection, sale.AffiliateID, PendingBalanceField, sale.CommissionAmount)
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrAffiliateNotFound, sale.AffiliateID)
	}
	if err != nil {
		return fmt.Errorf("failed to credit affiliate %s: %w", sale.AffiliateID, err)
	}

	if err := r.store.Update(ctx, AffiliateSalesCollection, sale.ID, map[string]any{"credited": true}); err != nil {
		return fmt.Errorf("failed to mark affiliate sale %s credited: %w", sale.ID, err)
	}
	return nil
}
