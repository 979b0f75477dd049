package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/guaracyalima/xeco-public-sub002/orders-service/internal/domain"
	"github.com/guaracyalima/xeco-public-sub002/pkg/docstore"
)

const (
	OrdersCollection         = "orders"
	AffiliateSalesCollection = "affiliate_sales"
	AffiliatesCollection     = "affiliates"

	PendingBalanceField = "pending_balance"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateOrder    = errors.New("order for this checkout already exists")
	ErrAffiliateNotFound = errors.New("affiliate not found")
)

// Store is the part of docstore.Store the repository uses.
type Store interface {
	Create(ctx context.Context, collection, id string, doc any) error
	Get(ctx context.Context, collection, id string, out any) error
	Query(ctx context.Context, collection string, q docstore.Query, out any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Increment(ctx context.Context, collection, id, field string, delta float64) error
	Subscribe(ctx context.Context, collection string, where bson.M) (<-chan docstore.Change, error)
	EnsureIndex(ctx context.Context, collection, field string, unique bool) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string, limit int64) ([]*domain.Order, error)
	WatchOrders(ctx context.Context, userID string) (<-chan *domain.Order, error)
	RecordAffiliateSale(ctx context.Context, sale *domain.AffiliateSale) error
}
