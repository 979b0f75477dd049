package repository

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/guaracyalima/xeco-public-sub002/orders-service/internal/domain"
	"github.com/guaracyalima/xeco-public-sub002/pkg/docstore"
)

// fakeStore keeps affiliate sales in memory and hands out a caller-fed
// change channel.
type fakeStore struct {
	mu         sync.Mutex
	sales      map[string]domain.AffiliateSale
	increments map[string]float64
	changes    chan docstore.Change
	where      bson.M
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sales:      map[string]domain.AffiliateSale{},
		increments: map[string]float64{},
		changes:    make(chan docstore.Change, 4),
	}
}

func (f *fakeStore) Create(ctx context.Context, collection, id string, doc any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := doc.(*domain.AffiliateSale)
	if !ok {
		return nil
	}
	if _, exists := f.sales[id]; exists {
		return docstore.ErrAlreadyExists
	}
	f.sales[id] = *sale
	return nil
}

func (f *fakeStore) Get(ctx context.Context, collection, id string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[id]
	if !ok {
		return docstore.ErrNotFound
	}
	*out.(*domain.AffiliateSale) = sale
	return nil
}

func (f *fakeStore) Query(ctx context.Context, collection string, q docstore.Query, out any) error {
	return nil
}

func (f *fakeStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[id]
	if !ok {
		return docstore.ErrNotFound
	}
	if credited, ok := fields["credited"].(bool); ok {
		sale.Credited = credited
	}
	f.sales[id] = sale
	return nil
}

func (f *fakeStore) Increment(ctx context.Context, collection, id, field string, delta float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments[id] += delta
	return nil
}

func (f *fakeStore) Subscribe(ctx context.Context, collection string, where bson.M) (<-chan docstore.Change, error) {
	f.where = where
	return f.changes, nil
}

func (f *fakeStore) EnsureIndex(ctx context.Context, collection, field string, unique bool) error {
	return nil
}
