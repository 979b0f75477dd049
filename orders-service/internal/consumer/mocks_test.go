package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/guaracyalima/xeco-public-sub002/orders-service/internal/domain"
	"github.com/guaracyalima/xeco-public-sub002/orders-service/internal/repository"
)

type MockOrderRepository struct {
	mu        sync.Mutex
	Orders    map[string]*domain.Order
	Sales     []*domain.AffiliateSale
	CreateErr []error
	SaleErr   error
	Creates   int
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{Orders: map[string]*domain.Order{}}
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Creates++
	if len(m.CreateErr) > 0 {
		err := m.CreateErr[0]
		m.CreateErr = m.CreateErr[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := m.Orders[order.ID]; ok {
		return repository.ErrDuplicateOrder
	}
	m.Orders[order.ID] = order
	return nil
}

func (m *MockOrderRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.Orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *MockOrderRepository) ListOrdersByUserID(ctx context.Context, userID string, limit int64) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.Orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockOrderRepository) WatchOrders(ctx context.Context, userID string) (<-chan *domain.Order, error) {
	return nil, errors.New("not implemented")
}

func (m *MockOrderRepository) RecordAffiliateSale(ctx context.Context, sale *domain.AffiliateSale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaleErr != nil {
		return m.SaleErr
	}
	m.Sales = append(m.Sales, sale)
	return nil
}

// fakeReader serves queued messages once, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

func (f *fakeReader) commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

type instantClock struct{}

func (instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}
