package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	d "github.com/guaracyalima/xeco-public-sub002/checkout-service/domain"
	r "github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/repository"
	"github.com/guaracyalima/xeco-public-sub002/pkg/docstore"
	"github.com/guaracyalima/xeco-public-sub002/pkg/gateway"
	"github.com/guaracyalima/xeco-public-sub002/pkg/relay"
	"github.com/guaracyalima/xeco-public-sub002/pkg/retry"
	"github.com/guaracyalima/xeco-public-sub002/pkg/signature"
	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
)

// MockRepository implements r.RepoInterface in memory for testing
type MockRepository struct {
	mu       sync.Mutex
	Sessions map[string]*r.CheckoutSession

	GetErr      error
	CreateErr   error
	CompleteErr error

	CreatedSession   *r.CheckoutSession
	FailedID         string
	FailReason       string
	CompletedID      string
	CompletedPayload []byte
	CompleteCalls    int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{Sessions: map[string]*r.CheckoutSession{}}
}

func (m *MockRepository) Close() error {
	return nil
}

func (m *MockRepository) RunMigrations(*r.Credentials) error {
	return nil
}

func (m *MockRepository) put(s *r.CheckoutSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sessions[s.ID] = s
}

func (m *MockRepository) GetCheckoutSession(_ context.Context, id string) (*r.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, r.ErrSessionNotFound
}

func (m *MockRepository) GetCheckoutSessionByIdempotencyKey(_ context.Context, key string) (*r.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, s := range m.Sessions {
		if s.IdempotencyKey == key {
			copied := *s
			return &copied, nil
		}
	}
	return nil, r.ErrIdempotencyKeyNotFound
}

func (m *MockRepository) GetCheckoutSessionByGatewayID(_ context.Context, gatewayCheckoutID string) (*r.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.Sessions {
		if s.GatewayCheckoutID != "" && s.GatewayCheckoutID == gatewayCheckoutID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, r.ErrSessionNotFound
}

func (m *MockRepository) CreateCheckoutSession(_ context.Context, session *r.CheckoutSession) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	session.Status = d.CheckoutStatusInitiated
	m.CreatedSession = session
	copied := *session
	m.put(&copied)
	return nil
}

func (m *MockRepository) SetGatewayCheckout(_ context.Context, id, gatewayCheckoutID, checkoutURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return r.ErrSessionNotFound
	}
	if s.Status != d.CheckoutStatusInitiated {
		return r.ErrStatusConflict
	}
	s.Status = d.CheckoutStatusPaymentPending
	s.GatewayCheckoutID = gatewayCheckoutID
	s.CheckoutURL = checkoutURL
	return nil
}

func (m *MockRepository) FailCheckoutSession(_ context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return r.ErrSessionNotFound
	}
	if s.Status.IsTerminal() {
		return r.ErrStatusConflict
	}
	s.Status = d.CheckoutStatusFailed
	s.FailureReason = reason
	m.FailedID = id
	m.FailReason = reason
	return nil
}

func (m *MockRepository) CompleteCheckoutSession(_ context.Context, id string, eventPayload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls++
	if m.CompleteErr != nil {
		return m.CompleteErr
	}
	s, ok := m.Sessions[id]
	if !ok {
		return r.ErrSessionNotFound
	}
	if s.Status != d.CheckoutStatusPaymentPending {
		return r.ErrStatusConflict
	}
	s.Status = d.CheckoutStatusCompleted
	m.CompletedID = id
	m.CompletedPayload = eventPayload
	return nil
}

func (m *MockRepository) GetStaleSessions(_ context.Context, _ time.Duration, _ int) ([]*r.CheckoutSession, error) {
	return nil, nil
}

func (m *MockRepository) GetUnprocessedEvents(_ context.Context, _ int) ([]*r.OutboxEvent, error) {
	return nil, nil
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, _ int64) error {
	return nil
}

// MockRelayClient returns Errs in order, one per call, then Response.
type MockRelayClient struct {
	Response *relay.CheckoutResponse
	Errs     []error
	Calls    int
	Requests []relay.CheckoutRequest

	Account      *relay.AccountResponse
	AccountErr   error
	AccountCalls int
}

func (m *MockRelayClient) CreateCheckout(ctx context.Context, req relay.CheckoutRequest) (*relay.CheckoutResponse, error) {
	m.Calls++
	m.Requests = append(m.Requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Calls <= len(m.Errs) && m.Errs[m.Calls-1] != nil {
		return nil, m.Errs[m.Calls-1]
	}
	return m.Response, nil
}

func (m *MockRelayClient) CreateAccount(_ context.Context, _ relay.AccountRequest) (*relay.AccountResponse, error) {
	m.AccountCalls++
	return m.Account, m.AccountErr
}

type MockResolver struct {
	Merchant     *d.Merchant
	MerchantErr  error
	Affiliate    *d.Affiliate
	AffiliateErr error
	Invalidated  []string

	CouponCode    string
	AffiliateCode string
}

func (m *MockResolver) ResolveMerchant(_ context.Context, _ string) (*d.Merchant, error) {
	return m.Merchant, m.MerchantErr
}

func (m *MockResolver) ResolveAffiliate(_ context.Context, _, couponCode, affiliateCode string) (*d.Affiliate, error) {
	m.CouponCode = couponCode
	m.AffiliateCode = affiliateCode
	return m.Affiliate, m.AffiliateErr
}

func (m *MockResolver) Invalidate(_ context.Context, key string) {
	m.Invalidated = append(m.Invalidated, key)
}

// MockCompanyStore serves company documents and records the last update.
type MockCompanyStore struct {
	Companies map[string]d.Merchant
	GetErr    error

	Collection string
	ID         string
	Fields     map[string]any
	Err        error
}

func (m *MockCompanyStore) Get(_ context.Context, _ string, id string, out any) error {
	if m.GetErr != nil {
		return m.GetErr
	}
	company, ok := m.Companies[id]
	if !ok {
		return docstore.ErrNotFound
	}
	*out.(*d.Merchant) = company
	return nil
}

func (m *MockCompanyStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	m.Collection = collection
	m.ID = id
	m.Fields = fields
	return m.Err
}

// fakeClock fires immediately and remembers every requested wait.
type fakeClock struct {
	waits []time.Duration
}

func (c *fakeClock) After(wait time.Duration) <-chan time.Time {
	c.waits = append(c.waits, wait)
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

const testSecret = "test-signing-secret"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testDeps struct {
	repo      *MockRepository
	relay     *MockRelayClient
	resolver  *MockResolver
	companies *MockCompanyStore
	clock     *fakeClock
	guard     *signature.Guard
}

// newTestCheckoutService creates a fully wired CheckoutService for testing
func newTestCheckoutService(t *testing.T) (*CheckoutServiceImpl, *testDeps) {
	guard, err := signature.NewGuard(testSecret)
	require.NoError(t, err)
	calculator, err := split.NewCalculator(split.DefaultPlatformFeePercentage)
	require.NoError(t, err)

	deps := &testDeps{
		repo: NewMockRepository(),
		relay: &MockRelayClient{
			Response: &relay.CheckoutResponse{CheckoutID: "chk_123", CheckoutURL: "https://pay.example/c/chk_123"},
		},
		resolver: &MockResolver{
			Merchant: &d.Merchant{ID: "company-1", Name: "Loja", WalletID: "wallet-merchant", Active: true},
		},
		companies: &MockCompanyStore{Companies: map[string]d.Merchant{
			"company-1": {ID: "company-1", Name: "Loja", OwnerID: "owner-1", Active: true},
		}},
		clock:     &fakeClock{},
		guard:     guard,
	}

	svc := NewCheckoutService(deps.repo, deps.resolver, deps.relay, deps.companies, guard, calculator, Options{
		Retry: retry.Policy{
			MaxAttempts: 3,
			Delay:       retry.Exponential(100*time.Millisecond, time.Second),
		},
		Clock: deps.clock,
		Callbacks: gateway.Callback{
			SuccessURL: "https://shop.example/checkout/{session_id}/success",
			CancelURL:  "https://shop.example/checkout/{session_id}/cancel",
			ExpiredURL: "https://shop.example/checkout/{session_id}/expired",
		},
		Now: func() time.Time { return testNow },
	})
	return svc, deps
}
