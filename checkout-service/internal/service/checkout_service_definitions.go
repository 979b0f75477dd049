package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/guaracyalima/xeco-public-sub002/checkout-service/domain"
	r "github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/repository"
	"github.com/guaracyalima/xeco-public-sub002/pkg/gateway"
	"github.com/guaracyalima/xeco-public-sub002/pkg/relay"
	"github.com/guaracyalima/xeco-public-sub002/pkg/retry"
	"github.com/guaracyalima/xeco-public-sub002/pkg/signature"
	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
)

type CheckoutService interface {
	Sign(ctx context.Context, request *domain.SignRequest) (string, error)
	InitiateCheckout(ctx context.Context, request *domain.CheckoutRequest) (*domain.CheckoutResponse, error)
	GetCheckout(ctx context.Context, sessionID, userID string) (*r.CheckoutSession, error)
	HandlePaymentEvent(ctx context.Context, event *gateway.WebhookEvent) error
	CreateMerchantAccount(ctx context.Context, in *MerchantAccountInput) (*relay.AccountResponse, error)
}

// RelayClient is the part of relay.Client the service calls.
type RelayClient interface {
	CreateCheckout(ctx context.Context, req relay.CheckoutRequest) (*relay.CheckoutResponse, error)
	CreateAccount(ctx context.Context, req relay.AccountRequest) (*relay.AccountResponse, error)
}

type Resolver interface {
	ResolveMerchant(ctx context.Context, companyID string) (*domain.Merchant, error)
	ResolveAffiliate(ctx context.Context, companyID, couponCode, affiliateCode string) (*domain.Affiliate, error)
	Invalidate(ctx context.Context, key string)
}

// CompanyStore reads company documents and stores the payout wallet of a
// freshly created merchant account.
type CompanyStore interface {
	Get(ctx context.Context, collection, id string, out any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
}

type Options struct {
	Retry     retry.Policy
	Clock     retry.Clock
	Callbacks gateway.Callback
	Logger    *slog.Logger
	Now       func() time.Time
}

type CheckoutServiceImpl struct {
	repo       r.RepoInterface
	resolver   Resolver
	relay      RelayClient
	companies  CompanyStore
	guard      *signature.Guard
	calculator *split.Calculator

	retry     retry.Policy
	clock     retry.Clock
	callbacks gateway.Callback
	logger    *slog.Logger
	now       func() time.Time
}

func NewCheckoutService(
	repo r.RepoInterface,
	resolver Resolver,
	relayClient RelayClient,
	companies CompanyStore,
	guard *signature.Guard,
	calculator *split.Calculator,
	opts Options,
) *CheckoutServiceImpl {
	s := &CheckoutServiceImpl{
		repo:       repo,
		resolver:   resolver,
		relay:      relayClient,
		companies:  companies,
		guard:      guard,
		calculator: calculator,
		retry:      opts.Retry,
		clock:      opts.Clock,
		callbacks:  opts.Callbacks,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if s.clock == nil {
		s.clock = retry.RealClock
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

var _ CheckoutService = (*CheckoutServiceImpl)(nil)
