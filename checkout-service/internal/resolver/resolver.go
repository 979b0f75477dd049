// Package resolver looks up the merchant and affiliate behind a checkout,
// reading through the Redis cache to the document store.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/singleflight"

	"github.com/guaracyalima/xeco-public-sub002/checkout-service/domain"
	"github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/cache"
	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/docstore"
)

const (
	CompaniesCollection  = "companies"
	AffiliatesCollection = "affiliates"
	CouponsCollection    = "coupons"

	// bound on a shared lookup, independent of any single caller
	defaultLoadTimeout = 5 * time.Second
)

// DocumentStore is the read side of docstore.Store the resolver needs.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string, out any) error
	FindOne(ctx context.Context, collection string, where bson.M, out any) error
}

type Resolver struct {
	store       DocumentStore
	cache       cache.LookupCache
	sfg         singleflight.Group
	loadTimeout time.Duration
	logger      *slog.Logger
}

func New(store DocumentStore, c cache.LookupCache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, cache: c, loadTimeout: defaultLoadTimeout, logger: logger}
}

// ResolveMerchant returns the company with its payout wallet. Unknown or
// inactive companies, and companies without a wallet, are invalid input.
func (r *Resolver) ResolveMerchant(ctx context.Context, companyID string) (*domain.Merchant, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: companyId is required", checkouterr.ErrInvalidInput)
	}

	merchant, err := cached(ctx, r, MerchantKey(companyID), func(ctx context.Context) (*domain.Merchant, error) {
		var m domain.Merchant
		if err := r.store.Get(ctx, CompaniesCollection, companyID, &m); err != nil {
			return nil, err
		}
		return &m, nil
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown company %s", checkouterr.ErrInvalidInput, companyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve company %s: %w", companyID, err)
	}
	if !merchant.Active {
		return nil, fmt.Errorf("%w: company %s is not active", checkouterr.ErrInvalidInput, companyID)
	}
	if merchant.WalletID == "" {
		return nil, fmt.Errorf("%w: company %s has no payout wallet", checkouterr.ErrInvalidInput, companyID)
	}
	return merchant, nil
}

// ResolveAffiliate finds the affiliate credited for a checkout. An explicit
// affiliate code wins over a coupon. Codes that resolve to nothing usable
// yield no affiliate rather than an error.
func (r *Resolver) ResolveAffiliate(ctx context.Context, companyID, couponCode, affiliateCode string) (*domain.Affiliate, error) {
	var (
		affiliate *domain.Affiliate
		err       error
	)
	switch {
	case affiliateCode != "":
		affiliate, err = r.affiliateByCode(ctx, affiliateCode)
	case couponCode != "":
		affiliate, err = r.affiliateByCoupon(ctx, couponCode)
	default:
		return nil, nil
	}

	if errors.Is(err, docstore.ErrNotFound) {
		r.logger.InfoContext(ctx, "no affiliate for checkout", "coupon_code", couponCode, "affiliate_code", affiliateCode)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve affiliate: %w", err)
	}
	if affiliate == nil || !affiliate.Active || affiliate.WalletID == "" {
		return nil, nil
	}
	if affiliate.CompanyID != "" && affiliate.CompanyID != companyID {
		r.logger.WarnContext(ctx, "affiliate belongs to another company", "affiliate_id", affiliate.ID, "company_id", companyID)
		return nil, nil
	}
	return affiliate, nil
}

func (r *Resolver) affiliateByCode(ctx context.Context, code string) (*domain.Affiliate, error) {
	return cached(ctx, r, "affiliate:code:"+code, func(ctx context.Context) (*domain.Affiliate, error) {
		var a domain.Affiliate
		if err := r.store.FindOne(ctx, AffiliatesCollection, bson.M{"invite_code": code}, &a); err != nil {
			return nil, err
		}
		return &a, nil
	})
}

func (r *Resolver) affiliateByCoupon(ctx context.Context, couponCode string) (*domain.Affiliate, error) {
	return cached(ctx, r, "affiliate:coupon:"+couponCode, func(ctx context.Context) (*domain.Affiliate, error) {
		var c domain.Coupon
		if err := r.store.FindOne(ctx, CouponsCollection, bson.M{"code": couponCode, "active": true}, &c); err != nil {
			return nil, err
		}
		if c.AffiliateID == "" {
			return nil, docstore.ErrNotFound
		}
		var a domain.Affiliate
		if err := r.store.Get(ctx, AffiliatesCollection, c.AffiliateID, &a); err != nil {
			return nil, err
		}
		return &a, nil
	})
}

// MerchantKey is the cache key of a company's merchant lookup.
func MerchantKey(companyID string) string {
	return "merchant:" + companyID
}

// Invalidate drops a cached lookup, e.g. after a company changes its wallet.
func (r *Resolver) Invalidate(ctx context.Context, key string) {
	if err := r.cache.Delete(ctx, key); err != nil {
		r.logger.WarnContext(ctx, "cache invalidate error", "key", key, "error", err)
	}
}

// cached collapses concurrent misses for key into one load and fills the
// cache in the background. The shared load runs detached from the caller that
// started it, under loadTimeout; each caller waits only as long as its own ctx
// allows and gets its own copy of the value.
func cached[T any](ctx context.Context, r *Resolver, key string, load func(ctx context.Context) (*T, error)) (*T, error) {
	ch := r.sfg.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.loadTimeout)
		defer cancel()

		var hit T
		err := r.cache.Get(loadCtx, key, &hit)
		if err == nil {
			return &hit, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.WarnContext(loadCtx, "cache get error", "key", key, "error", err)
		}

		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		stored := *value
		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := r.cache.Set(setCtx, key, &stored); err != nil {
				r.logger.Warn("cache set error", "key", key, "error", err)
			}
		}()
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		v := *res.Val.(*T)
		return &v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
