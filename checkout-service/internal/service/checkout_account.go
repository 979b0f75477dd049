package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	d "github.com/guaracyalima/xeco-public-sub002/checkout-service/domain"
	"github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/resolver"
	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/docstore"
	"github.com/guaracyalima/xeco-public-sub002/pkg/relay"
	"github.com/guaracyalima/xeco-public-sub002/pkg/retry"
)

// MerchantAccountInput asks for a payout account for CompanyID on behalf of
// UserID. Replace must be set to swap a wallet the company already has.
type MerchantAccountInput struct {
	CompanyID string
	UserID    string
	Replace   bool
	Account   relay.AccountRequest
}

// CreateMerchantAccount opens a gateway payout account for a company through
// the relay and stores the returned wallet on the company document. Only the
// company owner may do this.
func (s *CheckoutServiceImpl) CreateMerchantAccount(ctx context.Context, in *MerchantAccountInput) (*relay.AccountResponse, error) {
	var missing []string
	if in.CompanyID == "" {
		missing = append(missing, "companyId")
	}
	if strings.TrimSpace(in.Account.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.Account.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(in.Account.CpfCnpj) == "" {
		missing = append(missing, "cpfCnpj")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", checkouterr.ErrInvalidInput, strings.Join(missing, ", "))
	}
	if in.UserID == "" {
		return nil, fmt.Errorf("%w: caller identity is required", checkouterr.ErrForbidden)
	}

	var company d.Merchant
	err := s.companies.Get(ctx, resolver.CompaniesCollection, in.CompanyID, &company)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown company %s", checkouterr.ErrInvalidInput, in.CompanyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}
	if company.OwnerID == "" || company.OwnerID != in.UserID {
		s.logger.WarnContext(ctx, "merchant account request by non-owner",
			"company_id", in.CompanyID, "user_id", in.UserID)
		return nil, fmt.Errorf("%w: user is not the owner of company %s", checkouterr.ErrForbidden, in.CompanyID)
	}
	if company.WalletID != "" && !in.Replace {
		return nil, fmt.Errorf("%w: company %s already has a payout wallet", checkouterr.ErrConflict, in.CompanyID)
	}

	policy := s.retry
	policy.Retryable = checkouterr.Retryable
	account, err := retry.Do(ctx, policy, s.clock, func(ctx context.Context, _ int) (*relay.AccountResponse, error) {
		return s.relay.CreateAccount(ctx, in.Account)
	})
	if err != nil {
		return nil, err
	}

	err = s.companies.Update(ctx, resolver.CompaniesCollection, in.CompanyID, map[string]any{
		"wallet_id":          account.WalletID,
		"gateway_account_id": account.AccountID,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to store merchant wallet",
			"company_id", in.CompanyID, "wallet_id", account.WalletID, "error", err)
		return nil, fmt.Errorf("failed to store merchant wallet: %w", err)
	}
	s.resolver.Invalidate(ctx, resolver.MerchantKey(in.CompanyID))

	s.logger.InfoContext(ctx, "merchant account created",
		"company_id", in.CompanyID, "wallet_id", account.WalletID, "replaced", company.WalletID != "")
	return account, nil
}
