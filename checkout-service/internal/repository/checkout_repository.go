package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	d "github.com/guaracyalima/xeco-public-sub002/checkout-service/domain"
)

const uniqueViolation = "23505"

type CheckoutSession struct {
	ID                        string
	UserID                    string
	CompanyID                 string
	CartSnapshot              []byte
	IdempotencyKey            string
	Status                    d.CheckoutStatus
	TotalAmount               decimal.Decimal
	Currency                  string
	Signature                 string
	CouponCode                string
	AffiliateID               string
	AffiliateWalletID         string
	CommissionPercentage      decimal.Decimal
	PlatformFeeAmount         decimal.Decimal
	AffiliateCommissionAmount decimal.Decimal
	MerchantAmount            decimal.Decimal
	GatewayCheckoutID         string
	CheckoutURL               string
	FailureReason             string
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

type OutboxEvent struct {
	ID          int64
	AggregateId string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

const sessionColumns = `id, user_id, company_id, cart_snapshot, idempotency_key, status,
	total_amount, currency, signature, COALESCE(coupon_code, ''), COALESCE(affiliate_id, ''),
	COALESCE(affiliate_wallet_id, ''), commission_percentage, platform_fee_amount,
	affiliate_commission_amount, merchant_amount, COALESCE(gateway_checkout_id, ''),
	COALESCE(checkout_url, ''), COALESCE(failure_reason, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*CheckoutSession, error) {
	var s CheckoutSession
	err := row.Scan(
		&s.ID, &s.UserID, &s.CompanyID, &s.CartSnapshot, &s.IdempotencyKey, &s.Status,
		&s.TotalAmount, &s.Currency, &s.Signature, &s.CouponCode, &s.AffiliateID,
		&s.AffiliateWalletID, &s.CommissionPercentage, &s.PlatformFeeAmount,
		&s.AffiliateCommissionAmount, &s.MerchantAmount, &s.GatewayCheckoutID,
		&s.CheckoutURL, &s.FailureReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) getSessionBy(ctx context.Context, column, value string, notFound error) (*CheckoutSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM checkout_sessions WHERE %s = $1`, sessionColumns, column)
	s, err := scanSession(r.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session by %s: %w", column, err)
	}
	return s, nil
}

func (r *Repository) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	return r.getSessionBy(ctx, "id", id, ErrSessionNotFound)
}

func (r *Repository) GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*CheckoutSession, error) {
	return r.getSessionBy(ctx, "idempotency_key", key, ErrIdempotencyKeyNotFound)
}

func (r *Repository) GetCheckoutSessionByGatewayID(ctx context.Context, gatewayCheckoutID string) (*CheckoutSession, error) {
	return r.getSessionBy(ctx, "gateway_checkout_id", gatewayCheckoutID, ErrSessionNotFound)
}

// CreateCheckoutSession inserts a new session. Sessions always start INITIATED.
func (r *Repository) CreateCheckoutSession(ctx context.Context, s *CheckoutSession) error {
	currency := s.Currency
	if currency == "" {
		currency = d.DefaultCurrency
	}
	query := `INSERT INTO checkout_sessions (
		id, user_id, company_id, cart_snapshot, idempotency_key, status, total_amount, currency,
		signature, coupon_code, affiliate_id, affiliate_wallet_id, commission_percentage,
		platform_fee_amount, affiliate_commission_amount, merchant_amount, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''),
		$13, $14, $15, $16, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.CompanyID, string(s.CartSnapshot), s.IdempotencyKey, d.CheckoutStatusInitiated,
		s.TotalAmount, currency, s.Signature, s.CouponCode, s.AffiliateID, s.AffiliateWalletID,
		s.CommissionPercentage, s.PlatformFeeAmount, s.AffiliateCommissionAmount, s.MerchantAmount,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to create checkout session: %w", err)
	}
	s.Status = d.CheckoutStatusInitiated
	return nil
}

// SetGatewayCheckout records the gateway checkout and moves INITIATED -> PAYMENT_PENDING.
func (r *Repository) SetGatewayCheckout(ctx context.Context, id, gatewayCheckoutID, checkoutURL string) error {
	query := `UPDATE checkout_sessions
		SET status = $2, gateway_checkout_id = $3, checkout_url = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, d.CheckoutStatusPaymentPending, gatewayCheckoutID, checkoutURL, d.CheckoutStatusInitiated)
	if err != nil {
		return fmt.Errorf("failed to set gateway checkout: %w", err)
	}
	return r.checkAffected(ctx, res, id)
}

func (r *Repository) FailCheckoutSession(ctx context.Context, id, reason string) error {
	query := `UPDATE checkout_sessions
		SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = ANY($4)`
	allowed := make([]string, len(failableStatuses))
	for i, s := range failableStatuses {
		allowed[i] = string(s)
	}
	res, err := r.db.ExecContext(ctx, query, id, d.CheckoutStatusFailed, reason, pq.Array(allowed))
	if err != nil {
		return fmt.Errorf("failed to fail checkout session: %w", err)
	}
	return r.checkAffected(ctx, res, id)
}

// CompleteCheckoutSession marks a PAYMENT_PENDING session COMPLETED and writes
// the checkout.completed outbox event in the same transaction.
func (r *Repository) CompleteCheckoutSession(ctx context.Context, id string, eventPayload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE checkout_sessions SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		id, d.CheckoutStatusCompleted, d.CheckoutStatusPaymentPending)
	if err != nil {
		return fmt.Errorf("failed to complete checkout session: %w", err)
	}
	if err := r.checkAffected(ctx, res, id); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, NOW())`,
		id, d.EventCheckoutCompleted, string(eventPayload))
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout completion: %w", err)
	}
	return nil
}

// GetStaleSessions returns INITIATED sessions not touched for olderThan.
func (r *Repository) GetStaleSessions(ctx context.Context, olderThan time.Duration, limit int) ([]*CheckoutSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM checkout_sessions
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3`, sessionColumns)

	rows, err := r.db.QueryContext(ctx, query, d.CheckoutStatusInitiated, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*CheckoutSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stale session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateId, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %d: %w", id, err)
	}
	return nil
}

// checkAffected distinguishes a missing session from a status guard that did not match.
func (r *Repository) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM checkout_sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check session existence: %w", err)
	}
	if !exists {
		return ErrSessionNotFound
	}
	return ErrStatusConflict
}
