package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	d "github.com/guaracyalima/xeco-public-sub002/checkout-service/domain"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SSLMode           string
	MigrationsDirPath string
}

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	Close() error
	RunMigrations(*Credentials) error

	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*CheckoutSession, error)
	GetCheckoutSessionByGatewayID(ctx context.Context, gatewayCheckoutID string) (*CheckoutSession, error)
	CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error
	SetGatewayCheckout(ctx context.Context, id, gatewayCheckoutID, checkoutURL string) error
	FailCheckoutSession(ctx context.Context, id, reason string) error
	CompleteCheckoutSession(ctx context.Context, id string, eventPayload []byte) error
	GetStaleSessions(ctx context.Context, olderThan time.Duration, limit int) ([]*CheckoutSession, error)

	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

func NewRepository(cred *Credentials) (*Repository, error) {
	sslMode := cred.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName,
		sslMode)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// Ping is used by the health endpoints.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

var _ RepoInterface = (*Repository)(nil)

// statuses a session may be failed from
var failableStatuses = []d.CheckoutStatus{d.CheckoutStatusInitiated, d.CheckoutStatusPaymentPending}
