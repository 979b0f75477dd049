// Package relay is the checkout-service side of the relay contract: the
// request and response bodies, and a client that classifies every relay
// outcome into a checkouterr kind.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/circuitbreaker"
)

const (
	checkoutPath = "/checkout"
	accountsPath = "/accounts"
)

type Config struct {
	BaseURL string
	// per-attempt timeout
	Timeout            time.Duration
	BreakerThreshold   uint32
	BreakerOpenTimeout time.Duration
}

type Client struct {
	http    *resty.Client
	breaker *circuitbreaker.Breaker[struct{}]
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: relay url is not set", checkouterr.ErrConfiguration)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := resty.NewWithClient(&http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	breaker := circuitbreaker.New[struct{}](circuitbreaker.Config{
		Name:             "relay",
		FailureThreshold: cfg.BreakerThreshold,
		OpenTimeout:      cfg.BreakerOpenTimeout,
		IsFailure:        checkouterr.Retryable,
	}, logger)

	return &Client{http: httpClient, breaker: breaker, logger: logger.With("component", "relay_client")}, nil
}

// CreateCheckout submits a signed checkout. A single attempt is made; retrying
// is the caller's decision.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	result := &CheckoutResponse{}
	if err := c.exchange(ctx, checkoutPath, req, result); err != nil {
		return nil, err
	}
	if result.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: relay response missing checkoutUrl", checkouterr.ErrRelayUnavailable)
	}
	return result, nil
}

func (c *Client) CreateAccount(ctx context.Context, req AccountRequest) (*AccountResponse, error) {
	result := &AccountResponse{}
	if err := c.exchange(ctx, accountsPath, req, result); err != nil {
		return nil, err
	}
	if result.WalletID == "" {
		return nil, fmt.Errorf("%w: relay response missing walletId", checkouterr.ErrRelayUnavailable)
	}
	return result, nil
}

func (c *Client) BreakerState() string {
	return c.breaker.State()
}

func (c *Client) exchange(ctx context.Context, path string, body, result any) error {
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.post(ctx, path, body, result)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%w: %v", checkouterr.ErrRelayUnavailable, err)
	}
	return err
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	relayErr := &ErrorResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(relayErr).
		Post(path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", checkouterr.ErrRelayUnavailable, err)
	}
	return c.classify(ctx, resp.StatusCode(), relayErr)
}

func (c *Client) classify(ctx context.Context, status int, relayErr *ErrorResponse) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusForbidden:
		c.logger.WarnContext(ctx, "relay rejected signature", "fraud_suspected", true)
		return fmt.Errorf("%w: rejected by relay", checkouterr.ErrSignatureMismatch)
	case status >= 400 && status < 500 && len(relayErr.Errors) > 0:
		return &checkouterr.GatewayError{StatusCode: status, Errors: relayErr.Errors}
	case status == http.StatusBadRequest && relayErr.Code == "invalid_input":
		return fmt.Errorf("%w: %s", checkouterr.ErrInvalidInput, relayErr.Error)
	default:
		return fmt.Errorf("%w: relay returned status %d", checkouterr.ErrRelayUnavailable, status)
	}
}
