// Package gateway is the client for the payment gateway's checkout and
// sub-account API.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
)

// ErrUnavailable means the gateway could not be reached or failed on its side.
var ErrUnavailable = errors.New("payment gateway unavailable")

const (
	checkoutsPath = "/v3/checkouts"
	accountsPath  = "/v3/accounts"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

type errorBody struct {
	Errors []checkouterr.GatewayErrorEntry `json:"errors"`
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: gateway base url is not set", checkouterr.ErrConfiguration)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gateway api key is not set", checkouterr.ErrConfiguration)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
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
		SetHeader("Content-Type", "application/json").
		SetHeader("access_token", cfg.APIKey)

	return &Client{http: httpClient, logger: logger.With("component", "gateway")}, nil
}

// CreateCheckout opens a hosted checkout session and returns its id and link.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	result := &CheckoutSession{}
	if err := c.post(ctx, checkoutsPath, req, result); err != nil {
		return nil, err
	}
	if result.ID == "" || result.Link == "" {
		return nil, fmt.Errorf("%w: checkout response missing id or link", ErrUnavailable)
	}
	return result, nil
}

// CreateAccount registers a payout sub-account and returns its wallet id.
func (c *Client) CreateAccount(ctx context.Context, req AccountRequest) (*Account, error) {
	result := &Account{}
	if err := c.post(ctx, accountsPath, req, result); err != nil {
		return nil, err
	}
	if result.WalletID == "" {
		return nil, fmt.Errorf("%w: account response missing wallet id", ErrUnavailable)
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	apiErr := &errorBody{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(apiErr).
		Post(path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return fmt.Errorf("%w: %v", ErrUnavailable, netErr)
		}
		return fmt.Errorf("%w: failed to send request: %v", ErrUnavailable, err)
	}

	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		return nil
	case status >= 400 && status < 500:
		c.logger.WarnContext(ctx, "gateway rejected request", "path", path, "status", status, "errors", len(apiErr.Errors))
		return classifyRejection(status, apiErr.Errors)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, status)
	}
}

func classifyRejection(status int, entries []checkouterr.GatewayErrorEntry) error {
	if len(entries) == 0 {
		entries = []checkouterr.GatewayErrorEntry{{
			Code:        fmt.Sprintf("http_%d", status),
			Description: http.StatusText(status),
		}}
	}
	return &checkouterr.GatewayError{StatusCode: status, Errors: entries}
}
