// Package config loads relay-service settings: optional YAML file first,
// environment variables on top.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/envconfig"
	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
)

type Gateway struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type Checkout struct {
	BillingTypes    []string `yaml:"billing_types"`
	ChargeTypes     []string `yaml:"charge_types"`
	MinutesToExpire int      `yaml:"minutes_to_expire"`
	MaxInstallments int      `yaml:"max_installments"`
}

type Config struct {
	HTTPPort string `yaml:"http_port"`
	BasePath string `yaml:"base_path"`
	LogLevel string `yaml:"log_level"`

	SigningSecret         string        `yaml:"signing_secret"`
	PlatformFeePercentage float64       `yaml:"platform_fee_percentage"`
	RequestTimeout        time.Duration `yaml:"request_timeout"`

	Gateway  Gateway  `yaml:"gateway"`
	Checkout Checkout `yaml:"checkout"`
}

func defaults() Config {
	return Config{
		HTTPPort:              "8087",
		BasePath:              "/relay",
		LogLevel:              "info",
		PlatformFeePercentage: split.DefaultPlatformFeePercentage.InexactFloat64(),
		RequestTimeout:        20 * time.Second,
		Gateway: Gateway{
			URL:     "https://sandbox.asaas.com/api",
			Timeout: 15 * time.Second,
		},
		Checkout: Checkout{
			BillingTypes:    []string{"CREDIT_CARD", "PIX"},
			ChargeTypes:     []string{"DETACHED"},
			MinutesToExpire: 60,
			MaxInstallments: 1,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := defaults()
	if err := envconfig.LoadYAML(path, &cfg); err != nil {
		return nil, err
	}

	cfg.HTTPPort = envconfig.GetEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.BasePath = envconfig.GetEnv("BASE_PATH", cfg.BasePath)
	cfg.LogLevel = envconfig.GetEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.SigningSecret = envconfig.GetEnv("CHECKOUT_SIGNING_SECRET", cfg.SigningSecret)
	cfg.PlatformFeePercentage = envconfig.Float("PLATFORM_FEE_PERCENTAGE", cfg.PlatformFeePercentage)
	cfg.RequestTimeout = envconfig.Duration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.Gateway.URL = envconfig.GetEnv("GATEWAY_URL", cfg.Gateway.URL)
	cfg.Gateway.APIKey = envconfig.GetEnv("GATEWAY_API_KEY", cfg.Gateway.APIKey)
	cfg.Gateway.Timeout = envconfig.Duration("GATEWAY_TIMEOUT", cfg.Gateway.Timeout)
	cfg.Checkout.BillingTypes = envconfig.CSV("CHECKOUT_BILLING_TYPES", cfg.Checkout.BillingTypes)
	cfg.Checkout.ChargeTypes = envconfig.CSV("CHECKOUT_CHARGE_TYPES", cfg.Checkout.ChargeTypes)
	cfg.Checkout.MinutesToExpire = envconfig.Int("CHECKOUT_MINUTES_TO_EXPIRE", cfg.Checkout.MinutesToExpire)
	cfg.Checkout.MaxInstallments = envconfig.Int("CHECKOUT_MAX_INSTALLMENTS", cfg.Checkout.MaxInstallments)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.SigningSecret) == "" {
		problems = append(problems, "CHECKOUT_SIGNING_SECRET is required")
	}
	if c.PlatformFeePercentage < 0 || c.PlatformFeePercentage > 100 {
		problems = append(problems, "PLATFORM_FEE_PERCENTAGE must be within [0, 100]")
	}
	if c.Gateway.URL == "" {
		problems = append(problems, "GATEWAY_URL is required")
	}
	if strings.TrimSpace(c.Gateway.APIKey) == "" {
		problems = append(problems, "GATEWAY_API_KEY is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", checkouterr.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) PlatformFee() decimal.Decimal {
	return decimal.NewFromFloat(c.PlatformFeePercentage)
}
