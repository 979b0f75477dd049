// Package config loads checkout-service settings from an optional YAML file
// with environment variables layered on top.
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

type Database struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name"`
	SSLMode        string `yaml:"ssl_mode"`
	MigrationsPath string `yaml:"migrations_path"`
}

type Mongo struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Relay struct {
	URL                string        `yaml:"url"`
	Timeout            time.Duration `yaml:"timeout"`
	MaxAttempts        int           `yaml:"max_attempts"`
	Backoff            time.Duration `yaml:"backoff"`
	MaxBackoff         time.Duration `yaml:"max_backoff"`
	BreakerThreshold   uint32        `yaml:"breaker_threshold"`
	BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout"`
}

type Callbacks struct {
	SuccessURL string `yaml:"success_url"`
	CancelURL  string `yaml:"cancel_url"`
	ExpiredURL string `yaml:"expired_url"`
}

type Config struct {
	HTTPPort string `yaml:"http_port"`
	GRPCPort string `yaml:"grpc_port"`
	LogLevel string `yaml:"log_level"`

	SigningSecret         string  `yaml:"signing_secret"`
	PlatformFeePercentage float64 `yaml:"platform_fee_percentage"`
	WebhookToken          string  `yaml:"webhook_token"`
	JWTSecret             string  `yaml:"jwt_secret"`

	RequestTimeout    time.Duration `yaml:"request_timeout"`
	StaleSessionAfter time.Duration `yaml:"stale_session_after"`

	Database  Database  `yaml:"database"`
	Mongo     Mongo     `yaml:"mongo"`
	Redis     Redis     `yaml:"redis"`
	Kafka     Kafka     `yaml:"kafka"`
	Relay     Relay     `yaml:"relay"`
	Callbacks Callbacks `yaml:"callbacks"`
}

func defaults() Config {
	return Config{
		HTTPPort:              "8086",
		GRPCPort:              "50056",
		LogLevel:              "info",
		PlatformFeePercentage: split.DefaultPlatformFeePercentage.InexactFloat64(),
		RequestTimeout:        30 * time.Second,
		StaleSessionAfter:     15 * time.Minute,
		Database: Database{
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Password:       "postgres",
			Name:           "checkout",
			SSLMode:        "disable",
			MigrationsPath: "./internal/repository/migrations",
		},
		Mongo: Mongo{URI: "mongodb://localhost:27017", Database: "marketplace"},
		Redis: Redis{Addr: "localhost:6379", CacheTTL: 10 * time.Minute},
		Kafka: Kafka{Brokers: []string{"localhost:9092"}, Topic: "checkout-outbox"},
		Relay: Relay{
			URL:                "http://localhost:8087/relay",
			Timeout:            10 * time.Second,
			MaxAttempts:        3,
			Backoff:            500 * time.Millisecond,
			MaxBackoff:         4 * time.Second,
			BreakerThreshold:   5,
			BreakerOpenTimeout: 30 * time.Second,
		},
	}
}

// LoadConfig applies defaults, then the YAML file at path (if any), then
// environment variables, and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := defaults()
	if err := envconfig.LoadYAML(path, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPPort = envconfig.GetEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envconfig.GetEnv("GRPC_PORT", cfg.GRPCPort)
	cfg.LogLevel = envconfig.GetEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.SigningSecret = envconfig.GetEnv("CHECKOUT_SIGNING_SECRET", cfg.SigningSecret)
	cfg.PlatformFeePercentage = envconfig.Float("PLATFORM_FEE_PERCENTAGE", cfg.PlatformFeePercentage)
	cfg.WebhookToken = envconfig.GetEnv("WEBHOOK_TOKEN", cfg.WebhookToken)
	cfg.JWTSecret = envconfig.GetEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.RequestTimeout = envconfig.Duration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.StaleSessionAfter = envconfig.Duration("STALE_SESSION_AFTER", cfg.StaleSessionAfter)

	cfg.Database.Host = envconfig.GetEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = envconfig.Int("DB_PORT", cfg.Database.Port)
	cfg.Database.User = envconfig.GetEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = envconfig.GetEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = envconfig.GetEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = envconfig.GetEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MigrationsPath = envconfig.GetEnv("MIGRATIONS_PATH", cfg.Database.MigrationsPath)

	cfg.Mongo.URI = envconfig.GetEnv("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = envconfig.GetEnv("MONGO_DATABASE", cfg.Mongo.Database)

	cfg.Redis.Addr = envconfig.GetEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envconfig.GetEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envconfig.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.CacheTTL = envconfig.Duration("CACHE_TTL", cfg.Redis.CacheTTL)

	cfg.Kafka.Brokers = envconfig.CSV("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = envconfig.GetEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.Relay.URL = envconfig.GetEnv("RELAY_URL", cfg.Relay.URL)
	cfg.Relay.Timeout = envconfig.Duration("RELAY_TIMEOUT", cfg.Relay.Timeout)
	cfg.Relay.MaxAttempts = envconfig.Int("RELAY_MAX_ATTEMPTS", cfg.Relay.MaxAttempts)
	cfg.Relay.Backoff = envconfig.Duration("RELAY_BACKOFF", cfg.Relay.Backoff)
	cfg.Relay.MaxBackoff = envconfig.Duration("RELAY_MAX_BACKOFF", cfg.Relay.MaxBackoff)
	cfg.Relay.BreakerThreshold = uint32(envconfig.Int("RELAY_BREAKER_THRESHOLD", int(cfg.Relay.BreakerThreshold)))
	cfg.Relay.BreakerOpenTimeout = envconfig.Duration("RELAY_BREAKER_OPEN_TIMEOUT", cfg.Relay.BreakerOpenTimeout)

	cfg.Callbacks.SuccessURL = envconfig.GetEnv("CALLBACK_SUCCESS_URL", cfg.Callbacks.SuccessURL)
	cfg.Callbacks.CancelURL = envconfig.GetEnv("CALLBACK_CANCEL_URL", cfg.Callbacks.CancelURL)
	cfg.Callbacks.ExpiredURL = envconfig.GetEnv("CALLBACK_EXPIRED_URL", cfg.Callbacks.ExpiredURL)
}

// Validate rejects settings the service cannot start with. A blank signing
// secret is always fatal.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.SigningSecret) == "" {
		problems = append(problems, "CHECKOUT_SIGNING_SECRET is required")
	}
	if c.PlatformFeePercentage < 0 || c.PlatformFeePercentage > 100 {
		problems = append(problems, "PLATFORM_FEE_PERCENTAGE must be within [0, 100]")
	}
	if c.Relay.URL == "" {
		problems = append(problems, "RELAY_URL is required")
	}
	if c.Relay.MaxAttempts < 1 {
		problems = append(problems, "RELAY_MAX_ATTEMPTS must be at least 1")
	}
	if len(c.Kafka.Brokers) == 0 {
		problems = append(problems, "KAFKA_BROKERS is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", checkouterr.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) PlatformFee() decimal.Decimal {
	return decimal.NewFromFloat(c.PlatformFeePercentage)
}
