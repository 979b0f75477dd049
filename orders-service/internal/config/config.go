// Package config loads orders-service settings: optional YAML file first,
// environment variables on top.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/envconfig"
)

type Mongo struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type Kafka struct {
	Brokers     []string `yaml:"brokers"`
	Topic       string   `yaml:"topic"`
	GroupID     string   `yaml:"group_id"`
	MaxAttempts int      `yaml:"max_attempts"`
}

type Config struct {
	HTTPPort       string        `yaml:"http_port"`
	LogLevel       string        `yaml:"log_level"`
	JWTSecret      string        `yaml:"jwt_secret"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Mongo          Mongo         `yaml:"mongo"`
	Kafka          Kafka         `yaml:"kafka"`
}

func defaults() Config {
	return Config{
		HTTPPort:       "8088",
		LogLevel:       "info",
		RequestTimeout: 10 * time.Second,
		Mongo:          Mongo{URI: "mongodb://localhost:27017", Database: "marketplace"},
		Kafka: Kafka{
			Brokers:     []string{"localhost:9092"},
			Topic:       "checkout-outbox",
			GroupID:     "orders-service",
			MaxAttempts: 5,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := defaults()
	if err := envconfig.LoadYAML(path, &cfg); err != nil {
		return nil, err
	}

	cfg.HTTPPort = envconfig.GetEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.LogLevel = envconfig.GetEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.JWTSecret = envconfig.GetEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.RequestTimeout = envconfig.Duration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.Mongo.URI = envconfig.GetEnv("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = envconfig.GetEnv("MONGO_DATABASE", cfg.Mongo.Database)
	cfg.Kafka.Brokers = envconfig.CSV("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = envconfig.GetEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Kafka.GroupID = envconfig.GetEnv("KAFKA_GROUP_ID", cfg.Kafka.GroupID)
	cfg.Kafka.MaxAttempts = envconfig.Int("CONSUMER_MAX_ATTEMPTS", cfg.Kafka.MaxAttempts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.JWTSecret) == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.Mongo.URI == "" {
		problems = append(problems, "MONGO_URI is required")
	}
	if len(c.Kafka.Brokers) == 0 {
		problems = append(problems, "KAFKA_BROKERS is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", checkouterr.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}
