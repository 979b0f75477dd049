package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CHECKOUT_SIGNING_SECRET", "s3cret")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8086", cfg.HTTPPort)
	assert.Equal(t, 8.0, cfg.PlatformFeePercentage)
	assert.Equal(t, 3, cfg.Relay.MaxAttempts)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "checkout-outbox", cfg.Kafka.Topic)
	assert.Equal(t, "8", cfg.PlatformFee().String())
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("CHECKOUT_SIGNING_SECRET", "")

	_, err := LoadConfig("")
	assert.ErrorIs(t, err, checkouterr.ErrConfiguration)
	assert.Contains(t, err.Error(), "CHECKOUT_SIGNING_SECRET")
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkout.yaml")
	yaml := `
signing_secret: from-file
platform_fee_percentage: 10
relay:
  url: http://relay.internal/relay
  max_attempts: 5
  backoff: 1s
kafka:
  brokers: [kafka-1:9092, kafka-2:9092]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CHECKOUT_SIGNING_SECRET", "")
	t.Setenv("RELAY_MAX_ATTEMPTS", "2")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.SigningSecret)
	assert.Equal(t, 10.0, cfg.PlatformFeePercentage)
	assert.Equal(t, "http://relay.internal/relay", cfg.Relay.URL)
	assert.Equal(t, 2, cfg.Relay.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Relay.Backoff)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	cfg.SigningSecret = "x"
	require.NoError(t, cfg.Validate())

	cfg.PlatformFeePercentage = 120
	cfg.Relay.MaxAttempts = 0
	err := cfg.Validate()
	assert.ErrorIs(t, err, checkouterr.ErrConfiguration)
	assert.Contains(t, err.Error(), "PLATFORM_FEE_PERCENTAGE")
	assert.Contains(t, err.Error(), "RELAY_MAX_ATTEMPTS")
}
