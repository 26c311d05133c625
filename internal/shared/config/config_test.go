package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("HOLD_DEFAULT_TTL", "5m")
	t.Setenv("RECONCILE_TX_SUPPORTED", "false")
	t.Setenv("RECONCILE_TX_POLICY", "required")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Hold.DefaultTTL)
	assert.False(t, cfg.Reconcile.TxSupported)
	assert.Equal(t, "required", cfg.Reconcile.TxPolicy)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Load()
	cfg.Database.Driver = "mysql"
	cfg.Reconcile.TxPolicy = "sometimes"
	cfg.Hold.DefaultTTL = time.Hour

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "RECONCILE_TX_POLICY")
	assert.Contains(t, err.Error(), "HOLD_DEFAULT_TTL")
}

func TestPricingLocation_FallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, PricingConfig{}.Location())
	assert.Equal(t, time.UTC, PricingConfig{Timezone: "Not/AZone"}.Location())
}
