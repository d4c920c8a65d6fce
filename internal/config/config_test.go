package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ms-marketplace/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, int64(5), cfg.Market.FeeRatePercent)
	assert.Equal(t, 240*time.Hour, cfg.Market.ValidityWindow)
	assert.Equal(t, "market:primary", cfg.Market.PrimaryAccount)
	assert.Equal(t, "market:escrow", cfg.Market.EscrowAccount)
	assert.Equal(t, "marketplace.ticket_minted", cfg.Kafka.Topics.TicketMinted)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("RESALE_FEE_PERCENT", "10")
	t.Setenv("TICKET_VALIDITY_HOURS", "48")
	t.Setenv("KAFKA_MOCK_MODE", "true")

	cfg := config.Load()

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, int64(10), cfg.Market.FeeRatePercent)
	assert.Equal(t, 48*time.Hour, cfg.Market.ValidityWindow)
	assert.True(t, cfg.Kafka.MockMode)
}

func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("RESALE_FEE_PERCENT", "five")

	cfg := config.Load()
	assert.Equal(t, int64(5), cfg.Market.FeeRatePercent)
}
