package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("WEBHOOK_AMOUNT_TOLERANCE", "")
	t.Setenv("WEBHOOK_REPLAY_TTL", "")

	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "VND", cfg.DefaultCurrency)
	assert.Equal(t, "1000", cfg.WebhookAmountTolerance.String())
	assert.Equal(t, 24*time.Hour, cfg.WebhookReplayTTL)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", " 9090 ")
	t.Setenv("APP_ENV", "production")
	t.Setenv("WEBHOOK_AMOUNT_TOLERANCE", "500")
	t.Setenv("WORKER_INTERVAL", "2")
	t.Setenv("API_TOKEN_TTL", "-3")

	cfg := FromEnv()

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "500", cfg.WebhookAmountTolerance.String())
	assert.Equal(t, 2*time.Minute, cfg.WorkerInterval)
	assert.Equal(t, 24*time.Hour, cfg.APITokenTTL, "non-positive durations fall back to the default")
}

func TestGetDecimalEnvRejectsNegative(t *testing.T) {
	t.Setenv("WEBHOOK_AMOUNT_TOLERANCE", "-1")
	assert.Equal(t, "1000", FromEnv().WebhookAmountTolerance.String())
}
