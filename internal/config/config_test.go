package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.FineDailyRate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 8*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.AutoMigrate)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LENDINGDESK_STORE_DRIVER", "memory")
	t.Setenv("LENDINGDESK_FINE_DAILY_RATE", "2.50")
	t.Setenv("LENDINGDESK_TOKEN_TTL", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "2.5", cfg.FineDailyRate.String())
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("LENDINGDESK_STORE_DRIVER", "sqlite")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("LENDINGDESK_STORE_DRIVER", "memory")
	t.Setenv("LENDINGDESK_FINE_DAILY_RATE", "-1")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("LENDINGDESK_FINE_DAILY_RATE", "0.125")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("LENDINGDESK_FINE_DAILY_RATE", "0.25")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.25", cfg.FineDailyRate.String())
}
