package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_ACCESS_EXPIRY", "not-a-duration")
	t.Setenv("ANALYTICS_BUFFER", "-3")
	cfg := Load()
	assert.Equal(t, StorageModePostgres, cfg.StorageMode)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, 50, cfg.AnalyticsBuffer)
	assert.Equal(t, []string{"boarding"}, cfg.MarketplaceStatuses)
	assert.False(t, cfg.UsesRemoteStorage())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_MODE", "Memory")
	t.Setenv("MARKETPLACE_STATUSES", "boarding, in_review ,")
	t.Setenv("STORAGE_URL", "https://example.supabase.co")
	t.Setenv("ANALYTICS_FLUSH_INTERVAL", "250ms")
	cfg := Load()
	assert.Equal(t, StorageModeMemory, cfg.StorageMode)
	assert.Equal(t, []string{"boarding", "in_review"}, cfg.MarketplaceStatuses)
	assert.True(t, cfg.UsesRemoteStorage())
	assert.Equal(t, 250*time.Millisecond, cfg.AnalyticsFlushInterval)
}
