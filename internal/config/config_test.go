package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_USER", "venuehunt")
	t.Setenv("DB_NAME", "venuehunt")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("CACHE_METHODS", "get, head")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "exclusive", cfg.Booking.OverlapPolicy)
	assert.Equal(t, int64(20), cfg.Booking.AdvancePercent)
	assert.Equal(t, int64(4000000), cfg.Payment.MaxAmountMinor)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.Equal(t, 5, cfg.Recommend.TopN)
	assert.Equal(t, 24*time.Hour, cfg.Recommend.UpdateInterval)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Cache.Methods)
	assert.Equal(t, "Asia/Kolkata", cfg.Booking.Location().String())
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"overlap policy", "BOOKING_OVERLAP_POLICY", "sometimes"},
		{"time zone", "BOOKING_TIME_ZONE", "Mars/Olympus"},
		{"advance percent", "BOOKING_ADVANCE_PERCENT", "0"},
		{"ceiling", "PAYMENT_MAX_AMOUNT_MINOR", "-1"},
		{"top n", "RECOMMEND_TOP_N", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	require.NoError(t, os.Unsetenv("DB_USER"))
	_, err := Load()
	assert.Error(t, err)
}

func TestRateLimitNormalize(t *testing.T) {
	r := RateLimitConfig{Capacity: 60, Burst: 10, RefillEvery: 2 * time.Second, TTL: time.Second}
	r.normalize()
	assert.Equal(t, 10, r.Capacity)
	assert.Equal(t, 1, r.RefillTokens)
	assert.Equal(t, 2*time.Second, r.RefillInterval)
	assert.Equal(t, 10*time.Second, r.TTL)
}

func TestRedisAddress(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: "6380", Addr: "x:1"}.Address())
	assert.Equal(t, "x:1", RedisConfig{Addr: "x:1"}.Address())
	assert.Equal(t, "localhost:6379", RedisConfig{}.Address())
}
