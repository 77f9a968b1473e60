package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "app")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BCRYPT_COST", "10")
}

func TestLoadAppliesTokenTTLDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "")

	cfg := Load()
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, 7, cfg.RefreshTTLDays)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.GeminiModel)
	assert.False(t, cfg.RevokeAllOnReuse)
	assert.Equal(t, "@hourly", cfg.SessionSweepSpec)
	assert.Equal(t, time.Duration(0), cfg.StreamFlushDelay)
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "30")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "14")
	t.Setenv("REFRESH_REUSE_REVOKES_ALL", "true")
	t.Setenv("STREAM_FLUSH_DELAY", "25ms")

	cfg := Load()
	assert.Equal(t, 30, cfg.AccessTTLMin)
	assert.Equal(t, 14, cfg.RefreshTTLDays)
	assert.True(t, cfg.RevokeAllOnReuse)
	assert.Equal(t, 25*time.Millisecond, cfg.StreamFlushDelay)
}
