package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-at-least-16")
	t.Setenv("DB_DSN_PRIMARY", "user:pass@tcp(127.0.0.1:3306)/foodhub_test?parseTime=true")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.Fees.PerItem.Equal(decimal.NewFromInt(2)))
	assert.True(t, cfg.Fees.PlatformShare.Equal(decimal.NewFromInt(1)))
	assert.True(t, cfg.Fees.SupervisorShare.Equal(decimal.NewFromInt(1)))
	assert.True(t, cfg.Fees.CommissionPerOrder.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 5, cfg.RateLimit.MaxLoginAttempts)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.AttemptWindow)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVICE_FEE_PER_ITEM", "1.50")
	t.Setenv("SERVICE_FEE_PLATFORM_SHARE", "1")
	t.Setenv("SERVICE_FEE_SUPERVISOR_SHARE", "0.50")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "3")
	t.Setenv("LOCKOUT_DURATION", "1h")
	t.Setenv("CORS_ORIGINS", "https://admin.example, https://owner.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Fees.PerItem.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, 3, cfg.RateLimit.MaxLoginAttempts)
	assert.Equal(t, time.Hour, cfg.RateLimit.LockoutDuration)
	assert.Equal(t, []string{"https://admin.example", "https://owner.example"}, cfg.AllowedOrigins)
}

func TestLoad_RejectsBadFeeSplit(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVICE_FEE_PER_ITEM", "2")
	t.Setenv("SERVICE_FEE_PLATFORM_SHARE", "2")
	t.Setenv("SERVICE_FEE_SUPERVISOR_SHARE", "1")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsBadNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_LOGIN_ATTEMPTS", "five")

	_, err := Load()
	assert.ErrorContains(t, err, "MAX_LOGIN_ATTEMPTS")
}

func TestLoad_RejectsZeroAttempts(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_LOGIN_ATTEMPTS", "0")

	_, err := Load()
	assert.Error(t, err)
}
