package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukita/kertas/internal/config"
)

func enabledConfig() config.Config {
	return config.Config{
		RateLimit: config.RateLimitConfig{
			Enabled:               true,
			RedisAddr:             "localhost:6379",
			GenerateSchoolRate:    10,
			GenerateSchoolBurst:   20,
			GenerateEndpointRate:  200,
			GenerateEndpointBurst: 400,
		},
	}
}

func TestNewGenerateLimiterDisabled(t *testing.T) {
	limiter, err := NewGenerateLimiter(config.Config{})
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())
}

func TestNewGenerateLimiterValidation(t *testing.T) {
	cfg := enabledConfig()
	cfg.RateLimit.RedisAddr = ""
	_, err := NewGenerateLimiter(cfg)
	assert.Error(t, err)

	cfg = enabledConfig()
	cfg.RateLimit.GenerateSchoolRate = 0
	_, err = NewGenerateLimiter(cfg)
	assert.Error(t, err)

	cfg = enabledConfig()
	cfg.RateLimit.GenerateEndpointBurst = -1
	_, err = NewGenerateLimiter(cfg)
	assert.Error(t, err)
}

func TestNewGenerateLimiterEnabled(t *testing.T) {
	limiter, err := NewGenerateLimiter(enabledConfig())
	require.NoError(t, err)
	require.NotNil(t, limiter)
	assert.True(t, limiter.Enabled())
	assert.NotNil(t, limiter.Locker())
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var limiter *GenerateLimiter

	result, err := limiter.AllowSchool(context.Background(), "123")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.AllowEndpoint(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	assert.Nil(t, limiter.Locker())
}
