package ratelimit

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/edukita/kertas/internal/config"
)

// GenerateLimiter throttles document generation with two token buckets:
// one per school and one shared across the whole generate endpoint.
type GenerateLimiter struct {
	bucket *TokenBucket
	locker *Locker

	schoolRate    float64
	schoolBurst   int
	endpointRate  float64
	endpointBurst int
}

func NewGenerateLimiter(cfg config.Config) (*GenerateLimiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	if cfg.RateLimit.RedisAddr == "" {
		return nil, errors.New("rate limit enabled but redis address is empty")
	}
	if cfg.RateLimit.GenerateSchoolRate <= 0 || cfg.RateLimit.GenerateSchoolBurst <= 0 {
		return nil, errors.New("rate limit school rate and burst must be positive")
	}
	if cfg.RateLimit.GenerateEndpointRate <= 0 || cfg.RateLimit.GenerateEndpointBurst <= 0 {
		return nil, errors.New("rate limit endpoint rate and burst must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})

	return &GenerateLimiter{
		bucket:        NewTokenBucket(client),
		locker:        NewLocker(client),
		schoolRate:    cfg.RateLimit.GenerateSchoolRate,
		schoolBurst:   cfg.RateLimit.GenerateSchoolBurst,
		endpointRate:  cfg.RateLimit.GenerateEndpointRate,
		endpointBurst: cfg.RateLimit.GenerateEndpointBurst,
	}, nil
}

func (l *GenerateLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *GenerateLimiter) AllowSchool(ctx context.Context, schoolID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf("generate:school:%s", schoolID)
	return l.bucket.Allow(ctx, key, l.schoolRate, l.schoolBurst)
}

func (l *GenerateLimiter) AllowEndpoint(ctx context.Context) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, "generate:endpoint", l.endpointRate, l.endpointBurst)
}

func (l *GenerateLimiter) Locker() *Locker {
	if l == nil {
		return nil
	}
	return l.locker
}
