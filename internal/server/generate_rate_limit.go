package server

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edukita/kertas/internal/observability/logger"
	obsmetrics "github.com/edukita/kertas/internal/observability/metrics"
	"github.com/edukita/kertas/internal/principal"
	"github.com/edukita/kertas/internal/ratelimit"
)

const (
	rateLimitReasonSchoolRate   = "school-rate"
	rateLimitReasonEndpointRate = "endpoint-rate"
)

// GenerateRateLimit throttles document generation per school and across the
// endpoint as a whole. Disabled limiters pass everything through.
func (s *Server) GenerateRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.generateLimiter == nil || !s.generateLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		p, ok := principal.FromContext(ctx)
		if !ok {
			AbortWithError(c, ErrSchoolRequired)
			return
		}
		schoolID := p.SchoolID.String()
		endpoint := normalizeRateLimitEndpoint(c)

		result, err := s.generateLimiter.AllowSchool(ctx, schoolID)
		if err != nil {
			logger.FromContext(ctx).Warn("generate school rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			denyGenerateRateLimit(c, result, endpoint, schoolID, rateLimitReasonSchoolRate, s.obsMetrics)
			return
		}

		result, err = s.generateLimiter.AllowEndpoint(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("generate endpoint rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			denyGenerateRateLimit(c, result, endpoint, schoolID, rateLimitReasonEndpointRate, s.obsMetrics)
			return
		}

		recordRateLimitAllowed(ctx, endpoint, schoolID, s.obsMetrics)
		c.Next()
	}
}

func denyGenerateRateLimit(c *gin.Context, result *ratelimit.RateLimitResult, endpoint, schoolID, reason string, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("generate rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, schoolID, reason, metrics)

	retryAfter := int64(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func recordRateLimitAllowed(ctx context.Context, endpoint, schoolID string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, schoolID, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, schoolID, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, schoolID, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
