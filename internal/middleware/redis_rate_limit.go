package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campusconfessions/backend/internal/cache"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/metrics"
)

// RedisRateLimitMiddleware creates a distributed fixed-window rate
// limiter keyed on client IP. It works across multiple instances.
// When Redis is unavailable the request is allowed through so an
// infrastructure outage does not take the API down with it.
func RedisRateLimitMiddleware(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		key := fmt.Sprintf("%s%s", cache.KeyRateLimit, clientIP)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		count, err := redisClient.IncrWithExpiry(ctx, key, window)
		if err != nil {
			logger.Log.Warn("Rate limit check failed, allowing request",
				logger.WithIP(clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if count > int64(maxRequests) {
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(clientIP),
				zap.Int("max_requests", maxRequests),
				zap.Int64("current_requests", count),
			)
			metrics.Get().RateLimitExceededTotal.
				WithLabelValues(c.FullPath(), c.Request.Method).Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
