package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:  120,
		Window: time.Minute,
	}
}

// AuthRateLimitConfig returns stricter limits for auth endpoints
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:  10,
		Window: time.Minute,
	}
}

// PostRateLimitConfig returns limits for confession and comment submission
func PostRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:  20,
		Window: time.Minute,
	}
}

// TokenBucket for rate limiting
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request is allowed based on token availability
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// GetRetryAfter returns seconds to wait before next request
func (tb *TokenBucket) GetRetryAfter() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.tokens < 1 {
		timeToToken := (1 - tb.tokens) / tb.refillRate
		return int(timeToToken) + 1
	}
	return 0
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// RateLimiter uses token buckets for each IP
type RateLimiter struct {
	buckets map[string]*TokenBucket
	config  RateLimitConfig
	mu      sync.RWMutex
}

// NewRateLimiter creates a new in-process rate limiting middleware
func NewRateLimiter(config RateLimitConfig) gin.HandlerFunc {
	rl := &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
	}

	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			retryAfter := rl.GetRetryAfter(c.ClientIP())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}

// Allow checks if an IP is allowed to make a request
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, exists := rl.buckets[ip]
	if !exists {
		refillRate := float64(rl.config.Limit) / rl.config.Window.Seconds()
		bucket = NewTokenBucket(float64(rl.config.Limit), refillRate)
		rl.buckets[ip] = bucket
	}

	return bucket.Allow()
}

// GetRetryAfter gets retry-after seconds for an IP
func (rl *RateLimiter) GetRetryAfter(ip string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	bucket, exists := rl.buckets[ip]
	if !exists {
		return 1
	}
	return bucket.GetRetryAfter()
}

// Redis-first wrappers. RedisRateLimitMiddleware degrades to allowing
// requests when Redis is not configured, so these are safe defaults.

// RateLimitDefault returns the default distributed rate limiter
func RateLimitDefault() gin.HandlerFunc {
	cfg := DefaultRateLimitConfig()
	return RedisRateLimitMiddleware(cfg.Limit, cfg.Window)
}

// RateLimitAuth returns the distributed rate limiter for auth endpoints
func RateLimitAuth() gin.HandlerFunc {
	cfg := AuthRateLimitConfig()
	return RedisRateLimitMiddleware(cfg.Limit, cfg.Window)
}

// RateLimitPost returns the distributed rate limiter for content submission
func RateLimitPost() gin.HandlerFunc {
	cfg := PostRateLimitConfig()
	return RedisRateLimitMiddleware(cfg.Limit, cfg.Window)
}
