package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusconfessions/backend/internal/logger"
)

// Cache key prefixes shared by handlers and background jobs
const (
	KeyTrending     = "trending:"      // trending:<college>:<window>
	KeyRankings     = "rankings:"      // rankings:<college>
	KeyRateLimit    = "ratelimit:"     // ratelimit:<ip>:<route>
	KeyUnreadCount  = "unread:"        // unread:<user_id>
	DefaultCacheTTL = 5 * time.Minute
)

// RedisClient wraps the redis.Client with centralized connection pooling
type RedisClient struct {
	client *redis.Client
}

// Singleton instance (package-level)
var globalRedis *RedisClient

// NewRedisClient creates and initializes a Redis client from a redis:// URL
func NewRedisClient(redisURL string) (*RedisClient, error) {
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opts.MaxRetries = 3
	opts.PoolSize = 10
	opts.MinIdleConns = 5
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorWithFields("Failed to connect to Redis", err)
		return nil, err
	}

	rc := &RedisClient{client: client}
	globalRedis = rc

	logger.Log.Info("Redis client connected",
		zap.String("address", opts.Addr),
	)

	return rc, nil
}

// GetRedisClient returns the global Redis client instance.
// Returns nil when Redis was never initialized; callers treat that as a
// cache miss rather than an error.
func GetRedisClient() *RedisClient {
	return globalRedis
}

// Close closes the Redis connection gracefully
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

// Get retrieves a value from Redis
func (rc *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return rc.client.Get(ctx, key).Result()
}

// Set stores a value in Redis with expiration (0 means no expiry)
func (rc *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return rc.client.Set(ctx, key, value, ttl).Err()
}

// GetJSON retrieves a value and unmarshals it into dest.
// Returns redis.Nil when the key does not exist.
func (rc *RedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, err := rc.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}

// SetJSON marshals value and stores it with expiration
func (rc *RedisClient) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, key, raw, ttl).Err()
}

// Del deletes one or more keys from Redis
func (rc *RedisClient) Del(ctx context.Context, keys ...string) error {
	return rc.client.Del(ctx, keys...).Err()
}

// DelPattern deletes all keys matching a glob pattern.
// Used to invalidate per-college caches after writes.
func (rc *RedisClient) DelPattern(ctx context.Context, pattern string) error {
	iter := rc.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := rc.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Exists checks if one or more keys exist in Redis
func (rc *RedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	return rc.client.Exists(ctx, keys...).Result()
}

// Incr increments a key value in Redis
func (rc *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return rc.client.Incr(ctx, key).Result()
}

// IncrWithExpiry increments a counter, setting the TTL when the counter is
// created. Used by the fixed-window rate limiter.
func (rc *RedisClient) IncrWithExpiry(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := rc.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Expire sets an expiration timeout on a key
func (rc *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return rc.client.Expire(ctx, key, ttl).Err()
}

// TTL returns the time-to-live for a key
func (rc *RedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rc.client.TTL(ctx, key).Result()
}

// IsNil reports whether err is a cache miss
func IsNil(err error) bool {
	return err == redis.Nil
}
