package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Call Load once at startup, after godotenv has been given a chance to
// populate the environment from a .env file.
type Config struct {
	// Server
	Port        string
	Environment string
	FrontendURL string

	// Auth
	JWTSecret     string
	TokenLifetime time.Duration

	// Logging
	LogLevel string
	LogFile  string

	// Redis
	RedisURL string

	// Email (SES)
	EmailFrom string
	AWSRegion string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// Rate limiting
	RateLimitPerMinute int
}

// Load reads configuration from the environment.
// JWT_SECRET is required outside of development - fail fast if missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "3000"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:5173"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		TokenLifetime:       getEnvDuration("TOKEN_LIFETIME", 24*time.Hour),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFile:             getEnv("LOG_FILE", "server.log"),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),
		EmailFrom:           getEnv("EMAIL_FROM", "noreply@campusconfessions.app"),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		RateLimitPerMinute:  getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	if cfg.JWTSecret == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET environment variable not set - this is REQUIRED in production")
		}
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
	}

	return cfg, nil
}

// IsProduction reports whether the server is running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
