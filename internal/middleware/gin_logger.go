package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campusconfessions/backend/internal/logger"
)

// GinLoggerMiddleware logs HTTP requests with structured fields,
// replacing gin.Logger
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestIDStr := ""
		if rID, ok := c.Get("request_id"); ok {
			requestIDStr, _ = rID.(string)
		}

		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		clientIP := c.ClientIP()
		userAgent := c.Request.UserAgent()

		c.Next()

		statusCode := c.Writer.Status()
		responseSize := c.Writer.Size()
		latency := time.Since(startTime)

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("client_ip", clientIP),
			zap.Int("status", statusCode),
			zap.Int("response_size", responseSize),
			zap.Duration("latency", latency),
			zap.String("user_agent", userAgent),
		}

		if requestIDStr != "" {
			fields = append(fields, zap.String("request_id", requestIDStr))
		}

		switch {
		case statusCode >= 500:
			logger.Log.Error("HTTP request", fields...)
		case statusCode >= 400:
			logger.Log.Warn("HTTP request", fields...)
		default:
			logger.Log.Info("HTTP request", fields...)
		}
	}
}
