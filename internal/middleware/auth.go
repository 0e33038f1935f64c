package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusconfessions/backend/internal/auth"
)

// RequireAuth validates the Bearer token and loads the user into the
// context. It is the single authentication entry point for protected
// routes; handlers read "user" and "user_id" from the context and never
// parse tokens themselves.
func RequireAuth(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		tokenString := header
		if strings.HasPrefix(header, "Bearer ") {
			tokenString = strings.TrimPrefix(header, "Bearer ")
		}

		user, err := authService.ValidateToken(tokenString)
		if err != nil {
			status := http.StatusUnauthorized
			msg := "invalid or expired token"
			if err == auth.ErrAccountBlocked {
				status = http.StatusForbidden
				msg = "account is blocked"
			}
			c.JSON(status, gin.H{"error": msg})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// OptionalAuth loads the user into the context when a valid token is
// present but lets anonymous requests through. Used by confession-link
// submission, which works without an account.
func OptionalAuth(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		user, err := authService.ValidateToken(tokenString)
		if err != nil {
			// A presented-but-bad token is rejected rather than silently
			// downgraded to anonymous.
			status := http.StatusUnauthorized
			msg := "invalid or expired token"
			if err == auth.ErrAccountBlocked {
				status = http.StatusForbidden
				msg = "account is blocked"
			}
			c.JSON(status, gin.H{"error": msg})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}
