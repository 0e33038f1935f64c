package util

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusconfessions/backend/internal/models"
)

// GetUserFromContext extracts the authenticated user placed in the Gin
// context by the auth middleware. When no user is present it responds
// 401 and returns false, so handlers can bail with a bare return.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user, ok := MaybeUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return nil, false
	}
	return user, true
}

// MaybeUser returns the context user without writing a response. Routes
// that accept anonymous callers (confession submission, analytics events)
// use this to attribute the request when an account happens to be present.
func MaybeUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// GetUserIDFromContext extracts just the user ID. Same 401 contract as
// GetUserFromContext.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	id, ok := userID.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user ID in context"})
		return "", false
	}
	return id, true
}
