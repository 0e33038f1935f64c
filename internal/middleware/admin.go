package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/models"
)

// RequireAdmin middleware ensures the request is authenticated and the user
// is an admin. Admin status is re-read from the database so revocation
// takes effect before the token expires.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadContextUser(c)
		if !ok {
			return
		}

		if !user.IsAdmin && user.Role != models.RoleAdmin && !user.IsSuperAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin_access_required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireSuperAdmin restricts a route to superadmins only
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadContextUser(c)
		if !ok {
			return
		}

		if !user.IsSuperAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "superadmin_access_required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// loadContextUser fetches fresh user data for the authenticated user ID
func loadContextUser(c *gin.Context) (*models.User, bool) {
	userIDInterface, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		c.Abort()
		return nil, false
	}

	userID, ok := userIDInterface.(string)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_user_context"})
		c.Abort()
		return nil, false
	}

	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user_not_found"})
		c.Abort()
		return nil, false
	}

	return &user, true
}
