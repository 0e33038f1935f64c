package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/util"
)

// PublicProfile is the identity-safe view of a user shown to anyone who
// opens their confession link
type PublicProfile struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	CollegeName    string `json:"college_name"`
	ConfessionLink string `json:"confession_link"`
	TotalLikes     int    `json:"total_likes"`
	WeeklyRank     int    `json:"weekly_rank"`
	MonthlyRank    int    `json:"monthly_rank"`
}

func toPublicProfile(user *models.User) PublicProfile {
	return PublicProfile{
		ID:             user.ID,
		Username:       user.Username,
		CollegeName:    user.CollegeName,
		ConfessionLink: user.ConfessionLink,
		TotalLikes:     user.Stats.TotalLikes,
		WeeklyRank:     user.Stats.WeeklyRank,
		MonthlyRank:    user.Stats.MonthlyRank,
	}
}

// ResolveConfessionLink looks up the owner of a confession link so the
// sender page can show who they are confessing to. Counts a profile visit.
// GET /api/v1/links/:link
func (h *Handlers) ResolveConfessionLink(c *gin.Context) {
	var user models.User
	if err := database.DB.First(&user, "confession_link = ?", c.Param("link")).Error; err != nil {
		util.RespondNotFound(c, "confession link")
		return
	}
	if user.IsBlocked {
		util.RespondNotFound(c, "confession link")
		return
	}

	if err := database.DB.Model(&user).
		UpdateColumn("stats_profile_visits", gorm.Expr("stats_profile_visits + 1")).Error; err != nil {
		logger.WarnWithFields("Failed to count profile visit", err)
	}

	c.JSON(http.StatusOK, gin.H{"user": toPublicProfile(&user)})
}

// GetUserProfile returns the public profile of another user
// GET /api/v1/users/:id
func (h *Handlers) GetUserProfile(c *gin.Context) {
	var user models.User
	if err := database.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toPublicProfile(&user)})
}

// UpdateProfile changes the caller's username. New usernames go through
// the same profanity filter as registration, and the confession link is
// left untouched so shared links keep working.
// PUT /api/v1/users/me
func (h *Handlers) UpdateProfile(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Username string `json:"username" binding:"required,min=3,max=30"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if !h.filter.IsClean(req.Username) {
		util.RespondValidationError(c, "username", "Username contains prohibited language")
		return
	}

	var existing int64
	database.DB.Model(&models.User{}).
		Where("LOWER(username) = LOWER(?) AND id <> ?", req.Username, user.ID).
		Count(&existing)
	if existing > 0 {
		util.RespondConflict(c, "username")
		return
	}

	user.Username = req.Username
	user.LogActivity("update_profile", map[string]interface{}{"username": req.Username})
	if err := database.DB.Save(user).Error; err != nil {
		util.RespondInternalError(c, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdatePreferences changes notification and display preferences
// PUT /api/v1/users/me/preferences
func (h *Handlers) UpdatePreferences(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		EmailNotifications *bool `json:"email_notifications"`
		PushNotifications  *bool `json:"push_notifications"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if req.EmailNotifications != nil {
		user.Preferences.EmailNotifications = *req.EmailNotifications
	}
	if req.PushNotifications != nil {
		user.Preferences.PushNotifications = *req.PushNotifications
	}

	if err := database.DB.Save(user).Error; err != nil {
		util.RespondInternalError(c, "Failed to update preferences")
		return
	}

	c.JSON(http.StatusOK, gin.H{"preferences": user.Preferences})
}

// GetMyStats returns the caller's engagement stats and quota usage
// GET /api/v1/users/me/stats
func (h *Handlers) GetMyStats(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	quota := user.Subscription.Tier.MessageQuota()
	c.JSON(http.StatusOK, gin.H{
		"stats":         user.Stats,
		"message_count": user.Subscription.MessageCount,
		"message_quota": quota,
		"unlimited":     quota == 0,
	})
}

// GetMyActivity returns the caller's recent activity log entries
// GET /api/v1/users/me/activity
func (h *Handlers) GetMyActivity(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	entries := user.ActivityLog
	if entries == nil {
		entries = []models.ActivityEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries})
}

// DeleteAccount soft-deletes the caller's account
// DELETE /api/v1/users/me
func (h *Handlers) DeleteAccount(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if err := database.DB.Delete(user).Error; err != nil {
		logger.ErrorWithFields("Failed to delete account", err)
		util.RespondInternalError(c, "Failed to delete account")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}

// ListColleges returns the distinct colleges with registered users
// GET /api/v1/colleges
func (h *Handlers) ListColleges(c *gin.Context) {
	var colleges []string
	if err := database.DB.Model(&models.User{}).
		Distinct("college_name").
		Order("college_name ASC").
		Pluck("college_name", &colleges).Error; err != nil {
		util.RespondInternalError(c, "Failed to load colleges")
		return
	}

	c.JSON(http.StatusOK, gin.H{"colleges": colleges})
}
