package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/notify"
	"github.com/campusconfessions/backend/internal/util"
)

// SetUserTier grants or changes a user's subscription tier directly,
// bypassing billing. The user is notified of the change.
// PUT /api/v1/superadmin/users/:id/tier
func (h *Handlers) SetUserTier(c *gin.Context) {
	var req struct {
		Tier            string   `json:"tier" binding:"required,oneof=basic silver gold platinum"`
		DurationDays    int      `json:"duration_days" binding:"omitempty,min=1,max=3650"`
		AllowedColleges []string `json:"allowed_colleges"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var target models.User
	if err := database.DB.First(&target, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	tier := models.SubscriptionTier(req.Tier)
	target.Subscription.Tier = tier
	target.Subscription.MessageCount = 0
	if len(req.AllowedColleges) > 0 {
		target.Subscription.AllowedColleges = models.StringArray(req.AllowedColleges)
	}
	if tier == models.TierBasic {
		target.Subscription.ExpiresAt = nil
		target.Subscription.AllowedColleges = nil
	} else {
		days := req.DurationDays
		if days == 0 {
			days = 30
		}
		expires := time.Now().AddDate(0, 0, days)
		target.Subscription.ExpiresAt = &expires
	}

	if err := database.DB.Save(&target).Error; err != nil {
		util.RespondInternalError(c, "Failed to update tier")
		return
	}

	if h.notifier != nil {
		if _, err := h.notifier.Create(c.Request.Context(), notify.Input{
			RecipientID: target.ID,
			Type:        models.NotificationSystem,
			Template:    notify.SubscriptionChanged(string(tier)),
		}); err != nil {
			logger.WarnWithFields("Failed to notify user of tier change", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"user": target})
}

// SearchUsers searches all users across colleges by username or email
// GET /api/v1/superadmin/users?q=...
func (h *Handlers) SearchUsers(c *gin.Context) {
	page, perPage := util.ParsePagination(c.Query("page"), c.Query("per_page"))

	query := database.DB.Model(&models.User{})
	if q := c.Query("q"); q != "" {
		like := "%" + q + "%"
		query = query.Where("username LIKE ? OR email LIKE ?", like, like)
	}
	if college := c.Query("college"); college != "" {
		query = query.Where("college_name = ?", college)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to search users")
		return
	}

	var users []models.User
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&users).Error; err != nil {
		util.RespondInternalError(c, "Failed to search users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":    users,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// SetUserRole promotes or demotes a user's role
// PUT /api/v1/superadmin/users/:id/role
func (h *Handlers) SetUserRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required,oneof=user admin superadmin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var target models.User
	if err := database.DB.First(&target, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	role := models.Role(req.Role)
	updates := map[string]interface{}{
		"role":     role,
		"is_admin": role == models.RoleAdmin || role == models.RoleSuperAdmin,
	}
	if err := database.DB.Model(&target).Updates(updates).Error; err != nil {
		util.RespondInternalError(c, "Failed to update role")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": target.ID, "role": role})
}

// OverrideReport reopens or forces a decision on any report regardless of
// college or prior resolution
// PUT /api/v1/superadmin/reports/:id
func (h *Handlers) OverrideReport(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Status     string `json:"status" binding:"required,oneof=pending reviewed resolved"`
		Hidden     *bool  `json:"hidden"`
		AdminNotes string `json:"admin_notes" binding:"max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var report models.ReportedConfession
	if err := database.DB.First(&report, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "report")
		return
	}

	report.Status = models.ReportStatus(req.Status)
	if req.AdminNotes != "" {
		report.AdminNotes = req.AdminNotes
	}
	if report.Status == models.ReportStatusResolved {
		now := time.Now()
		report.ResolvedByID = &admin.ID
		report.ResolvedAt = &now
	} else {
		report.ResolvedByID = nil
		report.ResolvedAt = nil
	}
	if err := database.DB.Save(&report).Error; err != nil {
		util.RespondInternalError(c, "Failed to override report")
		return
	}

	if req.Hidden != nil {
		if err := database.DB.Model(&models.Confession{}).
			Where("id = ?", report.ConfessionID).
			Update("is_hidden", *req.Hidden).Error; err != nil {
			logger.ErrorWithFields("Failed to update confession visibility", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// AnnounceToCollege persists a notification for every user in a college
// and pushes a live announcement
// POST /api/v1/superadmin/announcements
func (h *Handlers) AnnounceToCollege(c *gin.Context) {
	var req struct {
		CollegeName string `json:"college_name" binding:"required"`
		Title       string `json:"title" binding:"required,max=200"`
		Message     string `json:"message" binding:"required,max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	count, err := h.notifier.SendToCollege(c.Request.Context(), req.CollegeName,
		notify.CollegeAnnouncement(req.Title, req.Message), nil)
	if err != nil {
		logger.ErrorWithFields("Failed to send college announcement", err)
		util.RespondInternalError(c, "Failed to send announcement")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"recipients": count, "college": req.CollegeName})
}

// GetSystemAnalytics returns platform-wide counts for the superadmin
// dashboard
// GET /api/v1/superadmin/analytics
func (h *Handlers) GetSystemAnalytics(c *gin.Context) {
	stats := gin.H{}
	var n int64

	database.DB.Model(&models.User{}).Count(&n)
	stats["users"] = n
	database.DB.Model(&models.User{}).Where("is_blocked = ?", true).Count(&n)
	stats["blocked_users"] = n
	database.DB.Model(&models.User{}).Where("subscription_tier <> ?", models.TierBasic).Count(&n)
	stats["paid_users"] = n
	database.DB.Model(&models.Confession{}).Count(&n)
	stats["confessions"] = n
	database.DB.Model(&models.Confession{}).Where("is_hidden = ?", true).Count(&n)
	stats["hidden_confessions"] = n
	database.DB.Model(&models.Comment{}).Count(&n)
	stats["comments"] = n
	database.DB.Model(&models.Like{}).Count(&n)
	stats["likes"] = n
	database.DB.Model(&models.Notification{}).Count(&n)
	stats["notifications"] = n
	database.DB.Model(&models.ReportedConfession{}).
		Where("status = ?", models.ReportStatusPending).Count(&n)
	stats["pending_reports"] = n
	database.DB.Model(&models.AnalyticsEvent{}).Count(&n)
	stats["analytics_events"] = n

	var colleges int64
	database.DB.Model(&models.User{}).Distinct("college_name").Count(&colleges)
	stats["colleges"] = colleges

	if h.hub != nil {
		snapshot := h.hub.GetMetrics()
		stats["online_connections"] = snapshot.ActiveConnections
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
