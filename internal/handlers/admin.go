package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/metrics"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/util"
)

// GetReportedConfessions returns the moderation queue for the admin's
// college, pending reports first
// GET /api/v1/admin/reports
func (h *Handlers) GetReportedConfessions(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	page, perPage := util.ParsePagination(c.Query("page"), c.Query("per_page"))
	status := c.DefaultQuery("status", string(models.ReportStatusPending))

	query := database.DB.Model(&models.ReportedConfession{}).Where("status = ?", status)
	// Superadmins see reports across every college
	if !admin.IsSuperAdmin() {
		query = query.Where("college_name = ?", admin.CollegeName)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to load reports")
		return
	}

	var reports []models.ReportedConfession
	if err := query.
		Preload("Confession").Preload("ReportedBy").
		Order("created_at ASC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&reports).Error; err != nil {
		util.RespondInternalError(c, "Failed to load reports")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports":  reports,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// ResolveReport closes out a report. The action decides what happens to
// the confession: "hide" keeps or makes it hidden, "restore" unhides it
// and clears the report counter, "dismiss" leaves it as is.
// PUT /api/v1/admin/reports/:id
func (h *Handlers) ResolveReport(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Action     string `json:"action" binding:"required,oneof=hide restore dismiss"`
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
	if !admin.IsSuperAdmin() && report.CollegeName != admin.CollegeName {
		util.RespondForbidden(c, "Report belongs to another college")
		return
	}

	now := time.Now()
	report.Status = models.ReportStatusResolved
	report.AdminNotes = req.AdminNotes
	report.ResolvedByID = &admin.ID
	report.ResolvedAt = &now
	if err := database.DB.Save(&report).Error; err != nil {
		util.RespondInternalError(c, "Failed to resolve report")
		return
	}

	switch req.Action {
	case "hide":
		if err := database.DB.Model(&models.Confession{}).
			Where("id = ?", report.ConfessionID).
			Update("is_hidden", true).Error; err != nil {
			logger.ErrorWithFields("Failed to hide reported confession", err)
		} else {
			metrics.Get().ContentHidden.WithLabelValues("confession").Inc()
		}
	case "restore":
		updates := map[string]interface{}{
			"is_hidden":    false,
			"is_reported":  false,
			"report_count": 0,
		}
		if err := database.DB.Model(&models.Confession{}).
			Where("id = ?", report.ConfessionID).
			Updates(updates).Error; err != nil {
			logger.ErrorWithFields("Failed to restore reported confession", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"report": report, "action": req.Action})
}

// BlockUser blocks an account in the admin's college. Blocked users fail
// authentication on their next request.
// PUT /api/v1/admin/users/:id/block
func (h *Handlers) BlockUser(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var target models.User
	if err := database.DB.First(&target, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}
	if !admin.IsSuperAdmin() {
		if target.CollegeName != admin.CollegeName {
			util.RespondForbidden(c, "User belongs to another college")
			return
		}
		if target.IsAdmin || target.IsSuperAdmin() {
			util.RespondForbidden(c, "Cannot block an admin")
			return
		}
	}

	if err := database.DB.Model(&target).Update("is_blocked", true).Error; err != nil {
		util.RespondInternalError(c, "Failed to block user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user blocked", "user_id": target.ID})
}

// UnblockUser lifts a block
// PUT /api/v1/admin/users/:id/unblock
func (h *Handlers) UnblockUser(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var target models.User
	if err := database.DB.First(&target, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}
	if !admin.IsSuperAdmin() && target.CollegeName != admin.CollegeName {
		util.RespondForbidden(c, "User belongs to another college")
		return
	}

	if err := database.DB.Model(&target).Update("is_blocked", false).Error; err != nil {
		util.RespondInternalError(c, "Failed to unblock user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user unblocked", "user_id": target.ID})
}

// GetBlockedUsers lists blocked accounts in the admin's college
// GET /api/v1/admin/users/blocked
func (h *Handlers) GetBlockedUsers(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	query := database.DB.Where("is_blocked = ?", true)
	if !admin.IsSuperAdmin() {
		query = query.Where("college_name = ?", admin.CollegeName)
	}

	var users []models.User
	if err := query.Order("updated_at DESC").Find(&users).Error; err != nil {
		util.RespondInternalError(c, "Failed to load blocked users")
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetCollegeUsers lists users in the admin's college
// GET /api/v1/admin/users
func (h *Handlers) GetCollegeUsers(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	page, perPage := util.ParsePagination(c.Query("page"), c.Query("per_page"))

	var total int64
	database.DB.Model(&models.User{}).
		Where("college_name = ?", admin.CollegeName).Count(&total)

	var users []models.User
	if err := database.DB.
		Where("college_name = ?", admin.CollegeName).
		Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&users).Error; err != nil {
		util.RespondInternalError(c, "Failed to load users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":    users,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// GetCollegeStats returns headline moderation and engagement numbers for
// the admin's college
// GET /api/v1/admin/stats
func (h *Handlers) GetCollegeStats(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	college := admin.CollegeName

	stats := gin.H{}
	var n int64

	database.DB.Model(&models.User{}).Where("college_name = ?", college).Count(&n)
	stats["users"] = n
	database.DB.Model(&models.User{}).Where("college_name = ? AND is_blocked = ?", college, true).Count(&n)
	stats["blocked_users"] = n
	database.DB.Model(&models.Confession{}).Where("college_name = ?", college).Count(&n)
	stats["confessions"] = n
	database.DB.Model(&models.Confession{}).Where("college_name = ? AND is_hidden = ?", college, true).Count(&n)
	stats["hidden_confessions"] = n
	database.DB.Model(&models.Like{}).Where("college_name = ?", college).Count(&n)
	stats["likes"] = n
	database.DB.Model(&models.ReportedConfession{}).
		Where("college_name = ? AND status = ?", college, models.ReportStatusPending).Count(&n)
	stats["pending_reports"] = n

	if h.hub != nil {
		stats["online_users"] = h.hub.GetCollegeOnlineCount(college)
	}

	c.JSON(http.StatusOK, gin.H{"college": college, "stats": stats})
}
