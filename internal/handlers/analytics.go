package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/export"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/util"
)

// TrackEvent records a user-behavior event. Works for anonymous visitors
// too, since confession links are public.
// POST /api/v1/analytics/events
func (h *Handlers) TrackEvent(c *gin.Context) {
	var req struct {
		Action     string `json:"action" binding:"required,max=100"`
		TargetType string `json:"target_type" binding:"max=50"`
		TargetID   string `json:"target_id" binding:"max=100"`
		Page       string `json:"page" binding:"max=200"`
		DeviceType string `json:"device_type" binding:"max=50"`
		Browser    string `json:"browser" binding:"max=50"`
		OS         string `json:"os" binding:"max=50"`
		DurationMS int64  `json:"duration_ms" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	event := models.AnalyticsEvent{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Metadata: &models.EventMetadata{
			Page:       req.Page,
			DeviceType: req.DeviceType,
			Browser:    req.Browser,
			OS:         req.OS,
			IP:         c.ClientIP(),
			DurationMS: req.DurationMS,
		},
	}

	if user, ok := util.MaybeUser(c); ok {
		event.UserID = &user.ID
		event.CollegeName = user.CollegeName
	}

	if err := database.DB.Create(&event).Error; err != nil {
		logger.ErrorWithFields("Failed to track analytics event", err)
		util.RespondInternalError(c, "Failed to track event")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"event_id": event.ID})
}

// GetAnalyticsDashboard returns one of the three analytics reports as
// JSON for the admin dashboard
// GET /api/v1/admin/analytics/:report?days=30
func (h *Handlers) GetAnalyticsDashboard(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	report, err := h.buildReport(c.Param("report"), admin, c.Query("days"))
	if err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if report == nil {
		util.RespondInternalError(c, "Failed to build report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportAnalytics streams an analytics report as a CSV or JSON download
// GET /api/v1/admin/analytics/:report/export?format=csv|json&days=30
func (h *Handlers) ExportAnalytics(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		util.RespondValidationError(c, "format", "format must be csv or json")
		return
	}

	report, err := h.buildReport(c.Param("report"), admin, c.Query("days"))
	if err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if report == nil {
		util.RespondInternalError(c, "Failed to build report")
		return
	}

	filename := fmt.Sprintf("%s-%s.%s", report.Name, time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", format.ContentType())
	if err := report.Write(c.Writer, format); err != nil {
		logger.ErrorWithFields("Failed to write analytics export", err)
	}
}

// buildReport resolves a report name to its generator. College admins are
// scoped to their own campus; superadmins see everything.
func (h *Handlers) buildReport(name string, admin *models.User, daysStr string) (*export.Report, error) {
	days := util.ParseInt(daysStr, 30)
	if days < 1 || days > 365 {
		return nil, fmt.Errorf("days must be between 1 and 365")
	}
	since := time.Now().AddDate(0, 0, -days)

	college := admin.CollegeName
	if admin.IsSuperAdmin() {
		college = ""
	}

	switch name {
	case "user-behavior":
		return export.UserBehavior(college, since)
	case "content-performance":
		return export.ContentPerformance(college, since)
	case "system":
		if !admin.IsSuperAdmin() {
			return nil, fmt.Errorf("system report requires superadmin")
		}
		return export.SystemPerformance()
	default:
		return nil, fmt.Errorf("unknown report %q", name)
	}
}
