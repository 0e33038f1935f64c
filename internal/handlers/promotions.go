package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/util"
	"github.com/campusconfessions/backend/internal/websocket"
)

// GetActivePromotions returns the unexpired active promotions for the
// caller's college, banners first
// GET /api/v1/promotions
func (h *Handlers) GetActivePromotions(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var promotions []models.Promotion
	if err := database.DB.
		Where("is_active = ? AND end_date > ?", true, time.Now()).
		Where("college_name = ? OR college_name = ''", user.CollegeName).
		Order("type ASC, created_at DESC").
		Find(&promotions).Error; err != nil {
		util.RespondInternalError(c, "Failed to load promotions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"promotions": promotions})
}

// CreatePromotion creates a banner ad or feed promotion. An empty college
// name makes it platform-wide.
// POST /api/v1/admin/promotions
func (h *Handlers) CreatePromotion(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Title       string    `json:"title" binding:"required,max=200"`
		Content     string    `json:"content" binding:"required,max=2000"`
		Type        string    `json:"type" binding:"omitempty,oneof=banner promotion"`
		CollegeName string    `json:"college_name"`
		EndDate     time.Time `json:"end_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if !req.EndDate.After(time.Now()) {
		util.RespondValidationError(c, "end_date", "End date must be in the future")
		return
	}

	college := req.CollegeName
	if !admin.IsSuperAdmin() {
		// College admins can only promote within their own campus
		college = admin.CollegeName
	}

	promoType := models.PromotionType(req.Type)
	if promoType == "" {
		promoType = models.PromotionFeed
	}

	promotion := models.Promotion{
		Title:       req.Title,
		Content:     req.Content,
		Type:        promoType,
		CollegeName: college,
		IsActive:    true,
		EndDate:     req.EndDate,
		CreatedByID: admin.ID,
	}
	if err := database.DB.Create(&promotion).Error; err != nil {
		util.RespondInternalError(c, "Failed to create promotion")
		return
	}

	if h.hub != nil && college != "" {
		h.hub.SendToCollege(college, websocket.NewMessage(
			websocket.MessageTypePromotion,
			gin.H{"promotion_id": promotion.ID, "title": promotion.Title},
		))
	}

	c.JSON(http.StatusCreated, gin.H{"promotion": promotion})
}

// UpdatePromotion edits a promotion's content, activity flag, or end date
// PUT /api/v1/admin/promotions/:id
func (h *Handlers) UpdatePromotion(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var promotion models.Promotion
	if err := database.DB.First(&promotion, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "promotion")
		return
	}
	if !admin.IsSuperAdmin() && promotion.CollegeName != admin.CollegeName {
		util.RespondForbidden(c, "Promotion belongs to another college")
		return
	}

	var req struct {
		Title    *string    `json:"title" binding:"omitempty,max=200"`
		Content  *string    `json:"content" binding:"omitempty,max=2000"`
		IsActive *bool      `json:"is_active"`
		EndDate  *time.Time `json:"end_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.EndDate != nil {
		updates["end_date"] = *req.EndDate
	}
	if len(updates) == 0 {
		util.RespondBadRequest(c, "No fields to update")
		return
	}

	if err := database.DB.Model(&promotion).Updates(updates).Error; err != nil {
		util.RespondInternalError(c, "Failed to update promotion")
		return
	}

	c.JSON(http.StatusOK, gin.H{"promotion": promotion})
}

// DeletePromotion removes a promotion
// DELETE /api/v1/admin/promotions/:id
func (h *Handlers) DeletePromotion(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var promotion models.Promotion
	if err := database.DB.First(&promotion, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "promotion")
		return
	}
	if !admin.IsSuperAdmin() && promotion.CollegeName != admin.CollegeName {
		util.RespondForbidden(c, "Promotion belongs to another college")
		return
	}

	if err := database.DB.Delete(&promotion).Error; err != nil {
		util.RespondInternalError(c, "Failed to delete promotion")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "promotion deleted"})
}
