package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusconfessions/backend/internal/cache"
	"github.com/campusconfessions/backend/internal/database"
	apierrors "github.com/campusconfessions/backend/internal/errors"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/metrics"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/notify"
	"github.com/campusconfessions/backend/internal/util"
	"github.com/campusconfessions/backend/internal/websocket"
)

// trendingLimit caps the trending feed size
const trendingLimit = 20

// ConfessionResponse is the wire shape of a confession. Author identity
// is resolved exactly once here; anonymous posts never carry author data.
type ConfessionResponse struct {
	ID           string             `json:"id"`
	Content      string             `json:"content"`
	AuthorName   string             `json:"author_name"`
	RecipientID  string             `json:"recipient_id"`
	CollegeName  string             `json:"college_name"`
	Likes        int                `json:"likes"`
	Dislikes     int                `json:"dislikes"`
	Reactions    models.ReactionMap `json:"reactions"`
	IsAnonymous  bool               `json:"is_anonymous"`
	IsHidden     bool               `json:"is_hidden"`
	CommentCount int                `json:"comment_count"`
	CreatedAt    time.Time          `json:"created_at"`
}

func toConfessionResponse(confession *models.Confession, commentCount int) ConfessionResponse {
	return ConfessionResponse{
		ID:           confession.ID,
		Content:      confession.Content,
		AuthorName:   confession.AuthorName(),
		RecipientID:  confession.RecipientID,
		CollegeName:  confession.CollegeName,
		Likes:        confession.Likes,
		Dislikes:     confession.Dislikes,
		Reactions:    confession.Reactions,
		IsAnonymous:  confession.IsAnonymous,
		IsHidden:     confession.IsHidden,
		CommentCount: commentCount,
		CreatedAt:    confession.CreatedAt,
	}
}

// CreateConfession submits a confession to a recipient's link. Works with
// or without an account; authenticated authors are subject to tier quota
// and cross-college rules.
// POST /api/v1/confessions
func (h *Handlers) CreateConfession(c *gin.Context) {
	var req struct {
		Content       string `json:"content" binding:"required,min=1,max=5000"`
		RecipientID   string `json:"recipient_id"`
		RecipientLink string `json:"recipient_link"`
		IsAnonymous   bool   `json:"is_anonymous"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if req.RecipientID == "" && req.RecipientLink == "" {
		util.RespondValidationError(c, "recipient_id", "recipient_id or recipient_link is required")
		return
	}

	if blocked := h.filter.Check(req.Content); len(blocked) > 0 {
		util.RespondWithAPIError(c, apierrors.ContentBlocked("Confession contains prohibited language"))
		return
	}

	var recipient models.User
	query := database.DB
	if req.RecipientID != "" {
		query = query.Where("id = ?", req.RecipientID)
	} else {
		query = query.Where("confession_link = ?", req.RecipientLink)
	}
	if err := query.First(&recipient).Error; err != nil {
		util.RespondNotFound(c, "recipient")
		return
	}

	confession := models.Confession{
		Content:     req.Content,
		RecipientID: recipient.ID,
		CollegeName: recipient.CollegeName,
		IsAnonymous: req.IsAnonymous,
	}

	// The author is optional: confession links accept anonymous submissions
	// from people without accounts.
	author, authenticated := util.MaybeUser(c)
	if authenticated {
		if !author.CanPostTo(recipient.CollegeName) {
			util.RespondWithAPIError(c, apierrors.PaymentRequired("posting to other colleges"))
			return
		}
		quota := author.Subscription.Tier.MessageQuota()
		if quota > 0 && author.Subscription.MessageCount >= quota {
			util.RespondWithAPIError(c, apierrors.PaymentRequired("monthly confession quota"))
			return
		}
		confession.AuthorID = &author.ID
	} else {
		// No account means no identity to reveal either way
		confession.IsAnonymous = true
	}

	if err := database.DB.Create(&confession).Error; err != nil {
		logger.ErrorWithFields("Failed to create confession", err)
		util.RespondInternalError(c, "Failed to create confession")
		return
	}

	if err := database.DB.Model(&models.User{}).Where("id = ?", recipient.ID).
		UpdateColumn("stats_total_confessions", gorm.Expr("stats_total_confessions + 1")).Error; err != nil {
		logger.WarnWithFields("Failed to increment recipient confession count", err)
	}
	if author != nil {
		if err := database.DB.Model(&models.User{}).Where("id = ?", author.ID).
			UpdateColumn("subscription_message_count", gorm.Expr("subscription_message_count + 1")).Error; err != nil {
			logger.WarnWithFields("Failed to increment author message count", err)
		}
	}

	metrics.Get().ConfessionsCreated.WithLabelValues(
		confession.CollegeName, strconv.FormatBool(confession.IsAnonymous)).Inc()

	confessionID := confession.ID
	if h.notifier != nil {
		if _, err := h.notifier.Create(c.Request.Context(), notify.Input{
			RecipientID:  recipient.ID,
			Type:         models.NotificationConfession,
			Template:     notify.NewConfession(recipient.CollegeName),
			ConfessionID: &confessionID,
			ActorID:      confession.AuthorID,
		}); err != nil {
			logger.WarnWithFields("Failed to notify confession recipient", err)
		}
	}

	if h.hub != nil {
		h.hub.SendToCollege(confession.CollegeName, websocket.NewMessage(
			websocket.MessageTypeNewConfession,
			websocket.ConfessionPayload{
				ConfessionID: confession.ID,
				College:      confession.CollegeName,
			},
		))
	}

	c.JSON(http.StatusCreated, gin.H{"confession": toConfessionResponse(&confession, 0)})
}

// GetConfession returns a single confession. Hidden confessions are
// visible only to their recipient and to admins.
// GET /api/v1/confessions/:id
func (h *Handlers) GetConfession(c *gin.Context) {
	var confession models.Confession
	if err := database.DB.Preload("Author").First(&confession, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "confession")
		return
	}

	if confession.IsHidden && !h.canModerate(c, &confession) {
		util.RespondNotFound(c, "confession")
		return
	}

	var commentCount int64
	database.DB.Model(&models.Comment{}).
		Where("confession_id = ? AND is_hidden = ?", confession.ID, false).
		Count(&commentCount)

	c.JSON(http.StatusOK, gin.H{"confession": toConfessionResponse(&confession, int(commentCount))})
}

// ListConfessions returns the paginated feed for a college, newest first,
// excluding hidden content
// GET /api/v1/confessions?college=...&page=1&per_page=20
func (h *Handlers) ListConfessions(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	college := c.Query("college")
	if college == "" {
		college = user.CollegeName
	}
	if college != user.CollegeName && !user.CanPostTo(college) {
		util.RespondWithAPIError(c, apierrors.PaymentRequired("viewing other colleges"))
		return
	}

	page, perPage := util.ParsePagination(c.Query("page"), c.Query("per_page"))

	var total int64
	base := database.DB.Model(&models.Confession{}).
		Where("college_name = ? AND is_hidden = ?", college, false)
	if err := base.Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to load confessions")
		return
	}

	var confessions []models.Confession
	if err := database.DB.Preload("Author").
		Where("college_name = ? AND is_hidden = ?", college, false).
		Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&confessions).Error; err != nil {
		util.RespondInternalError(c, "Failed to load confessions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"confessions": h.serializeConfessions(confessions),
		"total":       total,
		"page":        page,
		"per_page":    perPage,
	})
}

// GetInbox returns confessions sent to the authenticated user, including
// ones they vaulted away from the public feed
// GET /api/v1/confessions/inbox
func (h *Handlers) GetInbox(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	page, perPage := util.ParsePagination(c.Query("page"), c.Query("per_page"))

	var total int64
	database.DB.Model(&models.Confession{}).Where("recipient_id = ?", user.ID).Count(&total)

	var confessions []models.Confession
	if err := database.DB.Preload("Author").
		Where("recipient_id = ?", user.ID).
		Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&confessions).Error; err != nil {
		util.RespondInternalError(c, "Failed to load inbox")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"confessions": h.serializeConfessions(confessions),
		"total":       total,
		"page":        page,
		"per_page":    perPage,
	})
}

// GetTrending returns the top confessions for the user's college within a
// timeframe window. Results are cached in Redis for a few minutes.
// GET /api/v1/confessions/trending?timeframe=24h|7d|30d
func (h *Handlers) GetTrending(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	timeframe := c.DefaultQuery("timeframe", "24h")
	var window time.Duration
	switch timeframe {
	case "24h":
		window = 24 * time.Hour
	case "7d":
		window = 7 * 24 * time.Hour
	case "30d":
		window = 30 * 24 * time.Hour
	default:
		util.RespondValidationError(c, "timeframe", "timeframe must be one of 24h, 7d, 30d")
		return
	}

	cacheKey := fmt.Sprintf("%s%s:%s", cache.KeyTrending, user.CollegeName, timeframe)
	if rc := cache.GetRedisClient(); rc != nil {
		var cached []ConfessionResponse
		if err := rc.GetJSON(c.Request.Context(), cacheKey, &cached); err == nil {
			metrics.Get().CacheHitsTotal.WithLabelValues("trending").Inc()
			c.JSON(http.StatusOK, gin.H{"confessions": cached, "timeframe": timeframe, "cached": true})
			return
		}
		metrics.Get().CacheMissesTotal.WithLabelValues("trending").Inc()
	}

	since := time.Now().Add(-window)
	var confessions []models.Confession
	if err := database.DB.Preload("Author").
		Where("college_name = ? AND is_hidden = ? AND created_at > ?", user.CollegeName, false, since).
		Order("likes DESC, created_at DESC").
		Limit(trendingLimit).
		Find(&confessions).Error; err != nil {
		util.RespondInternalError(c, "Failed to load trending confessions")
		return
	}

	responses := h.serializeConfessions(confessions)
	if rc := cache.GetRedisClient(); rc != nil {
		if err := rc.SetJSON(c.Request.Context(), cacheKey, responses, cache.DefaultCacheTTL); err != nil {
			logger.WarnWithFields("Failed to cache trending feed", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"confessions": responses, "timeframe": timeframe, "cached": false})
}

// UpdateConfession edits a confession's content. Only the author may edit,
// and edits go through the same profanity filter as creation.
// PUT /api/v1/confessions/:id
func (h *Handlers) UpdateConfession(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,min=1,max=5000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var confession models.Confession
	if err := database.DB.First(&confession, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "confession")
		return
	}

	if confession.AuthorID == nil || *confession.AuthorID != user.ID {
		util.RespondForbidden(c, "Only the author can edit a confession")
		return
	}

	if blocked := h.filter.Check(req.Content); len(blocked) > 0 {
		util.RespondWithAPIError(c, apierrors.ContentBlocked("Confession contains prohibited language"))
		return
	}

	confession.Content = req.Content
	if err := database.DB.Model(&confession).Update("content", req.Content).Error; err != nil {
		util.RespondInternalError(c, "Failed to update confession")
		return
	}

	c.JSON(http.StatusOK, gin.H{"confession": toConfessionResponse(&confession, 0)})
}

// DeleteConfession removes a confession. The recipient owns their inbox,
// so recipient or admin may delete.
// DELETE /api/v1/confessions/:id
func (h *Handlers) DeleteConfession(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var confession models.Confession
	if err := database.DB.First(&confession, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "confession")
		return
	}

	if confession.RecipientID != user.ID && !user.IsAdmin && !user.IsSuperAdmin() {
		util.RespondForbidden(c, "Only the recipient or an admin can delete a confession")
		return
	}

	if err := database.DB.Delete(&confession).Error; err != nil {
		util.RespondInternalError(c, "Failed to delete confession")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "confession deleted"})
}

// ReportConfession files a report against a confession. Crossing the
// report threshold hides the confession automatically.
// POST /api/v1/confessions/:id/report
func (h *Handlers) ReportConfession(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required,min=3,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var confession models.Confession
	if err := database.DB.First(&confession, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "confession")
		return
	}

	// One report per user per confession
	var existing int64
	database.DB.Model(&models.ReportedConfession{}).
		Where("confession_id = ? AND reported_by_id = ?", confession.ID, user.ID).
		Count(&existing)
	if existing > 0 {
		util.RespondConflict(c, "report")
		return
	}

	report := models.ReportedConfession{
		ConfessionID: confession.ID,
		ReportedByID: user.ID,
		Reason:       req.Reason,
		CollegeName:  confession.CollegeName,
		Status:       models.ReportStatusPending,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"is_reported":  true,
			"report_count": gorm.Expr("report_count + 1"),
		}
		if err := tx.Model(&confession).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.First(&confession, "id = ?", confession.ID).Error; err != nil {
			return err
		}
		if confession.ReportCount >= models.ConfessionHideThreshold && !confession.IsHidden {
			if err := tx.Model(&confession).Update("is_hidden", true).Error; err != nil {
				return err
			}
			confession.IsHidden = true
		}
		return nil
	})
	if err != nil {
		logger.ErrorWithFields("Failed to file confession report", err)
		util.RespondInternalError(c, "Failed to report confession")
		return
	}

	metrics.Get().ReportsTotal.WithLabelValues("confession").Inc()
	if confession.IsHidden {
		metrics.Get().ContentHidden.WithLabelValues("confession").Inc()
		if h.hub != nil {
			h.hub.SendToCollege(confession.CollegeName, websocket.NewMessage(
				websocket.MessageTypeConfessionHidden,
				gin.H{"confession_id": confession.ID},
			))
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "report filed",
		"report_count": confession.ReportCount,
		"is_hidden":    confession.IsHidden,
	})
}

// serializeConfessions maps confessions to their wire shape with visible
// comment counts fetched in a single grouped query
func (h *Handlers) serializeConfessions(confessions []models.Confession) []ConfessionResponse {
	responses := make([]ConfessionResponse, 0, len(confessions))
	if len(confessions) == 0 {
		return responses
	}

	ids := make([]string, len(confessions))
	for i, confession := range confessions {
		ids[i] = confession.ID
	}

	type countRow struct {
		ConfessionID string
		Count        int
	}
	var rows []countRow
	counts := make(map[string]int, len(confessions))
	if err := database.DB.Model(&models.Comment{}).
		Select("confession_id, COUNT(*) as count").
		Where("confession_id IN ? AND is_hidden = ?", ids, false).
		Group("confession_id").
		Scan(&rows).Error; err == nil {
		for _, row := range rows {
			counts[row.ConfessionID] = row.Count
		}
	}

	for i := range confessions {
		responses = append(responses, toConfessionResponse(&confessions[i], counts[confessions[i].ID]))
	}
	return responses
}

// canModerate reports whether the requester may see or act on hidden
// content for this confession
func (h *Handlers) canModerate(c *gin.Context, confession *models.Confession) bool {
	user, ok := util.MaybeUser(c)
	if !ok {
		return false
	}
	return user.ID == confession.RecipientID || user.IsAdmin || user.IsSuperAdmin()
}
