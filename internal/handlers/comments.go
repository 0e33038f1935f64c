package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusconfessions/backend/internal/database"
	apierrors "github.com/campusconfessions/backend/internal/errors"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/metrics"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/notify"
	"github.com/campusconfessions/backend/internal/util"
	"github.com/campusconfessions/backend/internal/websocket"
)

// CommentResponse is the wire shape of a comment, with author identity
// resolved once
type CommentResponse struct {
	ID           string    `json:"id"`
	ConfessionID string    `json:"confession_id"`
	Content      string    `json:"content"`
	AuthorName   string    `json:"author_name"`
	IsAnonymous  bool      `json:"is_anonymous"`
	Likes        int       `json:"likes"`
	CreatedAt    time.Time `json:"created_at"`
}

func toCommentResponse(comment *models.Comment) CommentResponse {
	return CommentResponse{
		ID:           comment.ID,
		ConfessionID: comment.ConfessionID,
		Content:      comment.Content,
		AuthorName:   comment.AuthorName(),
		IsAnonymous:  comment.IsAnonymous,
		Likes:        comment.Likes,
		CreatedAt:    comment.CreatedAt,
	}
}

// CreateComment adds a comment to a confession and notifies its recipient
// POST /api/v1/confessions/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Content     string `json:"content" binding:"required,min=1,max=2000"`
		IsAnonymous bool   `json:"is_anonymous"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if blocked := h.filter.Check(req.Content); len(blocked) > 0 {
		util.RespondWithAPIError(c, apierrors.ContentBlocked("Comment contains prohibited language"))
		return
	}

	var confession models.Confession
	if err := database.DB.First(&confession, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "confession")
		return
	}
	if confession.IsHidden {
		util.RespondNotFound(c, "confession")
		return
	}

	comment := models.Comment{
		ConfessionID: confession.ID,
		AuthorID:     user.ID,
		Content:      req.Content,
		IsAnonymous:  req.IsAnonymous,
	}
	if err := database.DB.Create(&comment).Error; err != nil {
		logger.ErrorWithFields("Failed to create comment", err)
		util.RespondInternalError(c, "Failed to create comment")
		return
	}
	comment.Author = *user

	if err := database.DB.Model(&models.User{}).Where("id = ?", user.ID).
		UpdateColumn("stats_total_comments", gorm.Expr("stats_total_comments + 1")).Error; err != nil {
		logger.WarnWithFields("Failed to increment commenter stats", err)
	}

	metrics.Get().CommentsCreated.WithLabelValues(confession.CollegeName).Inc()

	if h.notifier != nil && confession.RecipientID != user.ID {
		confessionID := confession.ID
		commentID := comment.ID
		actorID := user.ID
		if _, err := h.notifier.Create(c.Request.Context(), notify.Input{
			RecipientID:  confession.RecipientID,
			Type:         models.NotificationComment,
			Template:     notify.NewComment(comment.AuthorName()),
			ConfessionID: &confessionID,
			CommentID:    &commentID,
			ActorID:      &actorID,
		}); err != nil {
			logger.WarnWithFields("Failed to notify confession recipient of comment", err)
		}
	}

	if h.hub != nil {
		h.hub.SendToCollege(confession.CollegeName, websocket.NewMessage(
			websocket.MessageTypeNewComment,
			gin.H{"confession_id": confession.ID, "comment_id": comment.ID},
		))
	}

	c.JSON(http.StatusCreated, gin.H{"comment": toCommentResponse(&comment)})
}

// ListComments returns the visible comments on a confession, oldest first
// GET /api/v1/confessions/:id/comments
func (h *Handlers) ListComments(c *gin.Context) {
	var confession models.Confession
	if err := database.DB.First(&confession, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "confession")
		return
	}

	page, perPage := util.ParsePagination(c.Query("page"), c.Query("per_page"))

	var total int64
	database.DB.Model(&models.Comment{}).
		Where("confession_id = ? AND is_hidden = ?", confession.ID, false).
		Count(&total)

	var comments []models.Comment
	if err := database.DB.Preload("Author").
		Where("confession_id = ? AND is_hidden = ?", confession.ID, false).
		Order("created_at ASC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&comments).Error; err != nil {
		util.RespondInternalError(c, "Failed to load comments")
		return
	}

	responses := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		responses = append(responses, toCommentResponse(&comments[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": responses,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// GetComment returns a single comment. Hidden comments 404 for everyone
// but the comment's author.
// GET /api/v1/comments/:id
func (h *Handlers) GetComment(c *gin.Context) {
	var comment models.Comment
	if err := database.DB.Preload("Author").First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	if comment.IsHidden {
		user, ok := util.MaybeUser(c)
		if !ok || user.ID != comment.AuthorID {
			util.RespondNotFound(c, "comment")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"comment": toCommentResponse(&comment)})
}

// UpdateComment edits a comment's content. Author only.
// PUT /api/v1/comments/:id
func (h *Handlers) UpdateComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,min=1,max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var comment models.Comment
	if err := database.DB.Preload("Author").First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}
	if comment.AuthorID != user.ID {
		util.RespondForbidden(c, "Only the author can edit a comment")
		return
	}

	if blocked := h.filter.Check(req.Content); len(blocked) > 0 {
		util.RespondWithAPIError(c, apierrors.ContentBlocked("Comment contains prohibited language"))
		return
	}

	comment.Content = req.Content
	if err := database.DB.Model(&comment).Update("content", req.Content).Error; err != nil {
		util.RespondInternalError(c, "Failed to update comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"comment": toCommentResponse(&comment)})
}

// DeleteComment removes a comment. The author, the confession's recipient,
// or an admin may delete.
// DELETE /api/v1/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var comment models.Comment
	if err := database.DB.Preload("Confession").First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	allowed := comment.AuthorID == user.ID ||
		comment.Confession.RecipientID == user.ID ||
		user.IsAdmin || user.IsSuperAdmin()
	if !allowed {
		util.RespondForbidden(c, "Not allowed to delete this comment")
		return
	}

	if err := database.DB.Delete(&comment).Error; err != nil {
		util.RespondInternalError(c, "Failed to delete comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}

// LikeComment increments a comment's like counter and notifies its author
// POST /api/v1/comments/:id/like
func (h *Handlers) LikeComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var comment models.Comment
	if err := database.DB.First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	if err := database.DB.Model(&comment).
		UpdateColumn("likes", gorm.Expr("likes + 1")).Error; err != nil {
		util.RespondInternalError(c, "Failed to like comment")
		return
	}
	comment.Likes++

	if h.notifier != nil && comment.AuthorID != user.ID {
		commentID := comment.ID
		confessionID := comment.ConfessionID
		actorID := user.ID
		if _, err := h.notifier.Create(c.Request.Context(), notify.Input{
			RecipientID:  comment.AuthorID,
			Type:         models.NotificationLike,
			Template:     notify.CommentLiked(),
			ConfessionID: &confessionID,
			CommentID:    &commentID,
			ActorID:      &actorID,
		}); err != nil {
			logger.WarnWithFields("Failed to notify comment author of like", err)
		}
	}

	if h.hub != nil {
		h.hub.SendToUser(comment.AuthorID, websocket.NewMessage(
			websocket.MessageTypeCommentLiked,
			gin.H{"comment_id": comment.ID, "likes": comment.Likes},
		))
	}

	c.JSON(http.StatusOK, gin.H{"likes": comment.Likes})
}

// ReportComment files a report against a comment. Comments hide at a
// lower threshold than confessions.
// POST /api/v1/comments/:id/report
func (h *Handlers) ReportComment(c *gin.Context) {
	_, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var comment models.Comment
	if err := database.DB.First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"is_reported":  true,
			"report_count": gorm.Expr("report_count + 1"),
		}
		if err := tx.Model(&comment).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.First(&comment, "id = ?", comment.ID).Error; err != nil {
			return err
		}
		if comment.ReportCount >= models.CommentHideThreshold && !comment.IsHidden {
			if err := tx.Model(&comment).Update("is_hidden", true).Error; err != nil {
				return err
			}
			comment.IsHidden = true
		}
		return nil
	})
	if err != nil {
		logger.ErrorWithFields("Failed to report comment", err)
		util.RespondInternalError(c, "Failed to report comment")
		return
	}

	metrics.Get().ReportsTotal.WithLabelValues("comment").Inc()
	if comment.IsHidden {
		metrics.Get().ContentHidden.WithLabelValues("comment").Inc()
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "report filed",
		"report_count": comment.ReportCount,
		"is_hidden":    comment.IsHidden,
	})
}
