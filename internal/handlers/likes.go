package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/metrics"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/notify"
	"github.com/campusconfessions/backend/internal/util"
	"github.com/campusconfessions/backend/internal/websocket"
)

// LikeConfession records a like. At most one like per user per confession;
// the counter moves atomically alongside the Like row.
// POST /api/v1/confessions/:id/like
func (h *Handlers) LikeConfession(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var confession models.Confession
	if err := database.DB.First(&confession, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "confession")
		return
	}

	like := models.Like{
		UserID:       user.ID,
		ConfessionID: confession.ID,
		CollegeName:  confession.CollegeName,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Like{}).
			Where("user_id = ? AND confession_id = ?", user.ID, confession.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return gorm.ErrDuplicatedKey
		}
		if err := tx.Create(&like).Error; err != nil {
			return err
		}
		if err := tx.Model(&confession).
			UpdateColumn("likes", gorm.Expr("likes + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", confession.RecipientID).
			UpdateColumn("stats_total_likes", gorm.Expr("stats_total_likes + 1")).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			util.RespondConflict(c, "like")
			return
		}
		logger.ErrorWithFields("Failed to like confession", err)
		util.RespondInternalError(c, "Failed to like confession")
		return
	}
	confession.Likes++

	metrics.Get().LikesTotal.WithLabelValues(confession.CollegeName).Inc()

	if h.notifier != nil && confession.RecipientID != user.ID {
		confessionID := confession.ID
		actorID := user.ID
		if _, err := h.notifier.Create(c.Request.Context(), notify.Input{
			RecipientID:  confession.RecipientID,
			Type:         models.NotificationLike,
			Template:     notify.ConfessionLiked(user.Username),
			ConfessionID: &confessionID,
			ActorID:      &actorID,
		}); err != nil {
			logger.WarnWithFields("Failed to notify recipient of like", err)
		}
	}

	if h.hub != nil {
		h.hub.SendToCollege(confession.CollegeName, websocket.NewMessage(
			websocket.MessageTypeConfessionLiked,
			websocket.ConfessionPayload{
				ConfessionID: confession.ID,
				College:      confession.CollegeName,
				Likes:        confession.Likes,
			},
		))
	}

	c.JSON(http.StatusCreated, gin.H{"likes": confession.Likes})
}

// UnlikeConfession removes the caller's like, if any. Removing a like that
// does not exist is a 404, and the counter only moves when a row was
// actually deleted.
// DELETE /api/v1/confessions/:id/like
func (h *Handlers) UnlikeConfession(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var confession models.Confession
	if err := database.DB.First(&confession, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "confession")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND confession_id = ?", user.ID, confession.ID).
			Delete(&models.Like{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Model(&confession).
			UpdateColumn("likes", gorm.Expr("likes - 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", confession.RecipientID).
			UpdateColumn("stats_total_likes", gorm.Expr("stats_total_likes - 1")).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "like")
			return
		}
		logger.ErrorWithFields("Failed to unlike confession", err)
		util.RespondInternalError(c, "Failed to unlike confession")
		return
	}
	confession.Likes--

	if h.hub != nil {
		h.hub.SendToCollege(confession.CollegeName, websocket.NewMessage(
			websocket.MessageTypeConfessionUnliked,
			websocket.ConfessionPayload{
				ConfessionID: confession.ID,
				College:      confession.CollegeName,
				Likes:        confession.Likes,
			},
		))
	}

	c.JSON(http.StatusOK, gin.H{"likes": confession.Likes})
}
