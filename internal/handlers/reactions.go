package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/metrics"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/notify"
	"github.com/campusconfessions/backend/internal/util"
	"github.com/campusconfessions/backend/internal/websocket"
)

// allowedReactions is the default emoji palette. Users whose tier grants
// custom reactions may send anything.
var allowedReactions = map[string]bool{
	"❤️": true,
	"😂": true,
	"😮": true,
	"😢": true,
	"😡": true,
	"🔥": true,
	"👎": true,
}

type reactionRequest struct {
	Emoji string `json:"emoji" binding:"required,max=16"`
}

// AddReaction increments the emoji counter on a confession. The update
// runs inside a transaction with the row locked so concurrent reactions
// never lose counts.
// POST /api/v1/confessions/:id/reactions
func (h *Handlers) AddReaction(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if !allowedReactions[req.Emoji] && !user.Preferences.CustomReactions {
		util.RespondValidationError(c, "emoji", "Reaction not in the allowed set")
		return
	}

	var confession models.Confession
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&confession, "id = ?", c.Param("id")).Error; err != nil {
			return err
		}
		if confession.Reactions == nil {
			confession.Reactions = models.ReactionMap{}
		}
		confession.Reactions[req.Emoji]++
		return tx.Model(&confession).Update("reactions", confession.Reactions).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondNotFound(c, "confession")
			return
		}
		logger.ErrorWithFields("Failed to add reaction", err)
		util.RespondInternalError(c, "Failed to add reaction")
		return
	}

	metrics.Get().ReactionsTotal.WithLabelValues(req.Emoji).Inc()

	if h.notifier != nil && confession.RecipientID != user.ID {
		confessionID := confession.ID
		actorID := user.ID
		if _, err := h.notifier.Create(c.Request.Context(), notify.Input{
			RecipientID:  confession.RecipientID,
			Type:         models.NotificationReaction,
			Template:     notify.NewReaction(req.Emoji),
			ConfessionID: &confessionID,
			ActorID:      &actorID,
		}); err != nil {
			logger.WarnWithFields("Failed to notify recipient of reaction", err)
		}
	}

	if h.hub != nil {
		h.hub.SendToCollege(confession.CollegeName, websocket.NewMessage(
			websocket.MessageTypeNewReaction,
			websocket.ConfessionPayload{
				ConfessionID: confession.ID,
				College:      confession.CollegeName,
				Reaction:     req.Emoji,
			},
		))
	}

	c.JSON(http.StatusOK, gin.H{"reactions": confession.Reactions})
}

// RemoveReaction decrements an emoji counter, dropping the key at zero
// DELETE /api/v1/confessions/:id/reactions
func (h *Handlers) RemoveReaction(c *gin.Context) {
	_, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var confession models.Confession
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&confession, "id = ?", c.Param("id")).Error; err != nil {
			return err
		}
		if confession.Reactions[req.Emoji] <= 0 {
			return nil
		}
		confession.Reactions[req.Emoji]--
		if confession.Reactions[req.Emoji] == 0 {
			delete(confession.Reactions, req.Emoji)
		}
		return tx.Model(&confession).Update("reactions", confession.Reactions).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondNotFound(c, "confession")
			return
		}
		logger.ErrorWithFields("Failed to remove reaction", err)
		util.RespondInternalError(c, "Failed to remove reaction")
		return
	}

	c.JSON(http.StatusOK, gin.H{"reactions": confession.Reactions})
}

// lockForUpdate applies a row lock on dialects that support it. SQLite,
// used in tests, serializes writes on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
