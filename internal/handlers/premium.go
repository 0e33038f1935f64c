package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusconfessions/backend/internal/database"
	apierrors "github.com/campusconfessions/backend/internal/errors"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/util"
)

// tierRank orders tiers for feature gating
var tierRank = map[models.SubscriptionTier]int{
	models.TierBasic:    0,
	models.TierSilver:   1,
	models.TierGold:     2,
	models.TierPlatinum: 3,
}

func tierAtLeast(user *models.User, tier models.SubscriptionTier) bool {
	return tierRank[user.Subscription.Tier] >= tierRank[tier]
}

// boostDurations maps purchasable boost packs to how long they last
var boostDurations = map[string]time.Duration{
	"spotlight": 24 * time.Hour,
	"weekend":   72 * time.Hour,
	"week":      7 * 24 * time.Hour,
}

// GetPremiumFeatures returns the feature matrix and what the caller's
// tier unlocks
// GET /api/v1/premium/features
func (h *Handlers) GetPremiumFeatures(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tier": user.Subscription.Tier,
		"features": gin.H{
			"custom_themes":    tierAtLeast(user, models.TierSilver),
			"custom_reactions": tierAtLeast(user, models.TierSilver),
			"private_vault":    tierAtLeast(user, models.TierGold),
			"boost_packs":      tierAtLeast(user, models.TierGold),
			"cross_college":    tierAtLeast(user, models.TierPlatinum),
		},
		"message_quota": user.Subscription.Tier.MessageQuota(),
	})
}

// UpdateTheme sets a custom profile theme. Silver and above.
// PUT /api/v1/premium/theme
func (h *Handlers) UpdateTheme(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	if !tierAtLeast(user, models.TierSilver) {
		util.RespondWithAPIError(c, apierrors.PaymentRequired("custom themes"))
		return
	}

	var req struct {
		Theme string `json:"theme" binding:"required,oneof=default midnight campus neon pastel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if err := database.DB.Model(user).
		Update("preferences_theme", req.Theme).Error; err != nil {
		util.RespondInternalError(c, "Failed to update theme")
		return
	}
	user.Preferences.Theme = req.Theme

	c.JSON(http.StatusOK, gin.H{"theme": req.Theme})
}

// ToggleVault turns the private vault on or off. Gold and above.
// PUT /api/v1/premium/vault
func (h *Handlers) ToggleVault(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	if !tierAtLeast(user, models.TierGold) {
		util.RespondWithAPIError(c, apierrors.PaymentRequired("private vault"))
		return
	}

	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if err := database.DB.Model(user).
		Update("preferences_has_private_vault", *req.Enabled).Error; err != nil {
		util.RespondInternalError(c, "Failed to update vault")
		return
	}
	user.Preferences.HasPrivateVault = *req.Enabled

	c.JSON(http.StatusOK, gin.H{"has_private_vault": *req.Enabled})
}

// VaultConfession hides one of the caller's received confessions from the
// public feed. It stays visible in their inbox.
// PUT /api/v1/premium/vault/confessions/:id
func (h *Handlers) VaultConfession(c *gin.Context) {
	h.setVaulted(c, true)
}

// UnvaultConfession restores a vaulted confession to the public feed.
// Confessions hidden by moderation stay hidden.
// DELETE /api/v1/premium/vault/confessions/:id
func (h *Handlers) UnvaultConfession(c *gin.Context) {
	h.setVaulted(c, false)
}

func (h *Handlers) setVaulted(c *gin.Context, hidden bool) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	if !user.Preferences.HasPrivateVault {
		util.RespondWithAPIError(c, apierrors.PaymentRequired("private vault"))
		return
	}

	var confession models.Confession
	if err := database.DB.First(&confession, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "confession")
		return
	}
	if confession.RecipientID != user.ID {
		util.RespondForbidden(c, "Only the recipient can vault a confession")
		return
	}
	if !hidden && confession.ReportCount >= models.ConfessionHideThreshold {
		util.RespondForbidden(c, "Confession was hidden by moderation")
		return
	}

	if err := database.DB.Model(&confession).Update("is_hidden", hidden).Error; err != nil {
		util.RespondInternalError(c, "Failed to update confession")
		return
	}

	c.JSON(http.StatusOK, gin.H{"confession_id": confession.ID, "is_hidden": hidden})
}

// ActivateBoost applies a visibility boost pack to the caller's profile.
// Gold and above.
// POST /api/v1/premium/boost
func (h *Handlers) ActivateBoost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	if !tierAtLeast(user, models.TierGold) {
		util.RespondWithAPIError(c, apierrors.PaymentRequired("boost packs"))
		return
	}

	var req struct {
		Pack string `json:"pack" binding:"required,oneof=spotlight weekend week"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if user.Stats.BoostEndDate != nil && user.Stats.BoostEndDate.After(time.Now()) {
		util.RespondConflict(c, "boost")
		return
	}

	endDate := time.Now().Add(boostDurations[req.Pack])
	updates := map[string]interface{}{
		"stats_boost_type":     req.Pack,
		"stats_boost_end_date": endDate,
	}
	if err := database.DB.Model(user).Updates(updates).Error; err != nil {
		util.RespondInternalError(c, "Failed to activate boost")
		return
	}

	c.JSON(http.StatusOK, gin.H{"boost_type": req.Pack, "boost_end_date": endDate})
}
