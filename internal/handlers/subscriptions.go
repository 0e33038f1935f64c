package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusconfessions/backend/internal/billing"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/notify"
	"github.com/campusconfessions/backend/internal/util"
)

const maxWebhookBodyBytes = 64 * 1024

// GetPlans lists the purchasable subscription tiers
// GET /api/v1/subscriptions/plans
func (h *Handlers) GetPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"plans": []gin.H{
			{"tier": models.TierBasic, "monthly_quota": models.TierBasic.MessageQuota(), "cross_college": false},
			{"tier": models.TierSilver, "monthly_quota": models.TierSilver.MessageQuota(), "cross_college": false},
			{"tier": models.TierGold, "monthly_quota": models.TierGold.MessageQuota(), "cross_college": false},
			{"tier": models.TierPlatinum, "monthly_quota": 0, "cross_college": true},
		},
	})
}

// Subscribe starts a Stripe checkout session for a paid tier
// POST /api/v1/subscriptions
func (h *Handlers) Subscribe(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	if h.billing == nil {
		util.RespondInternalError(c, "Billing is not configured")
		return
	}

	var req struct {
		Tier string `json:"tier" binding:"required,oneof=silver gold platinum"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	checkoutURL, err := h.billing.CreateCheckoutSession(user, models.SubscriptionTier(req.Tier))
	if err != nil {
		if errors.Is(err, billing.ErrUnknownTier) {
			util.RespondValidationError(c, "tier", "Unknown subscription tier")
			return
		}
		logger.ErrorWithFields("Failed to create checkout session", err)
		util.RespondInternalError(c, "Failed to start checkout")
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkout_url": checkoutURL})
}

// Unsubscribe cancels the caller's subscription at period end. The tier
// stays active until Stripe confirms the deletion via webhook.
// DELETE /api/v1/subscriptions
func (h *Handlers) Unsubscribe(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	if h.billing == nil {
		util.RespondInternalError(c, "Billing is not configured")
		return
	}

	if err := h.billing.CancelSubscription(user); err != nil {
		if errors.Is(err, billing.ErrNoSubscription) {
			util.RespondNotFound(c, "subscription")
			return
		}
		logger.ErrorWithFields("Failed to cancel subscription", err)
		util.RespondInternalError(c, "Failed to cancel subscription")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "subscription will end at period close"})
}

// StripeWebhook applies Stripe subscription lifecycle events. Signature
// verification happens before anything is trusted.
// POST /api/v1/webhooks/stripe
func (h *Handlers) StripeWebhook(c *gin.Context) {
	if h.billing == nil {
		util.RespondInternalError(c, "Billing is not configured")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		util.RespondBadRequest(c, "Failed to read webhook body")
		return
	}

	result, err := h.billing.HandleWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logger.WarnWithFields("Rejected Stripe webhook", err)
		util.RespondBadRequest(c, "Invalid webhook")
		return
	}

	if result != nil && result.UserID != "" && h.notifier != nil {
		if _, err := h.notifier.Create(c.Request.Context(), notify.Input{
			RecipientID: result.UserID,
			Type:        models.NotificationSystem,
			Template:    notify.SubscriptionChanged(string(result.Tier)),
		}); err != nil {
			logger.WarnWithFields("Failed to notify user of subscription change", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
