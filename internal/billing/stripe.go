// Package billing integrates Stripe checkout and subscription webhooks
// with the subscription tiers stored on users.
package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/models"
)

var (
	ErrNoSubscription = errors.New("user has no active subscription")
	ErrUnknownTier    = errors.New("unknown subscription tier")
)

// Service wraps the Stripe API for subscription management
type Service struct {
	webhookSecret string
	frontendURL   string

	// priceToTier maps Stripe price IDs to subscription tiers
	priceToTier map[string]models.SubscriptionTier
	tierToPrice map[models.SubscriptionTier]string
}

// NewService configures the Stripe client. Price IDs come from the
// STRIPE_PRICE_SILVER, STRIPE_PRICE_GOLD and STRIPE_PRICE_PLATINUM
// environment variables.
func NewService(secretKey, webhookSecret, frontendURL string) *Service {
	stripe.Key = secretKey

	tierToPrice := map[models.SubscriptionTier]string{
		models.TierSilver:   os.Getenv("STRIPE_PRICE_SILVER"),
		models.TierGold:     os.Getenv("STRIPE_PRICE_GOLD"),
		models.TierPlatinum: os.Getenv("STRIPE_PRICE_PLATINUM"),
	}
	priceToTier := make(map[string]models.SubscriptionTier, len(tierToPrice))
	for tier, price := range tierToPrice {
		if price != "" {
			priceToTier[price] = tier
		}
	}

	return &Service{
		webhookSecret: webhookSecret,
		frontendURL:   frontendURL,
		priceToTier:   priceToTier,
		tierToPrice:   tierToPrice,
	}
}

// TierForPrice resolves a Stripe price ID to a subscription tier
func (s *Service) TierForPrice(priceID string) (models.SubscriptionTier, bool) {
	tier, ok := s.priceToTier[priceID]
	return tier, ok
}

// ensureCustomer returns the user's Stripe customer ID, creating the
// customer on first use
func (s *Service) ensureCustomer(user *models.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Metadata: map[string]string{
			"user_id": user.ID,
			"college": user.CollegeName,
		},
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe customer: %w", err)
	}

	user.StripeCustomerID = &cust.ID
	if err := database.DB.Model(user).Update("stripe_customer_id", cust.ID).Error; err != nil {
		return "", fmt.Errorf("failed to store stripe customer id: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession starts a Stripe Checkout flow for upgrading to
// the given tier and returns the hosted checkout URL
func (s *Service) CreateCheckoutSession(user *models.User, tier models.SubscriptionTier) (string, error) {
	priceID, ok := s.tierToPrice[tier]
	if !ok || priceID == "" {
		return "", ErrUnknownTier
	}

	customerID, err := s.ensureCustomer(user)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.frontendURL + "/subscription/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.frontendURL + "/subscription/cancelled"),
		Metadata: map[string]string{
			"user_id": user.ID,
			"tier":    string(tier),
		},
	}

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CancelSubscription cancels the user's Stripe subscription at period end
// and schedules the downgrade for when the paid period runs out
func (s *Service) CancelSubscription(user *models.User) error {
	if user.StripeSubscriptionID == nil || *user.StripeSubscriptionID == "" {
		return ErrNoSubscription
	}

	_, err := subscription.Update(*user.StripeSubscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	logger.Log.Info("Subscription cancellation scheduled",
		logger.WithUserID(user.ID),
		zap.String("subscription_id", *user.StripeSubscriptionID),
	)
	return nil
}

// WebhookResult reports what a processed webhook event changed
type WebhookResult struct {
	EventType string
	UserID    string
	Tier      models.SubscriptionTier
}

// HandleWebhook verifies and processes a Stripe webhook payload.
// Unhandled event types are acknowledged without side effects.
func (s *Service) HandleWebhook(payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session: %w", err)
		}
		return s.handleCheckoutCompleted(&sess)

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription: %w", err)
		}
		return s.handleSubscriptionUpdated(&sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription: %w", err)
		}
		return s.handleSubscriptionDeleted(&sub)
	}

	return &WebhookResult{EventType: string(event.Type)}, nil
}

func (s *Service) handleCheckoutCompleted(sess *stripe.CheckoutSession) (*WebhookResult, error) {
	userID := sess.Metadata["user_id"]
	tier := models.SubscriptionTier(sess.Metadata["tier"])
	if userID == "" || tier == "" {
		return nil, errors.New("checkout session missing user metadata")
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("user not found for checkout: %w", err)
	}

	expires := time.Now().AddDate(0, 1, 0)
	updates := map[string]interface{}{
		"subscription_tier":          tier,
		"subscription_expires_at":    expires,
		"subscription_message_count": 0,
	}
	if sess.Subscription != nil {
		updates["stripe_subscription_id"] = sess.Subscription.ID
	}
	if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to apply subscription: %w", err)
	}

	logger.Log.Info("Subscription activated",
		logger.WithUserID(userID),
		zap.String("tier", string(tier)),
	)
	return &WebhookResult{EventType: "checkout.session.completed", UserID: userID, Tier: tier}, nil
}

func (s *Service) handleSubscriptionUpdated(sub *stripe.Subscription) (*WebhookResult, error) {
	var user models.User
	err := database.DB.First(&user, "stripe_subscription_id = ?", sub.ID).Error
	if err != nil {
		// Subscription not yet linked to a user; checkout webhook will do it
		return &WebhookResult{EventType: "customer.subscription.updated"}, nil
	}

	// Resolve the tier from the subscription's price
	var tier models.SubscriptionTier
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.Price != nil {
				if t, ok := s.priceToTier[item.Price.ID]; ok {
					tier = t
					break
				}
			}
		}
	}
	if tier == "" {
		return &WebhookResult{EventType: "customer.subscription.updated", UserID: user.ID}, nil
	}

	updates := map[string]interface{}{"subscription_tier": tier}
	if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update subscription tier: %w", err)
	}

	return &WebhookResult{EventType: "customer.subscription.updated", UserID: user.ID, Tier: tier}, nil
}

func (s *Service) handleSubscriptionDeleted(sub *stripe.Subscription) (*WebhookResult, error) {
	var user models.User
	err := database.DB.First(&user, "stripe_subscription_id = ?", sub.ID).Error
	if err != nil {
		return &WebhookResult{EventType: "customer.subscription.deleted"}, nil
	}

	updates := map[string]interface{}{
		"subscription_tier":       models.TierBasic,
		"subscription_expires_at": nil,
		"stripe_subscription_id":  nil,
	}
	if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to downgrade subscription: %w", err)
	}

	logger.Log.Info("Subscription ended, user downgraded to basic",
		logger.WithUserID(user.ID),
	)
	return &WebhookResult{EventType: "customer.subscription.deleted", UserID: user.ID, Tier: models.TierBasic}, nil
}
