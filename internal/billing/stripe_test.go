package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusconfessions/backend/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Setenv("STRIPE_PRICE_SILVER", "price_silver_123")
	t.Setenv("STRIPE_PRICE_GOLD", "price_gold_456")
	t.Setenv("STRIPE_PRICE_PLATINUM", "price_plat_789")
	return NewService("sk_test_fake", "whsec_fake", "http://localhost:5173")
}

func TestTierForPrice(t *testing.T) {
	s := newTestService(t)

	tier, ok := s.TierForPrice("price_silver_123")
	require.True(t, ok)
	assert.Equal(t, models.TierSilver, tier)

	tier, ok = s.TierForPrice("price_gold_456")
	require.True(t, ok)
	assert.Equal(t, models.TierGold, tier)

	tier, ok = s.TierForPrice("price_plat_789")
	require.True(t, ok)
	assert.Equal(t, models.TierPlatinum, tier)

	_, ok = s.TierForPrice("price_unknown")
	assert.False(t, ok)
}

func TestCheckoutRejectsUnknownTier(t *testing.T) {
	s := newTestService(t)

	user := &models.User{ID: "u1", Email: "a@b.edu"}
	_, err := s.CreateCheckoutSession(user, models.SubscriptionTier("diamond"))
	assert.ErrorIs(t, err, ErrUnknownTier)

	// Basic has no price and cannot be checked out
	_, err = s.CreateCheckoutSession(user, models.TierBasic)
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestCancelWithoutSubscription(t *testing.T) {
	s := newTestService(t)

	err := s.CancelSubscription(&models.User{ID: "u1"})
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s := newTestService(t)

	_, err := s.HandleWebhook([]byte(`{"type":"checkout.session.completed"}`), "bad-signature")
	assert.Error(t, err)
}
