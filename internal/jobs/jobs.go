package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campusconfessions/backend/internal/cache"
	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/notify"
	ws "github.com/campusconfessions/backend/internal/websocket"
)

const (
	// Notifications older than this are pruned once read
	notificationRetention = 90 * 24 * time.Hour

	// Users get an expiry warning this close to the end of their term
	expiryWarningWindow = 3 * 24 * time.Hour

	// Top ranks worth announcing to their holders
	rankingNotifyCutoff = 3
)

// Maintenance bundles the dependencies the periodic jobs need
type Maintenance struct {
	notifier *notify.Service
	hub      *ws.Hub
}

// NewMaintenance creates the job set. Both dependencies may be nil.
func NewMaintenance(notifier *notify.Service, hub *ws.Hub) *Maintenance {
	return &Maintenance{notifier: notifier, hub: hub}
}

// RegisterAll wires the standard schedule into a scheduler
func (m *Maintenance) RegisterAll(s *Scheduler) {
	s.Register("recompute_rankings", time.Hour, m.RecomputeRankings)
	s.Register("expire_promotions", 15*time.Minute, m.ExpirePromotions)
	s.Register("prune_notifications", 24*time.Hour, m.PruneNotifications)
	s.Register("expire_subscriptions", time.Hour, m.ExpireSubscriptions)
}

// RecomputeRankings rebuilds the cached weekly and monthly ranks on user
// stats, college by college, and tells users who made the top spots.
func (m *Maintenance) RecomputeRankings(ctx context.Context) error {
	var colleges []string
	if err := database.DB.WithContext(ctx).Model(&models.User{}).
		Distinct("college_name").
		Pluck("college_name", &colleges).Error; err != nil {
		return fmt.Errorf("failed to list colleges: %w", err)
	}

	for _, college := range colleges {
		if err := m.recomputeCollege(ctx, college, "weekly", 7*24*time.Hour); err != nil {
			logger.Error("Ranking recompute failed",
				zap.String("college", college), zap.String("period", "weekly"), zap.Error(err))
		}
		if err := m.recomputeCollege(ctx, college, "monthly", 30*24*time.Hour); err != nil {
			logger.Error("Ranking recompute failed",
				zap.String("college", college), zap.String("period", "monthly"), zap.Error(err))
		}
		// Cached leaderboards are stale now
		if rc := cache.GetRedisClient(); rc != nil {
			if err := rc.Del(ctx, cache.KeyRankings+college+":weekly",
				cache.KeyRankings+college+":monthly"); err != nil {
				logger.WarnWithFields("Failed to invalidate ranking cache", err)
			}
		}
	}
	return nil
}

func (m *Maintenance) recomputeCollege(ctx context.Context, college, period string, window time.Duration) error {
	since := time.Now().Add(-window)

	type row struct {
		RecipientID string
		Likes       int
	}
	var rows []row
	err := database.DB.WithContext(ctx).Model(&models.Like{}).
		Select("confessions.recipient_id, COUNT(*) as likes").
		Joins("JOIN confessions ON confessions.id = likes.confession_id").
		Where("likes.college_name = ? AND likes.created_at > ?", college, since).
		Group("confessions.recipient_id").
		Order("likes DESC").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	column := "stats_weekly_rank"
	if period == "monthly" {
		column = "stats_monthly_rank"
	}

	// Clear ranks for everyone in the college, then set the new ones
	if err := database.DB.WithContext(ctx).Model(&models.User{}).
		Where("college_name = ?", college).
		UpdateColumn(column, 0).Error; err != nil {
		return err
	}

	for i, r := range rows {
		rank := i + 1
		result := database.DB.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", r.RecipientID)
		var previous models.User
		if err := database.DB.WithContext(ctx).
			Select("id", "stats_weekly_rank", "stats_monthly_rank").
			First(&previous, "id = ?", r.RecipientID).Error; err != nil {
			continue
		}
		if err := result.UpdateColumn(column, rank).Error; err != nil {
			logger.WarnWithFields("Failed to store rank", err)
			continue
		}

		prevRank := previous.Stats.WeeklyRank
		if period == "monthly" {
			prevRank = previous.Stats.MonthlyRank
		}
		if rank <= rankingNotifyCutoff && rank != prevRank && m.notifier != nil {
			if _, err := m.notifier.Create(ctx, notify.Input{
				RecipientID: r.RecipientID,
				Type:        models.NotificationSystem,
				Template:    notify.RankingUpdate(rank, college),
				Data:        map[string]interface{}{"period": period},
			}); err != nil {
				logger.WarnWithFields("Failed to send ranking notification", err)
			}
		}
	}

	if m.hub != nil {
		m.hub.SendToCollege(college, ws.NewMessage(ws.MessageTypeRankingUpdate,
			map[string]interface{}{"college": college, "period": period}))
	}
	return nil
}

// ExpirePromotions deactivates promotions whose end date has passed
func (m *Maintenance) ExpirePromotions(ctx context.Context) error {
	result := database.DB.WithContext(ctx).Model(&models.Promotion{}).
		Where("is_active = ? AND end_date < ?", true, time.Now()).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to expire promotions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		logger.InfoWithFields("Expired promotions",
			zap.Int64("count", result.RowsAffected))
	}
	return nil
}

// PruneNotifications deletes read notifications past the retention window
func (m *Maintenance) PruneNotifications(ctx context.Context) error {
	if m.notifier == nil {
		return nil
	}
	pruned, err := m.notifier.PruneOlderThan(time.Now().Add(-notificationRetention))
	if err != nil {
		return fmt.Errorf("failed to prune notifications: %w", err)
	}
	if pruned > 0 {
		logger.InfoWithFields("Pruned notifications", zap.Int64("count", pruned))
	}
	return nil
}

// ExpireSubscriptions downgrades lapsed paid tiers to basic and warns
// users whose term ends soon
func (m *Maintenance) ExpireSubscriptions(ctx context.Context) error {
	now := time.Now()

	// Warn users approaching expiry. The warning is sent at most once per
	// job interval per user, keyed in Redis.
	var expiring []models.User
	if err := database.DB.WithContext(ctx).
		Where("subscription_tier <> ? AND subscription_expires_at IS NOT NULL", models.TierBasic).
		Where("subscription_expires_at > ? AND subscription_expires_at < ?", now, now.Add(expiryWarningWindow)).
		Find(&expiring).Error; err != nil {
		return fmt.Errorf("failed to find expiring subscriptions: %w", err)
	}
	for _, user := range expiring {
		if m.notifier == nil {
			break
		}
		if rc := cache.GetRedisClient(); rc != nil {
			key := "subscription:warned:" + user.ID
			if n, err := rc.Exists(ctx, key); err == nil && n > 0 {
				continue
			}
			_ = rc.Set(ctx, key, "1", 24*time.Hour)
		}
		daysLeft := int(time.Until(*user.Subscription.ExpiresAt).Hours()/24) + 1
		if _, err := m.notifier.Create(ctx, notify.Input{
			RecipientID: user.ID,
			Type:        models.NotificationSystem,
			Template:    notify.SubscriptionExpiring(string(user.Subscription.Tier), daysLeft),
		}); err != nil {
			logger.WarnWithFields("Failed to send expiry warning", err)
		}
	}

	// Downgrade the lapsed ones
	var lapsed []models.User
	if err := database.DB.WithContext(ctx).
		Where("subscription_tier <> ? AND subscription_expires_at IS NOT NULL AND subscription_expires_at < ?",
			models.TierBasic, now).
		Find(&lapsed).Error; err != nil {
		return fmt.Errorf("failed to find lapsed subscriptions: %w", err)
	}
	for _, user := range lapsed {
		updates := map[string]interface{}{
			"subscription_tier":             models.TierBasic,
			"subscription_expires_at":       nil,
			"subscription_allowed_colleges": nil,
			"subscription_message_count":    0,
		}
		if err := database.DB.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			logger.Error("Failed to downgrade lapsed subscription",
				zap.Error(err), logger.WithUserID(user.ID))
			continue
		}
		if m.notifier != nil {
			if _, err := m.notifier.Create(ctx, notify.Input{
				RecipientID: user.ID,
				Type:        models.NotificationSystem,
				Template:    notify.SubscriptionChanged(string(models.TierBasic)),
			}); err != nil {
				logger.WarnWithFields("Failed to send downgrade notification", err)
			}
		}
	}
	if len(lapsed) > 0 {
		logger.InfoWithFields("Downgraded lapsed subscriptions",
			zap.Int("count", len(lapsed)))
	}
	return nil
}
