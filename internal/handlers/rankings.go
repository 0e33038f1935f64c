package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusconfessions/backend/internal/cache"
	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/metrics"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/util"
)

const rankingLimit = 50

// RankingEntry is one row of a leaderboard
type RankingEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	CollegeName string `json:"college_name"`
	Likes       int    `json:"likes"`
}

// GetRankings returns the weekly or monthly like leaderboard for the
// caller's college. Results are cached in Redis.
// GET /api/v1/rankings?period=weekly|monthly
func (h *Handlers) GetRankings(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	period := c.DefaultQuery("period", "weekly")
	var window time.Duration
	switch period {
	case "weekly":
		window = 7 * 24 * time.Hour
	case "monthly":
		window = 30 * 24 * time.Hour
	default:
		util.RespondValidationError(c, "period", "period must be weekly or monthly")
		return
	}

	cacheKey := fmt.Sprintf("%s%s:%s", cache.KeyRankings, user.CollegeName, period)
	if rc := cache.GetRedisClient(); rc != nil {
		var cached []RankingEntry
		if err := rc.GetJSON(c.Request.Context(), cacheKey, &cached); err == nil {
			metrics.Get().CacheHitsTotal.WithLabelValues("rankings").Inc()
			c.JSON(http.StatusOK, gin.H{"rankings": cached, "period": period, "cached": true})
			return
		}
		metrics.Get().CacheMissesTotal.WithLabelValues("rankings").Inc()
	}

	entries, err := ComputeRankings(user.CollegeName, window)
	if err != nil {
		logger.ErrorWithFields("Failed to compute rankings", err)
		util.RespondInternalError(c, "Failed to load rankings")
		return
	}

	if rc := cache.GetRedisClient(); rc != nil {
		if err := rc.SetJSON(c.Request.Context(), cacheKey, entries, cache.DefaultCacheTTL); err != nil {
			logger.WarnWithFields("Failed to cache rankings", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"rankings": entries, "period": period, "cached": false})
}

// GetCollegeLeaderboard ranks colleges by likes received in the window
// GET /api/v1/rankings/colleges?period=weekly|monthly
func (h *Handlers) GetCollegeLeaderboard(c *gin.Context) {
	period := c.DefaultQuery("period", "weekly")
	var window time.Duration
	switch period {
	case "weekly":
		window = 7 * 24 * time.Hour
	case "monthly":
		window = 30 * 24 * time.Hour
	default:
		util.RespondValidationError(c, "period", "period must be weekly or monthly")
		return
	}
	since := time.Now().Add(-window)

	type collegeRow struct {
		CollegeName string `json:"college_name"`
		Likes       int    `json:"likes"`
	}
	var rows []collegeRow
	if err := database.DB.Model(&models.Like{}).
		Select("college_name, COUNT(*) as likes").
		Where("created_at > ?", since).
		Group("college_name").
		Order("likes DESC").
		Limit(rankingLimit).
		Scan(&rows).Error; err != nil {
		util.RespondInternalError(c, "Failed to load college leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{"colleges": rows, "period": period})
}

// ComputeRankings builds the like leaderboard for one college over a
// window. Shared by the rankings endpoint and the recompute job.
func ComputeRankings(college string, window time.Duration) ([]RankingEntry, error) {
	since := time.Now().Add(-window)

	type row struct {
		RecipientID string
		Likes       int
	}
	var rows []row
	err := database.DB.Model(&models.Like{}).
		Select("confessions.recipient_id, COUNT(*) as likes").
		Joins("JOIN confessions ON confessions.id = likes.confession_id").
		Where("likes.college_name = ? AND likes.created_at > ?", college, since).
		Group("confessions.recipient_id").
		Order("likes DESC").
		Limit(rankingLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]RankingEntry, 0, len(rows))
	for i, r := range rows {
		var recipient models.User
		if err := database.DB.Select("id", "username", "college_name").
			First(&recipient, "id = ?", r.RecipientID).Error; err != nil {
			continue
		}
		entries = append(entries, RankingEntry{
			Rank:        i + 1,
			UserID:      recipient.ID,
			Username:    recipient.Username,
			CollegeName: recipient.CollegeName,
			Likes:       r.Likes,
		})
	}
	return entries, nil
}
