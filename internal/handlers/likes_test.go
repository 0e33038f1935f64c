package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/campusconfessions/backend/internal/models"
)

type LikeHandlerTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers
}

func (s *LikeHandlerTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.handlers = newTestHandlers()

	s.router = gin.New()
	api := s.router.Group("/api/v1")
	api.Use(testAuthMiddleware(true))
	api.POST("/confessions/:id/like", s.handlers.LikeConfession)
	api.DELETE("/confessions/:id/like", s.handlers.UnlikeConfession)
	api.POST("/confessions/:id/reactions", s.handlers.AddReaction)
	api.DELETE("/confessions/:id/reactions", s.handlers.RemoveReaction)
}

func (s *LikeHandlerTestSuite) TestLikeOncePerUser() {
	recipient := createTestUser(s.T(), "stanford")
	liker := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "like me")

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/like", liker.ID, nil)
	require.Equal(s.T(), http.StatusCreated, w.Code)
	assert.EqualValues(s.T(), 1, decodeBody(s.T(), w)["likes"])

	// Second like from the same user is rejected
	w = doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/like", liker.ID, nil)
	assert.Equal(s.T(), http.StatusConflict, w.Code)

	var reloaded models.Confession
	require.NoError(s.T(), s.db.First(&reloaded, "id = ?", confession.ID).Error)
	assert.Equal(s.T(), 1, reloaded.Likes)

	// Recipient's lifetime counter moved once
	var recipientReloaded models.User
	require.NoError(s.T(), s.db.First(&recipientReloaded, "id = ?", recipient.ID).Error)
	assert.Equal(s.T(), 1, recipientReloaded.Stats.TotalLikes)

	// Recipient got a like notification
	var notification models.Notification
	require.NoError(s.T(), s.db.First(&notification, "recipient_id = ?", recipient.ID).Error)
	assert.Equal(s.T(), models.NotificationLike, notification.Type)
}

func (s *LikeHandlerTestSuite) TestUnlikeRemovesExactlyOne() {
	recipient := createTestUser(s.T(), "stanford")
	liker := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "fickle crowd")

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/like", liker.ID, nil)
	require.Equal(s.T(), http.StatusCreated, w.Code)

	w = doJSON(s.router, http.MethodDelete, "/api/v1/confessions/"+confession.ID+"/like", liker.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.EqualValues(s.T(), 0, decodeBody(s.T(), w)["likes"])

	// Unliking again is a 404 and the counter does not go negative
	w = doJSON(s.router, http.MethodDelete, "/api/v1/confessions/"+confession.ID+"/like", liker.ID, nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)

	var reloaded models.Confession
	require.NoError(s.T(), s.db.First(&reloaded, "id = ?", confession.ID).Error)
	assert.Equal(s.T(), 0, reloaded.Likes)
}

func (s *LikeHandlerTestSuite) TestReactionAddAndRemove() {
	recipient := createTestUser(s.T(), "stanford")
	reactor := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "fire content")

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/reactions",
		reactor.ID, gin.H{"emoji": "🔥"})
	require.Equal(s.T(), http.StatusOK, w.Code)

	w = doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/reactions",
		reactor.ID, gin.H{"emoji": "🔥"})
	require.Equal(s.T(), http.StatusOK, w.Code)

	var reloaded models.Confession
	require.NoError(s.T(), s.db.First(&reloaded, "id = ?", confession.ID).Error)
	assert.Equal(s.T(), 2, reloaded.Reactions["🔥"])

	w = doJSON(s.router, http.MethodDelete, "/api/v1/confessions/"+confession.ID+"/reactions",
		reactor.ID, gin.H{"emoji": "🔥"})
	require.Equal(s.T(), http.StatusOK, w.Code)

	require.NoError(s.T(), s.db.First(&reloaded, "id = ?", confession.ID).Error)
	assert.Equal(s.T(), 1, reloaded.Reactions["🔥"])

	// Recipient got a reaction notification for each add
	var notifications int64
	s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND type = ?", recipient.ID, models.NotificationReaction).
		Count(&notifications)
	assert.EqualValues(s.T(), 2, notifications)
}

func (s *LikeHandlerTestSuite) TestFiveUsersReactAndLike() {
	recipient := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "crowd favorite")

	for i := 0; i < 5; i++ {
		user := createTestUser(s.T(), "stanford")
		w := doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/reactions",
			user.ID, gin.H{"emoji": "❤️"})
		require.Equal(s.T(), http.StatusOK, w.Code)
		w = doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/like", user.ID, nil)
		require.Equal(s.T(), http.StatusCreated, w.Code)
	}

	var reloaded models.Confession
	require.NoError(s.T(), s.db.First(&reloaded, "id = ?", confession.ID).Error)
	assert.Equal(s.T(), 5, reloaded.Reactions["❤️"])
	assert.Equal(s.T(), 5, reloaded.Likes)

	var likeRows int64
	s.db.Model(&models.Like{}).Where("confession_id = ?", confession.ID).Count(&likeRows)
	assert.EqualValues(s.T(), 5, likeRows)
}

func (s *LikeHandlerTestSuite) TestCustomReactionGated() {
	recipient := createTestUser(s.T(), "stanford")
	basic := createTestUser(s.T(), "stanford")
	custom := createTestUser(s.T(), "stanford", func(u *models.User) {
		u.Preferences.CustomReactions = true
	})
	confession := createTestConfession(s.T(), recipient, "unusual reactions")

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/reactions",
		basic.ID, gin.H{"emoji": "🦆"})
	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)

	w = doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/reactions",
		custom.ID, gin.H{"emoji": "🦆"})
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func TestLikeHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(LikeHandlerTestSuite))
}
