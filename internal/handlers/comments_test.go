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

type CommentHandlerTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers
}

func (s *CommentHandlerTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.handlers = newTestHandlers()

	s.router = gin.New()
	api := s.router.Group("/api/v1")
	api.Use(testAuthMiddleware(true))
	api.POST("/confessions/:id/comments", s.handlers.CreateComment)
	api.GET("/confessions/:id/comments", s.handlers.ListComments)
	api.PUT("/comments/:id", s.handlers.UpdateComment)
	api.DELETE("/comments/:id", s.handlers.DeleteComment)
	api.POST("/comments/:id/like", s.handlers.LikeComment)
	api.POST("/comments/:id/report", s.handlers.ReportComment)
}

func (s *CommentHandlerTestSuite) TestCreateCommentNotifiesRecipient() {
	recipient := createTestUser(s.T(), "stanford")
	commenter := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "first confession")

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/comments",
		commenter.ID, gin.H{"content": "this is so relatable"})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	body := decodeBody(s.T(), w)
	comment := body["comment"].(map[string]interface{})
	assert.Equal(s.T(), commenter.Username, comment["author_name"])

	var notification models.Notification
	require.NoError(s.T(), s.db.First(&notification, "recipient_id = ?", recipient.ID).Error)
	assert.Equal(s.T(), models.NotificationComment, notification.Type)
	require.NotNil(s.T(), notification.CommentID)
	assert.Equal(s.T(), comment["id"], *notification.CommentID)
}

func (s *CommentHandlerTestSuite) TestAnonymousCommentHidesAuthor() {
	recipient := createTestUser(s.T(), "stanford")
	commenter := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "secret")

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/comments",
		commenter.ID, gin.H{"content": "me too honestly", "is_anonymous": true})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	body := decodeBody(s.T(), w)
	assert.Equal(s.T(), "Anonymous", body["comment"].(map[string]interface{})["author_name"])
}

func (s *CommentHandlerTestSuite) TestCommentOnOwnConfessionSkipsNotification() {
	recipient := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "talking to myself")

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/comments",
		recipient.ID, gin.H{"content": "replying to my own inbox"})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	var notifications int64
	s.db.Model(&models.Notification{}).Count(&notifications)
	assert.Zero(s.T(), notifications)
}

func (s *CommentHandlerTestSuite) TestProfaneCommentBlocked() {
	recipient := createTestUser(s.T(), "stanford")
	commenter := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "innocent")

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/comments",
		commenter.ID, gin.H{"content": "what an asshole"})
	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)
}

func (s *CommentHandlerTestSuite) TestReportThresholdHidesComment() {
	recipient := createTestUser(s.T(), "stanford")
	commenter := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "target")

	comment := &models.Comment{
		ConfessionID: confession.ID,
		AuthorID:     commenter.ID,
		Content:      "contested comment",
	}
	require.NoError(s.T(), s.db.Create(comment).Error)

	for i := 0; i < models.CommentHideThreshold; i++ {
		reporter := createTestUser(s.T(), "stanford")
		w := doJSON(s.router, http.MethodPost, "/api/v1/comments/"+comment.ID+"/report",
			reporter.ID, nil)
		require.Equal(s.T(), http.StatusCreated, w.Code)
	}

	var reloaded models.Comment
	require.NoError(s.T(), s.db.First(&reloaded, "id = ?", comment.ID).Error)
	assert.True(s.T(), reloaded.IsHidden)

	// Hidden comments disappear from the listing
	w := doJSON(s.router, http.MethodGet, "/api/v1/confessions/"+confession.ID+"/comments",
		recipient.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	body := decodeBody(s.T(), w)
	assert.Empty(s.T(), body["comments"].([]interface{}))
}

func (s *CommentHandlerTestSuite) TestLikeCommentNotifiesAuthor() {
	recipient := createTestUser(s.T(), "stanford")
	commenter := createTestUser(s.T(), "stanford")
	liker := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "liked thread")

	comment := &models.Comment{
		ConfessionID: confession.ID,
		AuthorID:     commenter.ID,
		Content:      "great take",
	}
	require.NoError(s.T(), s.db.Create(comment).Error)

	w := doJSON(s.router, http.MethodPost, "/api/v1/comments/"+comment.ID+"/like", liker.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)

	body := decodeBody(s.T(), w)
	assert.EqualValues(s.T(), 1, body["likes"])

	var notification models.Notification
	require.NoError(s.T(), s.db.First(&notification, "recipient_id = ?", commenter.ID).Error)
	assert.Equal(s.T(), models.NotificationLike, notification.Type)
}

func (s *CommentHandlerTestSuite) TestDeletePermissions() {
	recipient := createTestUser(s.T(), "stanford")
	commenter := createTestUser(s.T(), "stanford")
	stranger := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "thread")

	comment := &models.Comment{
		ConfessionID: confession.ID,
		AuthorID:     commenter.ID,
		Content:      "deletable",
	}
	require.NoError(s.T(), s.db.Create(comment).Error)

	w := doJSON(s.router, http.MethodDelete, "/api/v1/comments/"+comment.ID, stranger.ID, nil)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	// The confession's recipient moderates their own thread
	w = doJSON(s.router, http.MethodDelete, "/api/v1/comments/"+comment.ID, recipient.ID, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func TestCommentHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(CommentHandlerTestSuite))
}
