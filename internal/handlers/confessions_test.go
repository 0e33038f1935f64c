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

type ConfessionHandlerTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers
}

func (s *ConfessionHandlerTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.handlers = newTestHandlers()

	s.router = gin.New()
	api := s.router.Group("/api/v1")

	public := api.Group("")
	public.Use(testAuthMiddleware(false))
	public.POST("/confessions", s.handlers.CreateConfession)

	authed := api.Group("")
	authed.Use(testAuthMiddleware(true))
	authed.GET("/confessions", s.handlers.ListConfessions)
	authed.GET("/confessions/inbox", s.handlers.GetInbox)
	authed.GET("/confessions/trending", s.handlers.GetTrending)
	authed.GET("/confessions/:id", s.handlers.GetConfession)
	authed.PUT("/confessions/:id", s.handlers.UpdateConfession)
	authed.DELETE("/confessions/:id", s.handlers.DeleteConfession)
	authed.POST("/confessions/:id/report", s.handlers.ReportConfession)
}

func (s *ConfessionHandlerTestSuite) TestAnonymousLinkSubmission() {
	recipient := createTestUser(s.T(), "stanford")

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions", "", gin.H{
		"content":        "I saw you in the library and never said hi",
		"recipient_link": recipient.ConfessionLink,
	})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	body := decodeBody(s.T(), w)
	confession := body["confession"].(map[string]interface{})
	assert.Equal(s.T(), "Anonymous", confession["author_name"])
	assert.Equal(s.T(), true, confession["is_anonymous"])
	assert.Equal(s.T(), "stanford", confession["college_name"])

	// The recipient was notified
	var notifications int64
	s.db.Model(&models.Notification{}).Where("recipient_id = ?", recipient.ID).Count(&notifications)
	assert.EqualValues(s.T(), 1, notifications)

	// The recipient's counter moved
	var reloaded models.User
	require.NoError(s.T(), s.db.First(&reloaded, "id = ?", recipient.ID).Error)
	assert.Equal(s.T(), 1, reloaded.Stats.TotalConfessions)
}

func (s *ConfessionHandlerTestSuite) TestAuthenticatedSubmissionKeepsAuthorPrivate() {
	recipient := createTestUser(s.T(), "stanford")
	author := createTestUser(s.T(), "stanford")

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions", author.ID, gin.H{
		"content":      "you make thermodynamics bearable",
		"recipient_id": recipient.ID,
		"is_anonymous": true,
	})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	body := decodeBody(s.T(), w)
	confession := body["confession"].(map[string]interface{})
	assert.Equal(s.T(), "Anonymous", confession["author_name"])

	// The author is still recorded for moderation purposes
	var stored models.Confession
	require.NoError(s.T(), s.db.First(&stored, "id = ?", confession["id"]).Error)
	require.NotNil(s.T(), stored.AuthorID)
	assert.Equal(s.T(), author.ID, *stored.AuthorID)
}

func (s *ConfessionHandlerTestSuite) TestProfanityBlocked() {
	recipient := createTestUser(s.T(), "stanford")

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions", "", gin.H{
		"content":        "you are a bitch",
		"recipient_link": recipient.ConfessionLink,
	})
	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)

	var count int64
	s.db.Model(&models.Confession{}).Count(&count)
	assert.Zero(s.T(), count)
}

func (s *ConfessionHandlerTestSuite) TestCrossCollegeRequiresTier() {
	recipient := createTestUser(s.T(), "stanford")
	outsider := createTestUser(s.T(), "berkeley")

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions", outsider.ID, gin.H{
		"content":      "greetings from across the bay",
		"recipient_id": recipient.ID,
	})
	assert.Equal(s.T(), http.StatusPaymentRequired, w.Code)

	// Platinum posts anywhere
	platinum := createTestUser(s.T(), "berkeley", func(u *models.User) {
		u.Subscription.Tier = models.TierPlatinum
	})
	w = doJSON(s.router, http.MethodPost, "/api/v1/confessions", platinum.ID, gin.H{
		"content":      "greetings from across the bay",
		"recipient_id": recipient.ID,
	})
	assert.Equal(s.T(), http.StatusCreated, w.Code)
}

func (s *ConfessionHandlerTestSuite) TestQuotaEnforced() {
	recipient := createTestUser(s.T(), "stanford")
	author := createTestUser(s.T(), "stanford", func(u *models.User) {
		u.Subscription.MessageCount = models.TierBasic.MessageQuota()
	})

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions", author.ID, gin.H{
		"content":      "one more confession",
		"recipient_id": recipient.ID,
	})
	assert.Equal(s.T(), http.StatusPaymentRequired, w.Code)
}

func (s *ConfessionHandlerTestSuite) TestListExcludesHidden() {
	recipient := createTestUser(s.T(), "stanford")
	visible := createTestConfession(s.T(), recipient, "visible one")
	hidden := createTestConfession(s.T(), recipient, "hidden one")
	require.NoError(s.T(), s.db.Model(hidden).Update("is_hidden", true).Error)

	w := doJSON(s.router, http.MethodGet, "/api/v1/confessions", recipient.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)

	body := decodeBody(s.T(), w)
	confessions := body["confessions"].([]interface{})
	require.Len(s.T(), confessions, 1)
	assert.Equal(s.T(), visible.ID, confessions[0].(map[string]interface{})["id"])

	// The inbox still shows both
	w = doJSON(s.router, http.MethodGet, "/api/v1/confessions/inbox", recipient.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	body = decodeBody(s.T(), w)
	assert.Len(s.T(), body["confessions"].([]interface{}), 2)
}

func (s *ConfessionHandlerTestSuite) TestReportThresholdHides() {
	recipient := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "borderline content")

	for i := 0; i < models.ConfessionHideThreshold; i++ {
		reporter := createTestUser(s.T(), "stanford")
		w := doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/report",
			reporter.ID, gin.H{"reason": "offensive"})
		require.Equal(s.T(), http.StatusCreated, w.Code)
	}

	var reloaded models.Confession
	require.NoError(s.T(), s.db.First(&reloaded, "id = ?", confession.ID).Error)
	assert.True(s.T(), reloaded.IsHidden)
	assert.Equal(s.T(), models.ConfessionHideThreshold, reloaded.ReportCount)

	var reports int64
	s.db.Model(&models.ReportedConfession{}).Where("confession_id = ?", confession.ID).Count(&reports)
	assert.EqualValues(s.T(), models.ConfessionHideThreshold, reports)
}

func (s *ConfessionHandlerTestSuite) TestDuplicateReportRejected() {
	recipient := createTestUser(s.T(), "stanford")
	reporter := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "mild gossip")

	w := doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/report",
		reporter.ID, gin.H{"reason": "spam"})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	w = doJSON(s.router, http.MethodPost, "/api/v1/confessions/"+confession.ID+"/report",
		reporter.ID, gin.H{"reason": "spam again"})
	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

func (s *ConfessionHandlerTestSuite) TestUpdateAuthorOnly() {
	recipient := createTestUser(s.T(), "stanford")
	author := createTestUser(s.T(), "stanford")
	stranger := createTestUser(s.T(), "stanford")

	confession := &models.Confession{
		Content:     "original text",
		RecipientID: recipient.ID,
		CollegeName: recipient.CollegeName,
		AuthorID:    &author.ID,
	}
	require.NoError(s.T(), s.db.Create(confession).Error)

	w := doJSON(s.router, http.MethodPut, "/api/v1/confessions/"+confession.ID,
		stranger.ID, gin.H{"content": "rewritten"})
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	w = doJSON(s.router, http.MethodPut, "/api/v1/confessions/"+confession.ID,
		author.ID, gin.H{"content": "rewritten"})
	require.Equal(s.T(), http.StatusOK, w.Code)

	var reloaded models.Confession
	require.NoError(s.T(), s.db.First(&reloaded, "id = ?", confession.ID).Error)
	assert.Equal(s.T(), "rewritten", reloaded.Content)
}

func (s *ConfessionHandlerTestSuite) TestDeleteRecipientOrAdmin() {
	recipient := createTestUser(s.T(), "stanford")
	stranger := createTestUser(s.T(), "stanford")
	admin := createTestUser(s.T(), "stanford", func(u *models.User) { u.IsAdmin = true })

	first := createTestConfession(s.T(), recipient, "delete me")
	second := createTestConfession(s.T(), recipient, "delete me too")

	w := doJSON(s.router, http.MethodDelete, "/api/v1/confessions/"+first.ID, stranger.ID, nil)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	w = doJSON(s.router, http.MethodDelete, "/api/v1/confessions/"+first.ID, recipient.ID, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	w = doJSON(s.router, http.MethodDelete, "/api/v1/confessions/"+second.ID, admin.ID, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	var remaining int64
	s.db.Model(&models.Confession{}).Count(&remaining)
	assert.Zero(s.T(), remaining)
}

func (s *ConfessionHandlerTestSuite) TestTrendingOrdersByLikes() {
	recipient := createTestUser(s.T(), "stanford")
	quiet := createTestConfession(s.T(), recipient, "quiet one")
	popular := createTestConfession(s.T(), recipient, "popular one")
	require.NoError(s.T(), s.db.Model(popular).Update("likes", 10).Error)

	w := doJSON(s.router, http.MethodGet, "/api/v1/confessions/trending?timeframe=24h", recipient.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)

	body := decodeBody(s.T(), w)
	confessions := body["confessions"].([]interface{})
	require.Len(s.T(), confessions, 2)
	assert.Equal(s.T(), popular.ID, confessions[0].(map[string]interface{})["id"])
	assert.Equal(s.T(), quiet.ID, confessions[1].(map[string]interface{})["id"])

	w = doJSON(s.router, http.MethodGet, "/api/v1/confessions/trending?timeframe=yearly", recipient.ID, nil)
	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)
}

func (s *ConfessionHandlerTestSuite) TestHiddenConfessionVisibleToRecipient() {
	recipient := createTestUser(s.T(), "stanford")
	stranger := createTestUser(s.T(), "stanford")
	confession := createTestConfession(s.T(), recipient, "vaulted")
	require.NoError(s.T(), s.db.Model(confession).Update("is_hidden", true).Error)

	w := doJSON(s.router, http.MethodGet, "/api/v1/confessions/"+confession.ID, stranger.ID, nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)

	w = doJSON(s.router, http.MethodGet, "/api/v1/confessions/"+confession.ID, recipient.ID, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func TestConfessionHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ConfessionHandlerTestSuite))
}
