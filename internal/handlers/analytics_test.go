package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/campusconfessions/backend/internal/models"
)

type AnalyticsHandlerTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers
}

func (s *AnalyticsHandlerTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.handlers = newTestHandlers()

	s.router = gin.New()
	api := s.router.Group("/api/v1")

	events := api.Group("")
	events.Use(testAuthMiddleware(false))
	events.POST("/analytics/events", s.handlers.TrackEvent)

	admin := api.Group("/admin")
	admin.Use(testAuthMiddleware(true))
	admin.GET("/analytics/:report", s.handlers.GetAnalyticsDashboard)
	admin.GET("/analytics/:report/export", s.handlers.ExportAnalytics)
}

func (s *AnalyticsHandlerTestSuite) TestTrackEventAnonymous() {
	w := doJSON(s.router, http.MethodPost, "/api/v1/analytics/events", "", gin.H{
		"action": "page_view",
		"page":   "/send/some-link",
	})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	var event models.AnalyticsEvent
	require.NoError(s.T(), s.db.First(&event).Error)
	assert.Equal(s.T(), "page_view", event.Action)
	assert.Nil(s.T(), event.UserID)
	require.NotNil(s.T(), event.Metadata)
	assert.Equal(s.T(), "/send/some-link", event.Metadata.Page)
}

func (s *AnalyticsHandlerTestSuite) TestTrackEventAttributesUser() {
	user := createTestUser(s.T(), "stanford")

	w := doJSON(s.router, http.MethodPost, "/api/v1/analytics/events", user.ID, gin.H{
		"action":      "confession_view",
		"target_type": "confession",
		"target_id":   "some-id",
	})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	var event models.AnalyticsEvent
	require.NoError(s.T(), s.db.First(&event).Error)
	require.NotNil(s.T(), event.UserID)
	assert.Equal(s.T(), user.ID, *event.UserID)
	assert.Equal(s.T(), "stanford", event.CollegeName)
}

func (s *AnalyticsHandlerTestSuite) seedEvents(college string, n int) {
	for i := 0; i < n; i++ {
		event := models.AnalyticsEvent{
			Action:      "page_view",
			CollegeName: college,
			CreatedAt:   time.Now().Add(-time.Hour),
		}
		require.NoError(s.T(), s.db.Create(&event).Error)
	}
}

func (s *AnalyticsHandlerTestSuite) TestDashboardScopedToCollege() {
	s.seedEvents("stanford", 3)
	s.seedEvents("berkeley", 2)

	admin := createTestUser(s.T(), "stanford", func(u *models.User) { u.IsAdmin = true })
	w := doJSON(s.router, http.MethodGet, "/api/v1/admin/analytics/user-behavior", admin.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)

	body := decodeBody(s.T(), w)
	records := body["records"].([]interface{})
	assert.Len(s.T(), records, 3)
}

func (s *AnalyticsHandlerTestSuite) TestSystemReportRequiresSuperadmin() {
	admin := createTestUser(s.T(), "stanford", func(u *models.User) { u.IsAdmin = true })
	super := createTestUser(s.T(), "stanford", func(u *models.User) {
		u.Role = models.RoleSuperAdmin
	})

	w := doJSON(s.router, http.MethodGet, "/api/v1/admin/analytics/system", admin.ID, nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w = doJSON(s.router, http.MethodGet, "/api/v1/admin/analytics/system", super.ID, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *AnalyticsHandlerTestSuite) TestExportCSV() {
	s.seedEvents("stanford", 2)
	admin := createTestUser(s.T(), "stanford", func(u *models.User) { u.IsAdmin = true })

	w := doJSON(s.router, http.MethodGet,
		"/api/v1/admin/analytics/user-behavior/export?format=csv", admin.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(s.T(), w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(s.T(), w.Body.String(), "page_view")
}

func (s *AnalyticsHandlerTestSuite) TestExportRejectsUnknownFormat() {
	admin := createTestUser(s.T(), "stanford", func(u *models.User) { u.IsAdmin = true })

	w := doJSON(s.router, http.MethodGet,
		"/api/v1/admin/analytics/user-behavior/export?format=xml", admin.ID, nil)
	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)
}

func TestAnalyticsHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AnalyticsHandlerTestSuite))
}
