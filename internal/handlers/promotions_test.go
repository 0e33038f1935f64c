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

type PromotionHandlerTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers
}

func (s *PromotionHandlerTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.handlers = newTestHandlers()

	s.router = gin.New()
	api := s.router.Group("/api/v1")
	api.Use(testAuthMiddleware(true))
	api.GET("/promotions", s.handlers.GetActivePromotions)
	api.POST("/admin/promotions", s.handlers.CreatePromotion)
	api.PUT("/admin/promotions/:id", s.handlers.UpdatePromotion)
	api.DELETE("/admin/promotions/:id", s.handlers.DeletePromotion)
}

func (s *PromotionHandlerTestSuite) TestCreateAndList() {
	admin := createTestUser(s.T(), "stanford", func(u *models.User) { u.IsAdmin = true })
	student := createTestUser(s.T(), "stanford")
	outsider := createTestUser(s.T(), "berkeley")

	w := doJSON(s.router, http.MethodPost, "/api/v1/admin/promotions", admin.ID, gin.H{
		"title":    "Career fair",
		"content":  "Thursday on the quad",
		"type":     "banner",
		"end_date": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	// Students in the college see it
	w = doJSON(s.router, http.MethodGet, "/api/v1/promotions", student.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Len(s.T(), decodeBody(s.T(), w)["promotions"].([]interface{}), 1)

	// Other colleges do not
	w = doJSON(s.router, http.MethodGet, "/api/v1/promotions", outsider.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Empty(s.T(), decodeBody(s.T(), w)["promotions"].([]interface{}))
}

func (s *PromotionHandlerTestSuite) TestExpiredPromotionsFilteredOut() {
	admin := createTestUser(s.T(), "stanford", func(u *models.User) { u.IsAdmin = true })
	student := createTestUser(s.T(), "stanford")

	expired := &models.Promotion{
		Title:       "Old news",
		Content:     "already over",
		CollegeName: "stanford",
		IsActive:    true,
		EndDate:     time.Now().Add(-time.Hour),
		CreatedByID: admin.ID,
	}
	require.NoError(s.T(), s.db.Create(expired).Error)

	w := doJSON(s.router, http.MethodGet, "/api/v1/promotions", student.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Empty(s.T(), decodeBody(s.T(), w)["promotions"].([]interface{}))
}

func (s *PromotionHandlerTestSuite) TestEndDateMustBeFuture() {
	admin := createTestUser(s.T(), "stanford", func(u *models.User) { u.IsAdmin = true })

	w := doJSON(s.router, http.MethodPost, "/api/v1/admin/promotions", admin.ID, gin.H{
		"title":    "Too late",
		"content":  "already happened",
		"end_date": time.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)
}

func (s *PromotionHandlerTestSuite) TestUpdateAndDeleteScopedToCollege() {
	stanfordAdmin := createTestUser(s.T(), "stanford", func(u *models.User) { u.IsAdmin = true })
	berkeleyAdmin := createTestUser(s.T(), "berkeley", func(u *models.User) { u.IsAdmin = true })

	promotion := &models.Promotion{
		Title:       "Stanford only",
		Content:     "campus event",
		CollegeName: "stanford",
		IsActive:    true,
		EndDate:     time.Now().Add(24 * time.Hour),
		CreatedByID: stanfordAdmin.ID,
	}
	require.NoError(s.T(), s.db.Create(promotion).Error)

	w := doJSON(s.router, http.MethodPut, "/api/v1/admin/promotions/"+promotion.ID,
		berkeleyAdmin.ID, gin.H{"is_active": false})
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	inactive := false
	w = doJSON(s.router, http.MethodPut, "/api/v1/admin/promotions/"+promotion.ID,
		stanfordAdmin.ID, gin.H{"is_active": inactive})
	require.Equal(s.T(), http.StatusOK, w.Code)

	var reloaded models.Promotion
	require.NoError(s.T(), s.db.First(&reloaded, "id = ?", promotion.ID).Error)
	assert.False(s.T(), reloaded.IsActive)

	w = doJSON(s.router, http.MethodDelete, "/api/v1/admin/promotions/"+promotion.ID,
		stanfordAdmin.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)

	var count int64
	s.db.Model(&models.Promotion{}).Count(&count)
	assert.Zero(s.T(), count)
}

func TestPromotionHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(PromotionHandlerTestSuite))
}
