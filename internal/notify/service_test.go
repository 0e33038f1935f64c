package notify

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/models"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "test.log")
	code := m.Run()
	os.Remove("test.log")
	os.Exit(code)
}

// recordingMailer captures sent emails instead of hitting SES
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	fail bool
}

type sentEmail struct {
	To      string
	Subject string
	Message string
}

func (m *recordingMailer) SendNotificationEmail(ctx context.Context, toEmail, subject, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return assert.AnError
	}
	m.sent = append(m.sent, sentEmail{To: toEmail, Subject: subject, Message: message})
	return nil
}

func (m *recordingMailer) SendPasswordResetEmail(ctx context.Context, toEmail, resetToken string) error {
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// NotifyServiceTestSuite contains notification service tests
type NotifyServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	mailer  *recordingMailer
	service *Service
}

func (suite *NotifyServiceTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(suite.T(), err)

	database.DB = db
	require.NoError(suite.T(), db.AutoMigrate(
		&models.User{},
		&models.Confession{},
		&models.Comment{},
		&models.Notification{},
	))

	suite.db = db
}

func (suite *NotifyServiceTestSuite) TearDownSuite() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *NotifyServiceTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM notifications")
	suite.db.Exec("DELETE FROM users")
	suite.mailer = &recordingMailer{}
	// nil hub: push delivery is skipped in unit tests
	suite.service = NewService(nil, suite.mailer)
}

func (suite *NotifyServiceTestSuite) createUser(username, college string) *models.User {
	user := &models.User{
		Username:     username,
		Email:        username + "@" + college + ".edu",
		CollegeName:  college,
		PasswordHash: "x",
	}
	require.NoError(suite.T(), suite.db.Create(user).Error)
	return user
}

func (suite *NotifyServiceTestSuite) TestCreatePersistsAndEmails() {
	t := suite.T()

	user := suite.createUser("alice", "stanford")

	n, err := suite.service.Create(context.Background(), Input{
		RecipientID: user.ID,
		Type:        models.NotificationConfession,
		Template:    NewConfession("Stanford"),
	})
	require.NoError(t, err)
	assert.Equal(t, "New Confession", n.Title)
	assert.False(t, n.IsRead)

	var stored models.Notification
	require.NoError(t, suite.db.First(&stored, "id = ?", n.ID).Error)
	assert.Equal(t, user.ID, stored.RecipientID)

	require.Equal(t, 1, suite.mailer.count())
	assert.Equal(t, user.Email, suite.mailer.sent[0].To)
}

func (suite *NotifyServiceTestSuite) TestCreateRespectsEmailPreference() {
	t := suite.T()

	user := suite.createUser("alice", "stanford")
	suite.db.Model(user).Update("preferences_email_notifications", false)

	_, err := suite.service.Create(context.Background(), Input{
		RecipientID: user.ID,
		Type:        models.NotificationLike,
		Template:    ConfessionLiked("Anonymous"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, suite.mailer.count())
}

func (suite *NotifyServiceTestSuite) TestCreateSurvivesEmailFailure() {
	t := suite.T()

	user := suite.createUser("alice", "stanford")
	suite.mailer.fail = true

	n, err := suite.service.Create(context.Background(), Input{
		RecipientID: user.ID,
		Type:        models.NotificationSystem,
		Template:    Welcome("alice", "Stanford"),
	})
	require.NoError(t, err)

	// The notification is persisted even though email delivery failed
	var stored models.Notification
	assert.NoError(t, suite.db.First(&stored, "id = ?", n.ID).Error)
}

func (suite *NotifyServiceTestSuite) TestCreateUnknownRecipient() {
	t := suite.T()

	_, err := suite.service.Create(context.Background(), Input{
		RecipientID: "missing-user",
		Type:        models.NotificationSystem,
		Template:    Welcome("x", "y"),
	})
	assert.Error(t, err)
}

func (suite *NotifyServiceTestSuite) TestGetUserNotificationsPagination() {
	t := suite.T()

	user := suite.createUser("alice", "stanford")

	for i := 0; i < 25; i++ {
		_, err := suite.service.Create(context.Background(), Input{
			RecipientID: user.ID,
			Type:        models.NotificationSystem,
			Template:    Template{Title: "t", Message: "m"},
		})
		require.NoError(t, err)
	}

	page, err := suite.service.GetUserNotifications(user.ID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 10)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, int64(25), page.UnreadCount)

	page3, err := suite.service.GetUserNotifications(user.ID, 3, 10)
	require.NoError(t, err)
	assert.Len(t, page3.Notifications, 5)

	// Out-of-range page is empty, not an error
	page4, err := suite.service.GetUserNotifications(user.ID, 4, 10)
	require.NoError(t, err)
	assert.Empty(t, page4.Notifications)
}

func (suite *NotifyServiceTestSuite) TestMarkReadIsIdempotentAndOneWay() {
	t := suite.T()

	user := suite.createUser("alice", "stanford")
	n, err := suite.service.Create(context.Background(), Input{
		RecipientID: user.ID,
		Type:        models.NotificationSystem,
		Template:    Template{Title: "t", Message: "m"},
	})
	require.NoError(t, err)

	marked, err := suite.service.MarkRead(user.ID, n.ID)
	require.NoError(t, err)
	assert.True(t, marked.IsRead)

	// Second call is a no-op
	marked, err = suite.service.MarkRead(user.ID, n.ID)
	require.NoError(t, err)
	assert.True(t, marked.IsRead)

	unread, err := suite.service.UnreadCount(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func (suite *NotifyServiceTestSuite) TestMarkReadScopedToOwner() {
	t := suite.T()

	alice := suite.createUser("alice", "stanford")
	mallory := suite.createUser("mallory", "stanford")

	n, err := suite.service.Create(context.Background(), Input{
		RecipientID: alice.ID,
		Type:        models.NotificationSystem,
		Template:    Template{Title: "t", Message: "m"},
	})
	require.NoError(t, err)

	_, err = suite.service.MarkRead(mallory.ID, n.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func (suite *NotifyServiceTestSuite) TestMarkAllRead() {
	t := suite.T()

	user := suite.createUser("alice", "stanford")
	for i := 0; i < 3; i++ {
		_, err := suite.service.Create(context.Background(), Input{
			RecipientID: user.ID,
			Type:        models.NotificationSystem,
			Template:    Template{Title: "t", Message: "m"},
		})
		require.NoError(t, err)
	}

	changed, err := suite.service.MarkAllRead(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)

	changed, err = suite.service.MarkAllRead(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)
}

func (suite *NotifyServiceTestSuite) TestDeleteAndDeleteAll() {
	t := suite.T()

	user := suite.createUser("alice", "stanford")
	n1, _ := suite.service.Create(context.Background(), Input{
		RecipientID: user.ID, Type: models.NotificationSystem, Template: Template{Title: "a", Message: "a"},
	})
	suite.service.Create(context.Background(), Input{
		RecipientID: user.ID, Type: models.NotificationSystem, Template: Template{Title: "b", Message: "b"},
	})

	require.NoError(t, suite.service.Delete(user.ID, n1.ID))
	assert.ErrorIs(t, suite.service.Delete(user.ID, n1.ID), gorm.ErrRecordNotFound)

	deleted, err := suite.service.DeleteAll(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func (suite *NotifyServiceTestSuite) TestSendToCollege() {
	t := suite.T()

	suite.createUser("alice", "stanford")
	suite.createUser("bob", "stanford")
	suite.createUser("carol", "berkeley")

	count, err := suite.service.SendToCollege(context.Background(), "stanford",
		CollegeAnnouncement("Maintenance", "Down at midnight"), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var stored int64
	suite.db.Model(&models.Notification{}).Count(&stored)
	assert.Equal(t, int64(2), stored)
}

func (suite *NotifyServiceTestSuite) TestPruneOlderThan() {
	t := suite.T()

	user := suite.createUser("alice", "stanford")

	old := models.Notification{
		RecipientID: user.ID,
		Type:        models.NotificationSystem,
		Title:       "old",
		Message:     "old",
		IsRead:      true,
	}
	require.NoError(t, suite.db.Create(&old).Error)
	suite.db.Model(&old).Update("created_at", time.Now().Add(-40*24*time.Hour))

	// Unread notifications are never pruned
	oldUnread := models.Notification{
		RecipientID: user.ID,
		Type:        models.NotificationSystem,
		Title:       "old-unread",
		Message:     "old-unread",
	}
	require.NoError(t, suite.db.Create(&oldUnread).Error)
	suite.db.Model(&oldUnread).Update("created_at", time.Now().Add(-40*24*time.Hour))

	pruned, err := suite.service.PruneOlderThan(time.Now().Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	var remaining int64
	suite.db.Model(&models.Notification{}).Count(&remaining)
	assert.Equal(t, int64(1), remaining)
}

func TestNotifyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(NotifyServiceTestSuite))
}
