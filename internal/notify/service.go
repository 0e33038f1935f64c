// Package notify persists notifications and fans them out to email and
// live WebSocket connections.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/email"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/models"
	ws "github.com/campusconfessions/backend/internal/websocket"
)

// Service creates and delivers notifications. The database write is the
// source of truth; email and WebSocket delivery are best-effort and never
// fail the originating request.
type Service struct {
	hub    *ws.Hub
	mailer email.Sender
}

// NewService creates a notification service. Both hub and mailer may be
// nil, in which case the corresponding delivery channel is skipped.
func NewService(hub *ws.Hub, mailer email.Sender) *Service {
	return &Service{hub: hub, mailer: mailer}
}

// Input describes one notification to create
type Input struct {
	RecipientID  string
	Type         models.NotificationType
	Template     Template
	ConfessionID *string
	CommentID    *string
	ActorID      *string
	Data         map[string]interface{}
}

// Create persists a notification, then attempts email and push delivery
// according to the recipient's preferences
func (s *Service) Create(ctx context.Context, in Input) (*models.Notification, error) {
	var recipient models.User
	if err := database.DB.First(&recipient, "id = ?", in.RecipientID).Error; err != nil {
		return nil, fmt.Errorf("recipient not found: %w", err)
	}

	notification := models.Notification{
		RecipientID:  in.RecipientID,
		Type:         in.Type,
		Title:        in.Template.Title,
		Message:      in.Template.Message,
		ConfessionID: in.ConfessionID,
		CommentID:    in.CommentID,
		ActorID:      in.ActorID,
		Data:         in.Data,
	}
	if err := database.DB.Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.mailer != nil && recipient.Preferences.EmailNotifications {
		if err := s.mailer.SendNotificationEmail(ctx, recipient.Email, notification.Title, notification.Message); err != nil {
			logger.Log.Warn("Notification email delivery failed",
				zap.String("notification_id", notification.ID),
				logger.WithUserID(recipient.ID),
				zap.Error(err))
		}
	}

	if s.hub != nil && recipient.Preferences.PushNotifications {
		s.hub.SendToUser(recipient.ID, ws.NewMessage(ws.MessageTypeNotification, ws.NotificationPayload{
			ID:           notification.ID,
			Type:         string(notification.Type),
			Title:        notification.Title,
			Message:      notification.Message,
			ConfessionID: notification.ConfessionID,
			CommentID:    notification.CommentID,
			Data:         notification.Data,
			CreatedAt:    notification.CreatedAt,
		}))
	}

	return &notification, nil
}

// SendToCollege creates a notification for every user of a college and
// pushes a single campus-wide socket message
func (s *Service) SendToCollege(ctx context.Context, college string, tmpl Template, data map[string]interface{}) (int, error) {
	var users []models.User
	if err := database.DB.Where("college_name = ?", college).Find(&users).Error; err != nil {
		return 0, fmt.Errorf("failed to load college users: %w", err)
	}

	notifications := make([]models.Notification, 0, len(users))
	for _, u := range users {
		notifications = append(notifications, models.Notification{
			RecipientID: u.ID,
			Type:        models.NotificationSystem,
			Title:       tmpl.Title,
			Message:     tmpl.Message,
			Data:        data,
		})
	}
	if len(notifications) > 0 {
		if err := database.DB.CreateInBatches(notifications, 200).Error; err != nil {
			return 0, fmt.Errorf("failed to create notifications: %w", err)
		}
	}

	if s.hub != nil {
		s.hub.SendToCollege(college, ws.NewMessage(ws.MessageTypeAnnouncement, map[string]interface{}{
			"title":   tmpl.Title,
			"message": tmpl.Message,
			"college": college,
			"data":    data,
		}))
	}

	return len(notifications), nil
}

// Broadcast pushes a system message to every connected client without
// persisting anything
func (s *Service) Broadcast(tmpl Template, data map[string]interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(ws.NewMessage(ws.MessageTypeAnnouncement, map[string]interface{}{
		"title":   tmpl.Title,
		"message": tmpl.Message,
		"data":    data,
	}))
}

// Page holds one page of a user's notifications
type Page struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	UnreadCount   int64                 `json:"unread_count"`
	Page          int                   `json:"page"`
	PerPage       int                   `json:"per_page"`
}

// GetUserNotifications returns one page of a user's notifications,
// newest first, along with the total and unread counts
func (s *Service) GetUserNotifications(userID string, page, perPage int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var total int64
	if err := database.DB.Model(&models.Notification{}).
		Where("recipient_id = ?", userID).Count(&total).Error; err != nil {
		return nil, err
	}

	unread, err := s.UnreadCount(userID)
	if err != nil {
		return nil, err
	}

	var notifications []models.Notification
	err = database.DB.
		Where("recipient_id = ?", userID).
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}

	return &Page{
		Notifications: notifications,
		Total:         total,
		UnreadCount:   unread,
		Page:          page,
		PerPage:       perPage,
	}, nil
}

// UnreadCount returns the number of unread notifications for a user
func (s *Service) UnreadCount(userID string) (int64, error) {
	var count int64
	err := database.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks one notification read. Marking an already-read
// notification is a no-op, and the transition never reverses.
func (s *Service) MarkRead(userID, notificationID string) (*models.Notification, error) {
	var notification models.Notification
	err := database.DB.
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		First(&notification).Error
	if err != nil {
		return nil, err
	}

	if !notification.IsRead {
		if err := database.DB.Model(&notification).Update("is_read", true).Error; err != nil {
			return nil, err
		}
		notification.IsRead = true
		s.pushUnreadCount(userID)
	}

	return &notification, nil
}

// MarkAllRead marks every unread notification for a user as read and
// returns how many changed
func (s *Service) MarkAllRead(userID string) (int64, error) {
	result := database.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		s.pushUnreadCount(userID)
	}
	return result.RowsAffected, nil
}

// Delete removes one notification owned by the user
func (s *Service) Delete(userID, notificationID string) error {
	result := database.DB.
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	s.pushUnreadCount(userID)
	return nil
}

// DeleteAll removes every notification for a user and returns the count
func (s *Service) DeleteAll(userID string) (int64, error) {
	result := database.DB.
		Where("recipient_id = ?", userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	s.pushUnreadCount(userID)
	return result.RowsAffected, nil
}

// PruneOlderThan deletes read notifications older than the cutoff.
// Run by the maintenance job.
func (s *Service) PruneOlderThan(cutoff time.Time) (int64, error) {
	result := database.DB.
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

// pushUnreadCount sends the recipient their fresh unread count so badge
// counters stay accurate across devices
func (s *Service) pushUnreadCount(userID string) {
	if s.hub == nil {
		return
	}
	count, err := s.UnreadCount(userID)
	if err != nil {
		return
	}
	s.hub.SendToUser(userID, ws.NewMessage(ws.MessageTypeNotificationCount, map[string]interface{}{
		"unread_count": count,
	}))
}
