package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationType identifies what kind of event produced a notification
type NotificationType string

const (
	NotificationConfession NotificationType = "confession"
	NotificationComment    NotificationType = "comment"
	NotificationLike       NotificationType = "like"
	NotificationReaction   NotificationType = "reaction"
	NotificationSystem     NotificationType = "system"
)

// Notification is a persisted per-user event record. It has exactly two
// states, unread and read, and the transition is one-directional.
type Notification struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	RecipientID string           `gorm:"not null;index" json:"recipient_id"`
	Recipient   User             `gorm:"foreignKey:RecipientID" json:"-"`
	Type        NotificationType `gorm:"not null" json:"type"`

	Title   string `json:"title"`
	Message string `gorm:"type:text;not null" json:"message"`
	IsRead  bool   `gorm:"default:false;index" json:"is_read"`

	// Optional references back to the triggering content
	ConfessionID *string     `gorm:"type:uuid" json:"confession_id,omitempty"`
	Confession   *Confession `gorm:"foreignKey:ConfessionID" json:"confession,omitempty"`
	CommentID    *string     `gorm:"type:uuid" json:"comment_id,omitempty"`
	Comment      *Comment    `gorm:"foreignKey:CommentID" json:"comment,omitempty"`
	ActorID      *string     `gorm:"type:uuid" json:"actor_id,omitempty"`
	Actor        *User       `gorm:"foreignKey:ActorID" json:"actor,omitempty"`

	Data map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	return nil
}
