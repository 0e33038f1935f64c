package models

import (
	"time"

	"gorm.io/gorm"
)

// EventMetadata captures request context for a tracked behavior event
type EventMetadata struct {
	Page       string `json:"page,omitempty"`
	DeviceType string `json:"device_type,omitempty"`
	Browser    string `json:"browser,omitempty"`
	OS         string `json:"os,omitempty"`
	IP         string `json:"ip,omitempty"`
	Location   string `json:"location,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

// AnalyticsEvent is a single tracked user-behavior event
type AnalyticsEvent struct {
	ID     string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID *string `gorm:"index" json:"user_id,omitempty"`
	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Action     string `gorm:"not null;index" json:"action"`
	TargetType string `gorm:"index" json:"target_type,omitempty"`
	TargetID   string `json:"target_id,omitempty"`

	CollegeName string         `gorm:"index" json:"college_name,omitempty"`
	Metadata    *EventMetadata `gorm:"type:jsonb;serializer:json" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (e *AnalyticsEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = generateUUID()
	}
	return nil
}
