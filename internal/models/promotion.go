package models

import (
	"time"

	"gorm.io/gorm"
)

// PromotionType distinguishes banner ads from feed promotions
type PromotionType string

const (
	PromotionBanner PromotionType = "banner"
	PromotionFeed   PromotionType = "promotion"
)

// Promotion is a college-scoped announcement or ad with an expiry.
// A promotion is expired once EndDate has passed regardless of IsActive.
type Promotion struct {
	ID          string        `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string        `gorm:"not null" json:"title"`
	Content     string        `gorm:"type:text" json:"content"`
	Type        PromotionType `gorm:"default:promotion" json:"type"`
	CollegeName string        `gorm:"index" json:"college_name"`

	IsActive bool      `gorm:"default:true;index" json:"is_active"`
	EndDate  time.Time `gorm:"not null;index" json:"end_date"`

	CreatedByID string `gorm:"index" json:"created_by_id"`
	CreatedBy   User   `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Expired reports whether the promotion's end date has passed
func (p *Promotion) Expired(now time.Time) bool {
	return p.EndDate.Before(now)
}

func (p *Promotion) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}
