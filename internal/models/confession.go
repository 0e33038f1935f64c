package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Report thresholds after which content is automatically hidden
const (
	ConfessionHideThreshold = 5
	CommentHideThreshold    = 3
)

// ReactionMap stores per-emoji reaction counts for a confession. It
// implements Scanner and Valuer so gorm can write it through column
// updates as well as full-struct saves.
type ReactionMap map[string]int

// Scan implements the sql.Scanner interface for reading from database
func (m *ReactionMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ReactionMap", value)
	}

	// Decode into a fresh map so a reused struct never keeps stale keys
	out := ReactionMap{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (m ReactionMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Confession is a user-submitted text post, optionally anonymous,
// scoped to one college
type Confession struct {
	ID string `gorm:"primaryKey;type:uuid" json:"id"`

	Content string `gorm:"type:text;not null" json:"content"`

	// RecipientID is the user whose confession link received this post
	RecipientID string `gorm:"not null;index" json:"recipient_id"`
	Recipient   User   `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`

	// AuthorID is nil for posts submitted without an account
	AuthorID *string `gorm:"index" json:"author_id,omitempty"`
	Author   *User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	CollegeName string `gorm:"not null;index" json:"college_name"`

	Likes     int         `gorm:"default:0" json:"likes"`
	Dislikes  int         `gorm:"default:0" json:"dislikes"`
	Reactions ReactionMap `gorm:"type:jsonb" json:"reactions"`

	IsAnonymous bool `gorm:"default:false" json:"is_anonymous"`

	// Moderation
	IsHidden      bool        `gorm:"default:false" json:"is_hidden"`
	IsReported    bool        `gorm:"default:false" json:"is_reported"`
	ReportCount   int         `gorm:"default:0" json:"report_count"`
	ReportReasons StringArray `gorm:"type:text[]" json:"-"`

	Comments []Comment `gorm:"foreignKey:ConfessionID" json:"comments,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AuthorName resolves the display identity exactly once: anonymous posts
// and posts without an account always read "Anonymous".
func (c *Confession) AuthorName() string {
	if c.IsAnonymous || c.AuthorID == nil || c.Author == nil {
		return "Anonymous"
	}
	return c.Author.Username
}

// Comment represents a comment on a Confession
type Comment struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	ConfessionID string     `gorm:"not null;index" json:"confession_id"`
	Confession   Confession `gorm:"foreignKey:ConfessionID" json:"-"`
	AuthorID     string     `gorm:"not null;index" json:"author_id"`
	Author       User       `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	Content     string `gorm:"type:text;not null" json:"content"`
	IsAnonymous bool   `gorm:"default:false" json:"is_anonymous"`

	Likes int `gorm:"default:0" json:"likes"`

	// Moderation
	IsHidden    bool `gorm:"default:false" json:"is_hidden"`
	IsReported  bool `gorm:"default:false" json:"is_reported"`
	ReportCount int  `gorm:"default:0" json:"report_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AuthorName resolves the comment's display identity
func (c *Comment) AuthorName() string {
	if c.IsAnonymous {
		return "Anonymous"
	}
	return c.Author.Username
}

// Like records a single user liking a single confession.
// A partial unique index enforces at most one per (user, confession).
type Like struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string     `gorm:"not null;index" json:"user_id"`
	User         User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ConfessionID string     `gorm:"not null;index" json:"confession_id"`
	Confession   Confession `gorm:"foreignKey:ConfessionID" json:"-"`
	CollegeName  string     `gorm:"index" json:"college_name"`

	CreatedAt time.Time `json:"created_at"`
}

// ReportStatus tracks the moderation lifecycle of a report
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusReviewed ReportStatus = "reviewed"
	ReportStatusResolved ReportStatus = "resolved"
)

// ReportedConfession is a moderation queue entry for a reported confession
type ReportedConfession struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	ConfessionID string     `gorm:"not null;index" json:"confession_id"`
	Confession   Confession `gorm:"foreignKey:ConfessionID" json:"confession,omitempty"`
	ReportedByID string     `gorm:"not null;index" json:"reported_by_id"`
	ReportedBy   User       `gorm:"foreignKey:ReportedByID" json:"reported_by,omitempty"`

	Reason      string       `gorm:"type:text" json:"reason"`
	CollegeName string       `gorm:"index" json:"college_name"`
	Status      ReportStatus `gorm:"default:pending;index" json:"status"`
	AdminNotes  string       `gorm:"type:text" json:"admin_notes,omitempty"`

	ResolvedByID *string    `gorm:"index" json:"resolved_by_id,omitempty"`
	ResolvedBy   *User      `gorm:"foreignKey:ResolvedByID" json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Confession) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	if c.Reactions == nil {
		c.Reactions = ReactionMap{}
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (r *ReportedConfession) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}
