package models

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringArray is a custom type for PostgreSQL text[] that implements Scanner and Valuer
type StringArray []string

// Scan implements the sql.Scanner interface for reading from database
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	str, ok := value.(string)
	if !ok {
		if bytes, ok := value.([]byte); ok {
			str = string(bytes)
		} else {
			*a = nil
			return nil
		}
	}

	str = strings.TrimPrefix(str, "{")
	str = strings.TrimSuffix(str, "}")

	if str == "" {
		*a = []string{}
		return nil
	}

	*a = strings.Split(str, ",")
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	if len(a) == 0 {
		return "{}", nil
	}
	return "{" + strings.Join(a, ",") + "}", nil
}

// SubscriptionTier gates feature access and cross-college visibility
type SubscriptionTier string

const (
	TierBasic    SubscriptionTier = "basic"
	TierSilver   SubscriptionTier = "silver"
	TierGold     SubscriptionTier = "gold"
	TierPlatinum SubscriptionTier = "platinum"
)

// MessageQuota returns the monthly confession allowance for a tier.
// Zero means unlimited.
func (t SubscriptionTier) MessageQuota() int {
	switch t {
	case TierBasic:
		return 50
	case TierSilver:
		return 200
	case TierGold:
		return 1000
	default:
		return 0
	}
}

// Role represents the authorization level of a user
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Subscription holds a user's subscription state
type Subscription struct {
	Tier            SubscriptionTier `gorm:"default:basic" json:"tier"`
	ExpiresAt       *time.Time       `json:"expires_at"`
	MessageCount    int              `gorm:"default:0" json:"message_count"`
	AllowedColleges StringArray      `gorm:"type:text[]" json:"allowed_colleges"`
}

// Stats holds cached engagement counters and ranks for a user
type Stats struct {
	ProfileVisits    int        `gorm:"default:0" json:"profile_visits"`
	TotalLikes       int        `gorm:"default:0" json:"total_likes"`
	TotalConfessions int        `gorm:"default:0" json:"total_confessions"`
	TotalComments    int        `gorm:"default:0" json:"total_comments"`
	WeeklyRank       int        `gorm:"default:0" json:"weekly_rank"`
	MonthlyRank      int        `gorm:"default:0" json:"monthly_rank"`
	BoostType        string     `json:"boost_type,omitempty"`
	BoostEndDate     *time.Time `json:"boost_end_date,omitempty"`
}

// Preferences holds user-tunable settings
type Preferences struct {
	Theme              string `gorm:"default:default" json:"theme"`
	HasPrivateVault    bool   `gorm:"default:false" json:"has_private_vault"`
	CustomReactions    bool   `gorm:"default:false" json:"custom_reactions"`
	EmailNotifications bool   `gorm:"default:true" json:"email_notifications"`
	PushNotifications  bool   `gorm:"default:true" json:"push_notifications"`
}

// ActivityEntry is a single entry in a user's activity log
type ActivityEntry struct {
	Action    string                 `json:"action"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// User represents a Campus Confessions account scoped to one college
type User struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	CollegeName string `gorm:"not null;index" json:"college_name"`

	PasswordHash string `gorm:"type:text;not null" json:"-"`

	// ConfessionLink is the public slug others use to send confessions
	ConfessionLink string `gorm:"uniqueIndex" json:"confession_link"`

	IsAdmin   bool `gorm:"default:false" json:"is_admin"`
	Role      Role `gorm:"default:user" json:"role"`
	IsBlocked bool `gorm:"default:false" json:"is_blocked"`

	Subscription Subscription `gorm:"embedded;embeddedPrefix:subscription_" json:"subscription"`
	Stats        Stats        `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	Preferences  Preferences  `gorm:"embedded;embeddedPrefix:preferences_" json:"preferences"`

	ActivityLog []ActivityEntry `gorm:"type:jsonb;serializer:json" json:"activity_log,omitempty"`

	// Billing
	StripeCustomerID     *string `gorm:"index" json:"-"`
	StripeSubscriptionID *string `json:"-"`

	// Two-factor auth
	TwoFactorSecret  *string `gorm:"type:text" json:"-"`
	TwoFactorEnabled bool    `gorm:"default:false" json:"two_factor_enabled"`

	LastLoginAt *time.Time `json:"last_login_at"`

	// Password reset
	ResetPasswordToken   *string    `gorm:"index" json:"-"`
	ResetPasswordExpires *time.Time `json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsSuperAdmin reports whether the user holds the superadmin role
func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// AnonID returns the stable pseudonym shown for a user's anonymous activity
func (u *User) AnonID() string {
	if len(u.ID) < 8 {
		return "Anon_" + u.ID
	}
	return "Anon_" + u.ID[:8]
}

// CanPostTo reports whether a user's tier allows posting to the given college.
// Basic users are confined to their own college; paid tiers may additionally
// post to colleges on their allow list, and platinum is unrestricted.
func (u *User) CanPostTo(college string) bool {
	if college == u.CollegeName {
		return true
	}
	if u.Subscription.Tier == TierPlatinum {
		return true
	}
	for _, allowed := range u.Subscription.AllowedColleges {
		if allowed == college {
			return true
		}
	}
	return false
}

// LogActivity appends an entry to the user's activity log, keeping the
// newest 100 entries.
func (u *User) LogActivity(action string, data map[string]interface{}) {
	u.ActivityLog = append(u.ActivityLog, ActivityEntry{
		Action:    action,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if len(u.ActivityLog) > 100 {
		u.ActivityLog = u.ActivityLog[len(u.ActivityLog)-100:]
	}
}

// BeforeCreate hooks for GORM
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	if u.ConfessionLink == "" {
		u.ConfessionLink = strings.ToLower(u.Username) + "-" + generateUUID()[:8]
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// Helper function for UUID generation
func generateUUID() string {
	return uuid.New().String()
}
