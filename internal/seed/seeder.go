// Package seed fills the database with realistic development data and a
// small fixed test fixture set.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/models"
)

// Colleges seeded in dev. The first one gets the superadmin.
var colleges = []string{"stanford", "berkeley", "mit", "harvard", "ucla"}

var sampleConfessions = []string{
	"I've had a crush on you since orientation week and I still can't say hi.",
	"You left your umbrella in the library and I've been carrying it around hoping to run into you.",
	"Your presentation in seminar was the only reason I showed up that week.",
	"I pretend to study in the dining hall just to see you walk by.",
	"We matched on everything and I still chickened out of messaging you.",
	"You laughed at my terrible joke in lab and made my whole semester.",
	"I know you failed that midterm. You're still the smartest person I know.",
	"Thanks for holding the door when my hands were full. Small thing, big day.",
}

var sampleComments = []string{
	"Shoot your shot!",
	"This is adorable",
	"We found them, chief",
	"Campus needs more of this energy",
	"Respectfully, just talk to them",
	"I know exactly who this is about",
}

var reactionEmojis = []string{"❤️", "😂", "😮", "😢", "🔥"}

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SeedDev seeds the development database with realistic data across all
// colleges: users on every tier, confessions, comments, likes, reactions,
// notifications, and promotions.
func (s *Seeder) SeedDev() error {
	logger.InfoWithFields("Creating users...")
	users, err := s.seedUsers(40)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.InfoWithFields("Creating confessions...")
	confessions, err := s.seedConfessions(users, 200)
	if err != nil {
		return fmt.Errorf("failed to seed confessions: %w", err)
	}

	logger.InfoWithFields("Creating comments...")
	if err := s.seedComments(users, confessions, 400); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	logger.InfoWithFields("Creating likes and reactions...")
	if err := s.seedEngagement(users, confessions); err != nil {
		return fmt.Errorf("failed to seed engagement: %w", err)
	}

	logger.InfoWithFields("Creating promotions...")
	if err := s.seedPromotions(users); err != nil {
		return fmt.Errorf("failed to seed promotions: %w", err)
	}

	logger.InfoWithFields("Seed complete",
		zap.Int("users", len(users)),
		zap.Int("confessions", len(confessions)))
	return nil
}

// SeedTest seeds the test database with a small fixed fixture set. All
// accounts use the password "password123".
func (s *Seeder) SeedTest() error {
	specs := []struct {
		username string
		college  string
		role     models.Role
		tier     models.SubscriptionTier
	}{
		{"alice", "stanford", models.RoleUser, models.TierBasic},
		{"bob", "stanford", models.RoleUser, models.TierGold},
		{"carol", "berkeley", models.RoleUser, models.TierPlatinum},
		{"dave", "stanford", models.RoleAdmin, models.TierBasic},
		{"root", "stanford", models.RoleSuperAdmin, models.TierBasic},
	}

	var users []models.User
	for _, spec := range specs {
		var user models.User
		err := s.db.Where("username = ?", spec.username).First(&user).Error
		if err == nil {
			users = append(users, user)
			continue
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user = models.User{
			Username:     spec.username,
			Email:        spec.username + "@example.edu",
			CollegeName:  spec.college,
			PasswordHash: string(hashed),
			Role:         spec.role,
			IsAdmin:      spec.role == models.RoleAdmin || spec.role == models.RoleSuperAdmin,
		}
		user.Subscription.Tier = spec.tier
		if spec.tier != models.TierBasic {
			expires := time.Now().AddDate(0, 1, 0)
			user.Subscription.ExpiresAt = &expires
		}
		if err := s.db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create test user %s: %w", spec.username, err)
		}
		users = append(users, user)
	}

	if _, err := s.seedConfessions(users, 10); err != nil {
		return fmt.Errorf("failed to seed confessions: %w", err)
	}
	return nil
}

// Clean removes all seed data (use with caution!)
func (s *Seeder) Clean() error {
	// Delete in reverse order of dependencies
	tables := []string{
		"reported_confessions",
		"likes",
		"comments",
		"notifications",
		"analytics_events",
		"promotions",
		"confessions",
		"users",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) seedUsers(perCollege int) ([]models.User, error) {
	// If seed users already exist, reuse them
	var seedUserCount int64
	s.db.Model(&models.User{}).Where("email LIKE '%@example.edu'").Count(&seedUserCount)
	if seedUserCount >= int64(perCollege*len(colleges)) {
		var users []models.User
		if err := s.db.Find(&users).Error; err != nil {
			return nil, err
		}
		logger.InfoWithFields("Found existing users, skipping creation",
			zap.Int("total_users", len(users)))
		return users, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tiers := []models.SubscriptionTier{
		models.TierBasic, models.TierBasic, models.TierBasic,
		models.TierSilver, models.TierGold, models.TierPlatinum,
	}

	var users []models.User
	for ci, college := range colleges {
		for i := 0; i < perCollege; i++ {
			username := gofakeit.Username()
			var existing models.User
			for s.db.Where("username = ?", username).First(&existing).Error == nil {
				username = gofakeit.Username()
			}

			user := models.User{
				Username:     username,
				Email:        fmt.Sprintf("%s@example.edu", username),
				CollegeName:  college,
				PasswordHash: string(hashed),
			}

			tier := tiers[rand.Intn(len(tiers))]
			user.Subscription.Tier = tier
			if tier != models.TierBasic {
				expires := time.Now().AddDate(0, 1, rand.Intn(28))
				user.Subscription.ExpiresAt = &expires
				user.Subscription.MessageCount = rand.Intn(tier.MessageQuota() + 1)
			}
			if tier == models.TierSilver || tier == models.TierGold {
				user.Preferences.Theme = "midnight"
			}

			// One admin per college, one superadmin overall
			if i == 0 {
				user.Role = models.RoleAdmin
				user.IsAdmin = true
				if ci == 0 {
					user.Role = models.RoleSuperAdmin
				}
			}

			if err := s.db.Create(&user).Error; err != nil {
				return nil, fmt.Errorf("failed to create user %s: %w", username, err)
			}
			users = append(users, user)
		}
	}
	return users, nil
}

func (s *Seeder) seedConfessions(users []models.User, count int) ([]models.Confession, error) {
	var confessions []models.Confession
	for i := 0; i < count; i++ {
		recipient := users[rand.Intn(len(users))]

		content := sampleConfessions[rand.Intn(len(sampleConfessions))]
		if rand.Float32() < 0.4 {
			content = gofakeit.Sentence(8 + rand.Intn(15))
		}

		confession := models.Confession{
			Content:     content,
			RecipientID: recipient.ID,
			CollegeName: recipient.CollegeName,
		}

		// Mix of anonymous and signed posts. Signed posts come from a
		// user at the same college.
		if rand.Float32() < 0.6 {
			confession.IsAnonymous = true
		} else {
			author := users[rand.Intn(len(users))]
			for author.CollegeName != recipient.CollegeName || author.ID == recipient.ID {
				author = users[rand.Intn(len(users))]
			}
			confession.AuthorID = &author.ID
		}

		// Spread creation times over the last month so trending and
		// ranking windows have something to chew on
		confession.CreatedAt = time.Now().Add(-time.Duration(rand.Intn(30*24)) * time.Hour)

		if err := s.db.Create(&confession).Error; err != nil {
			return nil, fmt.Errorf("failed to create confession: %w", err)
		}
		confessions = append(confessions, confession)
	}
	return confessions, nil
}

func (s *Seeder) seedComments(users []models.User, confessions []models.Confession, count int) error {
	for i := 0; i < count; i++ {
		confession := confessions[rand.Intn(len(confessions))]
		author := users[rand.Intn(len(users))]

		content := sampleComments[rand.Intn(len(sampleComments))]
		if rand.Float32() < 0.3 {
			content = gofakeit.Sentence(4 + rand.Intn(10))
		}

		comment := models.Comment{
			ConfessionID: confession.ID,
			AuthorID:     author.ID,
			Content:      content,
			IsAnonymous:  rand.Float32() < 0.3,
			Likes:        rand.Intn(10),
		}
		if err := s.db.Create(&comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		if err := s.db.Model(&models.User{}).Where("id = ?", confession.RecipientID).
			UpdateColumn("stats_total_comments", gorm.Expr("stats_total_comments + 1")).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedEngagement creates likes and reactions, keeping the cached counters
// on confessions and user stats consistent with the like rows.
func (s *Seeder) seedEngagement(users []models.User, confessions []models.Confession) error {
	for _, confession := range confessions {
		likerCount := rand.Intn(8)
		liked := make(map[string]bool)
		for i := 0; i < likerCount; i++ {
			liker := users[rand.Intn(len(users))]
			if liked[liker.ID] {
				continue
			}
			liked[liker.ID] = true

			like := models.Like{
				UserID:       liker.ID,
				ConfessionID: confession.ID,
				CollegeName:  confession.CollegeName,
			}
			if err := s.db.Create(&like).Error; err != nil {
				return fmt.Errorf("failed to create like: %w", err)
			}
		}

		updates := map[string]interface{}{"likes": len(liked)}
		if rand.Float32() < 0.4 {
			reactions := models.ReactionMap{}
			for i := 0; i < 1+rand.Intn(3); i++ {
				reactions[reactionEmojis[rand.Intn(len(reactionEmojis))]] += 1 + rand.Intn(5)
			}
			updates["reactions"] = reactions
		}
		if err := s.db.Model(&models.Confession{}).Where("id = ?", confession.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		if len(liked) > 0 {
			if err := s.db.Model(&models.User{}).Where("id = ?", confession.RecipientID).
				UpdateColumn("stats_total_likes", gorm.Expr("stats_total_likes + ?", len(liked))).Error; err != nil {
				return err
			}
		}
	}

	// Confession counters on recipient stats
	type recipientCount struct {
		RecipientID string
		Total       int
	}
	var counts []recipientCount
	if err := s.db.Model(&models.Confession{}).
		Select("recipient_id, COUNT(*) as total").
		Group("recipient_id").
		Scan(&counts).Error; err != nil {
		return err
	}
	for _, rc := range counts {
		if err := s.db.Model(&models.User{}).Where("id = ?", rc.RecipientID).
			UpdateColumn("stats_total_confessions", rc.Total).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedPromotions(users []models.User) error {
	var admins []models.User
	for _, u := range users {
		if u.Role == models.RoleAdmin || u.Role == models.RoleSuperAdmin {
			admins = append(admins, u)
		}
	}
	if len(admins) == 0 {
		return nil
	}

	for _, college := range colleges {
		admin := admins[rand.Intn(len(admins))]
		promo := models.Promotion{
			Title:       fmt.Sprintf("%s week at %s", gofakeit.HipsterWord(), college),
			Content:     gofakeit.Sentence(12),
			Type:        models.PromotionFeed,
			CollegeName: college,
			IsActive:    true,
			EndDate:     time.Now().AddDate(0, 0, 7+rand.Intn(14)),
			CreatedByID: admin.ID,
		}
		if err := s.db.Create(&promo).Error; err != nil {
			return fmt.Errorf("failed to create promotion: %w", err)
		}
	}

	// One platform-wide banner
	banner := models.Promotion{
		Title:       "Welcome to Campus Confessions",
		Content:     "Share your link, collect your confessions.",
		Type:        models.PromotionBanner,
		IsActive:    true,
		EndDate:     time.Now().AddDate(0, 3, 0),
		CreatedByID: admins[0].ID,
	}
	return s.db.Create(&banner).Error
}
