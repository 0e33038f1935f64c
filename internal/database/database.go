package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/campusconfessions/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection
func Initialize() error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "confessions")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	log.Println("✅ Database connected successfully")

	return nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
	if err != nil {
		log.Printf("Warning: Could not create uuid-ossp extension: %v", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.Confession{},
		&models.Comment{},
		&models.Like{},
		&models.Notification{},
		&models.ReportedConfession{},
		&models.Promotion{},
		&models.AnalyticsEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("✅ Database migrations completed")
	return nil
}

// createIndexes creates performance indexes
func createIndexes() error {
	// User lookup and ranking indexes
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_college_weekly_rank ON users (college_name, stats_weekly_rank)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_college_monthly_rank ON users (college_name, stats_monthly_rank)")

	// Confession feed queries: by college and recency, trending by likes
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_confessions_college_created ON confessions (college_name, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_confessions_recipient_created ON confessions (recipient_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_confessions_college_likes ON confessions (college_name, likes DESC) WHERE is_hidden = false")

	// Comment retrieval per confession
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_comments_confession_created ON comments (confession_id, created_at DESC)")

	// At most one Like per (user, confession)
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_likes_unique ON likes (user_id, confession_id)")

	// Notification inbox queries
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created ON notifications (recipient_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_recipient_unread ON notifications (recipient_id) WHERE is_read = false")

	// Moderation queue
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reported_confessions_status_created ON reported_confessions (status, created_at DESC)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_reported_confessions_unique ON reported_confessions (confession_id, reported_by_id)")

	// Active promotions per college
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_promotions_active ON promotions (college_name, is_active, end_date)")

	// Analytics rollups
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_analytics_events_action_created ON analytics_events (action, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_analytics_events_college_created ON analytics_events (college_name, created_at DESC)")

	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
