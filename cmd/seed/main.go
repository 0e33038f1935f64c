package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/seed"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), "seed.log"); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "dev":
		seedDev()
	case "test":
		seedTest()
	case "clean":
		cleanSeed()
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  test  - Seed test database with fixed fixture accounts")
		fmt.Println("  clean - Remove all seed data (use with caution)")
		os.Exit(1)
	}
}

func connect() *seed.Seeder {
	log.Println("🔄 Connecting to database...")
	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database connected")
	return seed.NewSeeder(database.DB)
}

func seedDev() {
	seeder := connect()
	defer database.Close()

	log.Println("🌱 Seeding development database...")
	if err := seeder.SeedDev(); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Println("✅ Development database seeded!")
	log.Println("   All accounts use the password: password123")
}

func seedTest() {
	seeder := connect()
	defer database.Close()

	log.Println("🌱 Seeding test database...")
	if err := seeder.SeedTest(); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Println("✅ Test database seeded!")
}

func cleanSeed() {
	seeder := connect()
	defer database.Close()

	log.Println("🧹 Cleaning seed data...")
	if err := seeder.Clean(); err != nil {
		log.Fatalf("❌ Clean failed: %v", err)
	}
	log.Println("✅ Seed data removed")
}
