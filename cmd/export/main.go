package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/export"
)

func main() {
	// Load environment variables
	godotenv.Load()

	report := flag.String("report", "user-behavior", "Report to run: user-behavior, content-performance, system")
	college := flag.String("college", "", "Limit to one college (empty = all)")
	days := flag.Int("days", 30, "Lookback window in days")
	formatStr := flag.String("format", "csv", "Output format: csv or json")
	outPath := flag.String("o", "", "Output file (default stdout)")
	flag.Parse()

	format, err := export.ParseFormat(*formatStr)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	defer database.Close()

	since := time.Now().AddDate(0, 0, -*days)

	var r *export.Report
	switch *report {
	case "user-behavior":
		r, err = export.UserBehavior(*college, since)
	case "content-performance":
		r, err = export.ContentPerformance(*college, since)
	case "system":
		r, err = export.SystemPerformance()
	default:
		fmt.Println("Usage: export -report=[user-behavior|content-performance|system] [-college=X] [-days=30] [-format=csv|json] [-o=file]")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ Report failed: %v", err)
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("❌ Failed to create output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	if err := r.Write(out, format); err != nil {
		log.Fatalf("❌ Failed to write report: %v", err)
	}
	if *outPath != "" {
		fmt.Printf("✅ Wrote %s report to %s\n", r.Name, *outPath)
	}
}
