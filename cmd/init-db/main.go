// Command init-db creates the prediction log schema.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"college-predictor/internal/config"
	"college-predictor/internal/services/database"
)

func main() {
	fmt.Println("=== Prediction Log Initialization ===")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Println("📡 Connecting to PostgreSQL...")
	db, err := database.New(ctx, cfg)
	if err != nil {
		fmt.Printf("❌ Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	fmt.Println("✅ Connected to database successfully!")

	fmt.Println("🚀 Applying schema...")
	if err := db.Migrate(ctx); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Schema applied")

	usage, err := database.NewPredictionLogRepository(db).UsageByExam(ctx)
	if err != nil {
		fmt.Printf("⚠️  Warning: Could not read prediction log: %v\n", err)
	} else {
		fmt.Println()
		fmt.Println("   📋 Logged predictions:")
		if len(usage) == 0 {
			fmt.Println("   (none yet)")
		}
		for _, u := range usage {
			fmt.Printf("   %-14s %6d queries, %.1f results avg, %d empty\n", u.ExamType, u.Queries, u.AvgResults, u.EmptyResults)
		}
	}

	fmt.Println()
	fmt.Println("🎉 Database initialization completed successfully!")
	fmt.Println("Set PREDICTION_LOG_ENABLED=true to record predictions.")
}
