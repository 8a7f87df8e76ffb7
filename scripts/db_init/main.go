package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	dbfs "github.com/garnizeh/jobtrack/db"
	"github.com/garnizeh/jobtrack/internal/config"
	"github.com/garnizeh/jobtrack/internal/db"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database %s initialized successfully.\n", cfg.DatabasePath)
}
