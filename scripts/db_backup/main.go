package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/garnizeh/jobtrack/internal/config"
	"github.com/garnizeh/jobtrack/internal/db"
)

// db_backup writes a consistent snapshot of the live database with
// VACUUM INTO, so it is safe to run while the server is serving requests.
func main() {
	out := flag.String("out", "", "Snapshot path (default <database_path>.<timestamp>.bak)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	dst := *out
	if dst == "" {
		dst = fmt.Sprintf("%s.%s.bak", cfg.DatabasePath, time.Now().UTC().Format("20060102T150405Z"))
	}
	if _, err := os.Stat(dst); err == nil {
		fmt.Fprintf(os.Stderr, "Backup error: %s already exists\n", dst)
		os.Exit(1)
	}

	ctx := context.Background()
	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if _, err := database.Exec(ctx, `VACUUM INTO ?`, dst); err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database backup written to %s.\n", dst)
}
