package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/garnizeh/jobtrack/api"
	dbfs "github.com/garnizeh/jobtrack/db"
	"github.com/garnizeh/jobtrack/internal/config"
	"github.com/garnizeh/jobtrack/internal/db"
	"github.com/garnizeh/jobtrack/internal/jobs"
	"github.com/garnizeh/jobtrack/internal/notify"
	"github.com/garnizeh/jobtrack/internal/repository/sqlite"
	"github.com/garnizeh/jobtrack/internal/tracker"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	// a missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Printf("Starting jobtrack server version %s (built at %s)", version, buildTime)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	api.SetLogger(logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Open database connection
	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
			log.Fatalf("Failed to migrate DB: %v", err)
		}
	}

	repo := sqlite.New(database, logger)

	// No Response notices go through the job queue
	var sender notify.Sender
	mailCfg := notify.MailConfig(cfg.Mail)
	if mailCfg.Configured() {
		sender = notify.NewMailer(mailCfg)
	} else {
		log.Println("Mail not configured, No Response notices will only be logged")
	}
	pool := jobs.NewWorkerPool(repo, map[string]jobs.Handler{
		notify.JobType: notify.Handler(sender, logger),
	}, logger, cfg.Workers)
	pool.Start(ctx)

	defaults := tracker.Settings{
		AutoNoResponse: cfg.Tracker.AutoNoResponse,
		NoResponseDays: cfg.Tracker.NoResponseDays,
	}
	svc := tracker.New(repo, repo, notify.NewQueue(repo, logger), defaults, logger)

	handler := api.SetupRoutes(cfg, version, buildTime, svc)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	stop()
	pool.Stop()

	// Close database connection
	if err := database.Close(); err != nil {
		log.Printf("Error closing DB: %v", err)
	}

	log.Println("Server exited")
}
