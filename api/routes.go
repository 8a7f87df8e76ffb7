package api

import (
	"github.com/gorilla/mux"

	"github.com/garnizeh/jobtrack/internal/config"
	"github.com/garnizeh/jobtrack/internal/tracker"
)

func SetupRoutes(cfg *config.Config, version, buildTime string, svc *tracker.Service) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(svc, cfg.JWTSecret, cfg.TokenDuration)
	appsHandler := NewApplicationsHandler(svc)
	backupHandler := NewBackupHandler(svc)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Auth endpoints
	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")

	// Applications endpoints
	apiV1.HandleFunc("/applications", appsHandler.Dashboard).Methods("GET")
	apiV1.HandleFunc("/applications", appsHandler.Create).Methods("POST")
	apiV1.HandleFunc("/applications/{id:[0-9]+}", appsHandler.Delete).Methods("DELETE")
	apiV1.HandleFunc("/applications/{id:[0-9]+}/duplicate", appsHandler.Duplicate).Methods("POST")
	apiV1.HandleFunc("/applications/{id:[0-9]+}/status", appsHandler.UpdateStatus).Methods("POST")
	apiV1.HandleFunc("/applications/{id:[0-9]+}/notes", appsHandler.UpdateNotes).Methods("PUT")
	apiV1.HandleFunc("/applications/{id:[0-9]+}/updates", appsHandler.EditUpdates).Methods("PUT")

	// Backup endpoints
	apiV1.HandleFunc("/backup", backupHandler.Backup).Methods("GET")
	apiV1.HandleFunc("/export.csv", backupHandler.ExportCSV).Methods("GET")
	apiV1.HandleFunc("/restore", backupHandler.Restore).Methods("POST")

	return r
}
