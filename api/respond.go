package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/garnizeh/jobtrack/internal/backup"
	"github.com/garnizeh/jobtrack/internal/reconcile"
	"github.com/garnizeh/jobtrack/internal/tracker"
	"github.com/garnizeh/jobtrack/pkg/repository"
)

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

// statusFor maps service and storage errors onto HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, tracker.ErrInvalidInput),
		errors.Is(err, tracker.ErrPasswordMismatch),
		errors.Is(err, reconcile.ErrInvalidRecord),
		errors.Is(err, reconcile.ErrInvalidMode),
		errors.Is(err, backup.ErrInvalidBackup):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, tracker.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrUsernameTaken),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, reconcile.ErrDuplicateID):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Internal errors are logged and
// replaced with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", RequestID(r.Context())),
			slog.Any("err", err),
		)
		msg = "internal error"
	}
	writeJSON(w, map[string]string{"error": msg}, status)
}
