package tracker

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/garnizeh/jobtrack/internal/backup"
	"github.com/garnizeh/jobtrack/internal/reconcile"
	"github.com/garnizeh/jobtrack/pkg/models"
)

// Backup writes the user's applications as a JSON backup.
func (s *Service) Backup(ctx context.Context, userID int64, w io.Writer) error {
	apps, err := s.apps.ListAllApplications(ctx, userID)
	if err != nil {
		return fmt.Errorf("load applications: %w", err)
	}
	return backup.Encode(w, apps)
}

// ExportCSV writes the user's applications as CSV.
func (s *Service) ExportCSV(ctx context.Context, userID int64, w io.Writer) error {
	apps, err := s.apps.ListAllApplications(ctx, userID)
	if err != nil {
		return fmt.Errorf("load applications: %w", err)
	}
	return backup.WriteCSV(w, apps)
}

// Restore replaces (Restore) or extends (Merge) the user's applications
// with incoming. Records are validated before anything is touched, and the
// rebuild is all or nothing. It returns the size of the new collection.
func (s *Service) Restore(ctx context.Context, userID int64, mode reconcile.Mode, incoming []models.Application) (int, error) {
	if err := reconcile.Validate(incoming, mode); err != nil {
		return 0, err
	}

	now := s.clock()
	var n int
	err := s.apps.RebuildApplications(ctx, userID, func(existing []models.Application, ids models.IDState) ([]models.Application, error) {
		out, err := reconcile.Reconcile(existing, incoming, mode, ids, now)
		if err != nil {
			return nil, err
		}
		n = len(out)
		return out, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", mode, err)
	}

	s.logger.Info("applications restored",
		slog.Int64("user_id", userID),
		slog.String("mode", string(mode)),
		slog.Int("incoming", len(incoming)),
		slog.Int("total", n),
	)
	return n, nil
}
