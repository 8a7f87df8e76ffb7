// Package lifecycle applies the only automatic status change: an application
// whose last log entry is older than the staleness threshold lapses to
// "No Response". It runs whenever a user's applications are read.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garnizeh/jobtrack/internal/dates"
	"github.com/garnizeh/jobtrack/internal/updatelog"
	"github.com/garnizeh/jobtrack/pkg/models"
	"github.com/garnizeh/jobtrack/pkg/repository"
)

// Decision is the outcome of evaluating one log against the threshold.
type Decision struct {
	Lapse       bool
	ElapsedDays int
}

// Decide evaluates log at today. A blank log, a last line already labelled
// No Response and a last line without a date never lapse. An unparseable
// date counts as today, so it never lapses either.
func Decide(log string, thresholdDays int, today time.Time) Decision {
	last, ok := updatelog.LastEntry(log)
	if !ok || last.Label == updatelog.NoResponse || !last.Dated {
		return Decision{}
	}
	elapsed := dates.DaysBetween(dates.ParseAt(last.Date, today), today)
	return Decision{Lapse: elapsed > thresholdDays, ElapsedDays: elapsed}
}

// Lapse appends a No Response entry dated today and syncs the status.
func Lapse(app *models.Application, today time.Time) {
	app.Updates = updatelog.Append(app.Updates, updatelog.NoResponse, today)
	app.Status = updatelog.NoResponse
}

// Event describes a completed transition for notification purposes.
type Event struct {
	ApplicationID int64
	Recipient     string
	Company       string
	Role          string
	Days          int
}

// Notifier is told about transitions after they commit. Implementations must
// not block; delivery problems are theirs to handle.
type Notifier interface {
	NoResponse(ctx context.Context, ev Event)
}

// Store is the storage capability the sweeper needs.
type Store interface {
	MutateApplication(ctx context.Context, id, userID int64, fn repository.MutateFunc) (*models.Application, error)
}

// Options configures one sweep.
type Options struct {
	ThresholdDays int
	Today         time.Time
	// Recipient, when set, receives a notification per transition.
	Recipient string
}

type Sweeper struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. notifier may be nil.
func NewSweeper(store Store, notifier Notifier, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, notifier: notifier, logger: logger}
}

// Sweep transitions every stale application in apps, updating the slice in
// place. Each transition re-reads and re-decides inside its own transaction,
// so concurrent sweeps never append a second No Response entry. It returns
// the number of transitions and any storage errors; a failed application
// does not stop the sweep.
func (s *Sweeper) Sweep(ctx context.Context, userID int64, apps []models.Application, opts Options) (int, error) {
	today := opts.Today
	if today.IsZero() {
		today = dates.Now()
	}

	var (
		changed int
		errs    []error
	)
	for i := range apps {
		if !Decide(apps[i].Updates, opts.ThresholdDays, today).Lapse {
			continue
		}

		var (
			days   int
			lapsed bool
		)
		updated, err := s.store.MutateApplication(ctx, apps[i].ID, userID, func(a *models.Application) (bool, error) {
			d := Decide(a.Updates, opts.ThresholdDays, today)
			if !d.Lapse {
				return false, nil
			}
			days, lapsed = d.ElapsedDays, true
			Lapse(a, today)
			return true, nil
		})
		switch {
		case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrNotFound):
			s.logger.Info("lifecycle: skipped application", slog.Int64("id", apps[i].ID), slog.Any("err", err))
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("lapse application %d: %w", apps[i].ID, err))
			continue
		}

		apps[i] = *updated
		if !lapsed {
			// another request already lapsed it
			continue
		}
		changed++
		s.logger.Info("lifecycle: marked no response",
			slog.Int64("id", updated.ID),
			slog.Int("days", days),
		)
		if s.notifier != nil && opts.Recipient != "" {
			s.notifier.NoResponse(ctx, Event{
				ApplicationID: updated.ID,
				Recipient:     opts.Recipient,
				Company:       updated.Company,
				Role:          updated.Role,
				Days:          days,
			})
		}
	}
	return changed, errors.Join(errs...)
}
