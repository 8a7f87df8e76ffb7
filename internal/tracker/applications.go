package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/garnizeh/jobtrack/internal/analytics"
	"github.com/garnizeh/jobtrack/internal/dates"
	"github.com/garnizeh/jobtrack/internal/lifecycle"
	"github.com/garnizeh/jobtrack/internal/query"
	"github.com/garnizeh/jobtrack/internal/updatelog"
	"github.com/garnizeh/jobtrack/pkg/models"
)

// Options are the list filter, ordering and search inputs.
type Options struct {
	Status string
	Sort   string
	Order  string
	Search string
}

// Dashboard is everything the application list page shows.
type Dashboard struct {
	Applications       []models.Application `json:"applications"`
	Stats              analytics.Stats      `json:"stats"`
	StatusDistribution map[string]int       `json:"status_distribution"`
	WeeklyCohorts      []analytics.Cohort   `json:"weekly_cohorts"`
	Transitioned       int                  `json:"transitioned"`
}

// Dashboard loads the user's applications, lapses stale ones when enabled
// and derives the statistics from the resulting collection.
func (s *Service) Dashboard(ctx context.Context, userID int64, opts Options, set Settings) (*Dashboard, error) {
	apps, err := s.apps.ListApplications(ctx, query.Filter{
		UserID: userID,
		Status: opts.Status,
		Sort:   opts.Sort,
		Order:  opts.Order,
		Search: opts.Search,
	})
	if err != nil {
		return nil, fmt.Errorf("load applications: %w", err)
	}

	now := s.clock()
	today := dates.Truncate(now)

	var transitioned int
	if set.AutoNoResponse {
		transitioned, err = s.sweeper.Sweep(ctx, userID, apps, lifecycle.Options{
			ThresholdDays: set.NoResponseDays,
			Today:         today,
			Recipient:     set.recipient(),
		})
		if err != nil {
			// the list is still served; failed rows keep their old state
			s.logger.Warn("no response sweep incomplete", slog.Int64("user_id", userID), slog.Any("err", err))
		}
	}

	if set.InactiveBottom {
		InactiveLast(apps)
	}
	if apps == nil {
		apps = []models.Application{}
	}

	return &Dashboard{
		Applications:       apps,
		Stats:              analytics.Compute(apps, now),
		StatusDistribution: analytics.StatusDistribution(apps),
		WeeklyCohorts:      analytics.WeeklyCohorts(apps, now),
		Transitioned:       transitioned,
	}, nil
}

// InactiveLast moves rejected and no-response applications after the active
// ones. Each group is ordered by id, newest first.
func InactiveLast(apps []models.Application) {
	sort.SliceStable(apps, func(i, j int) bool {
		ii, ij := analytics.IsInactiveStatus(apps[i].Status), analytics.IsInactiveStatus(apps[j].Status)
		if ii != ij {
			return !ii
		}
		return apps[i].ID > apps[j].ID
	})
}

// AddApplication records a new application. An empty or unparseable date
// means today.
func (s *Service) AddApplication(ctx context.Context, userID int64, company, role, dateApplied string) (*models.Application, error) {
	company, role = strings.TrimSpace(company), strings.TrimSpace(role)
	if company == "" || role == "" {
		return nil, fmt.Errorf("%w: company and role are required", ErrInvalidInput)
	}

	today := s.today()
	applied := today
	if strings.TrimSpace(dateApplied) != "" {
		applied = dates.ParseAt(dateApplied, today)
	}

	uid := userID
	a := &models.Application{
		Company: company,
		Role:    role,
		Status:  updatelog.Applied,
		Updates: updatelog.Line(updatelog.Applied, applied),
		UserID:  &uid,
	}
	if _, err := s.apps.CreateApplication(ctx, a); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	return a, nil
}

// UpdateStatus appends a dated entry and makes it the current status.
func (s *Service) UpdateStatus(ctx context.Context, userID, id int64, status string) (*models.Application, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, fmt.Errorf("%w: status is required", ErrInvalidInput)
	}

	today := s.today()
	a, err := s.apps.MutateApplication(ctx, id, userID, func(a *models.Application) (bool, error) {
		a.Updates = updatelog.Append(a.Updates, status, today)
		a.Status = status
		return true, nil
	})
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// UpdateNotes replaces the free-text notes.
func (s *Service) UpdateNotes(ctx context.Context, userID, id int64, notes string) (*models.Application, error) {
	a, err := s.apps.MutateApplication(ctx, id, userID, func(a *models.Application) (bool, error) {
		a.Notes = notes
		return true, nil
	})
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// EditUpdates overwrites the whole log. Status is left as is, so the two
// may disagree afterwards.
func (s *Service) EditUpdates(ctx context.Context, userID, id int64, updates string) (*models.Application, error) {
	a, err := s.apps.MutateApplication(ctx, id, userID, func(a *models.Application) (bool, error) {
		a.Updates = updates
		return true, nil
	})
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// Duplicate copies an application into a new row owned by the same user.
func (s *Service) Duplicate(ctx context.Context, userID, id int64) (*models.Application, error) {
	src, err := s.apps.GetApplication(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("load application: %w", err)
	}
	if src == nil {
		return nil, ErrNotFound
	}

	uid := userID
	cp := &models.Application{
		Company: src.Company,
		Role:    src.Role,
		Status:  src.Status,
		Updates: src.Updates,
		Notes:   src.Notes,
		UserID:  &uid,
	}
	if _, err := s.apps.CreateApplication(ctx, cp); err != nil {
		return nil, fmt.Errorf("duplicate application: %w", err)
	}
	return cp, nil
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	return notFound(s.apps.DeleteApplication(ctx, id, userID))
}
