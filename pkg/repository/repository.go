package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/jobtrack/internal/query"
	"github.com/garnizeh/jobtrack/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("concurrent modification")
	ErrDuplicate = errors.New("duplicate")
)

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// MutateFunc edits an application in place and reports whether anything
// changed. Returning an error aborts the surrounding transaction.
type MutateFunc func(app *models.Application) (bool, error)

// BuildFunc turns a user's current applications into the full replacement
// set, given the identities it must avoid.
type BuildFunc func(existing []models.Application, ids models.IDState) ([]models.Application, error)

type ApplicationRepo interface {
	ListApplications(ctx context.Context, f query.Filter) ([]models.Application, error)
	ListAllApplications(ctx context.Context, userID int64) ([]models.Application, error)
	GetApplication(ctx context.Context, id, userID int64) (*models.Application, error)
	CreateApplication(ctx context.Context, a *models.Application) (int64, error)
	MutateApplication(ctx context.Context, id, userID int64, fn MutateFunc) (*models.Application, error)
	DeleteApplication(ctx context.Context, id, userID int64) error
	RebuildApplications(ctx context.Context, userID int64, build BuildFunc) error
}

type JobRepo interface {
	Enqueue(ctx context.Context, j *models.BackgroundJob) (int64, error)
	FetchNext(ctx context.Context) (*models.BackgroundJob, error)
	UpdateJob(ctx context.Context, j *models.BackgroundJob) error
	MoveToDeadLetter(ctx context.Context, j *models.BackgroundJob) error
}
