// Package tracker is the application service: it combines storage, the
// lifecycle sweep, analytics and backup reconciliation into the operations
// the HTTP layer exposes. It holds no per-user state between calls.
package tracker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/garnizeh/jobtrack/internal/dates"
	"github.com/garnizeh/jobtrack/internal/lifecycle"
	"github.com/garnizeh/jobtrack/pkg/repository"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("application not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// DefaultNoResponseDays is the staleness threshold when nothing else is set.
const DefaultNoResponseDays = 14

// Settings are the per-request display and lifecycle preferences.
type Settings struct {
	AutoNoResponse  bool   `json:"auto_no_response"`
	NoResponseDays  int    `json:"no_response_days"`
	InactiveBottom  bool   `json:"inactive_bottom"`
	EmailNoResponse bool   `json:"email_no_response"`
	EmailAddress    string `json:"email_address"`
}

// DefaultSettings returns the built-in preferences.
func DefaultSettings() Settings {
	return Settings{AutoNoResponse: true, NoResponseDays: DefaultNoResponseDays}
}

// recipient is where No Response notices go, or "" for none.
func (s Settings) recipient() string {
	if s.EmailNoResponse {
		return s.EmailAddress
	}
	return ""
}

type Service struct {
	users    repository.UserRepo
	apps     repository.ApplicationRepo
	sweeper  *lifecycle.Sweeper
	defaults Settings
	clock    func() time.Time
	logger   *slog.Logger
}

// New builds a Service. notifier may be nil, in which case transitions are
// never announced.
func New(users repository.UserRepo, apps repository.ApplicationRepo, notifier lifecycle.Notifier, defaults Settings, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:    users,
		apps:     apps,
		sweeper:  lifecycle.NewSweeper(apps, notifier, logger),
		defaults: defaults,
		clock:    dates.Now,
		logger:   logger,
	}
}

// Defaults returns the configured preferences requests start from.
func (s *Service) Defaults() Settings {
	return s.defaults
}

// SetClock replaces the wall clock used for today's date.
func (s *Service) SetClock(fn func() time.Time) {
	if fn != nil {
		s.clock = fn
	}
}

func (s *Service) today() time.Time {
	return dates.Truncate(s.clock())
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
