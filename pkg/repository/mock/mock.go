package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/garnizeh/jobtrack/internal/query"
	"github.com/garnizeh/jobtrack/pkg/models"
	"github.com/garnizeh/jobtrack/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	Users *mockUserRepo
	Apps  *mockApplicationRepo
	Jobs  *mockJobRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		Users: &mockUserRepo{},
		Apps:  &mockApplicationRepo{rows: map[int64]models.Application{}},
		Jobs:  &mockJobRepo{},
	}
}

var (
	_ repository.UserRepo        = (*mockUserRepo)(nil)
	_ repository.ApplicationRepo = (*mockApplicationRepo)(nil)
	_ repository.JobRepo         = (*mockJobRepo)(nil)
)

type mockUserRepo struct {
	mu        sync.Mutex
	Stored    []models.User
	CreateErr error
	GetErr    error
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	for _, s := range m.Stored {
		if s.Username == u.Username {
			return 0, fmt.Errorf("username %q: %w", u.Username, repository.ErrDuplicate)
		}
	}
	u.ID = int64(len(m.Stored) + 1)
	m.Stored = append(m.Stored, *u)
	return u.ID, nil
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.ID == id })
}

func (m *mockUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.Username == username })
}

func (m *mockUserRepo) find(match func(models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, u := range m.Stored {
		if match(u) {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

// mockApplicationRepo keeps rows in memory. Listing honors the owner,
// status and search filters and orders by id only.
type mockApplicationRepo struct {
	mu      sync.Mutex
	rows    map[int64]models.Application
	nextID  int64
	ListErr error
}

func owned(a models.Application, userID int64) bool {
	return a.UserID != nil && *a.UserID == userID
}

func (m *mockApplicationRepo) sorted(keep func(models.Application) bool, desc bool) []models.Application {
	var out []models.Application
	for _, a := range m.rows {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *mockApplicationRepo) ListApplications(ctx context.Context, f query.Filter) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	search := strings.ToLower(f.Search)
	return m.sorted(func(a models.Application) bool {
		if !owned(a, f.UserID) {
			return false
		}
		if f.Status != "" && a.Status != f.Status {
			return false
		}
		if search != "" {
			hay := strings.ToLower(a.Company + "\x00" + a.Role + "\x00" + a.Notes)
			return strings.Contains(hay, search)
		}
		return true
	}, f.SortOrder() == "desc"), nil
}

func (m *mockApplicationRepo) ListAllApplications(ctx context.Context, userID int64) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.sorted(func(a models.Application) bool { return owned(a, userID) }, false), nil
}

func (m *mockApplicationRepo) GetApplication(ctx context.Context, id, userID int64) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || !owned(a, userID) {
		return nil, nil
	}
	return &a, nil
}

func (m *mockApplicationRepo) CreateApplication(ctx context.Context, a *models.Application) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	m.rows[a.ID] = *a
	return a.ID, nil
}

func (m *mockApplicationRepo) MutateApplication(ctx context.Context, id, userID int64, fn repository.MutateFunc) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || !owned(a, userID) {
		return nil, fmt.Errorf("application %d: %w", id, repository.ErrNotFound)
	}
	changed, err := fn(&a)
	if err != nil {
		return nil, err
	}
	if changed {
		m.rows[id] = a
	}
	return &a, nil
}

func (m *mockApplicationRepo) DeleteApplication(ctx context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || !owned(a, userID) {
		return fmt.Errorf("application %d: %w", id, repository.ErrNotFound)
	}
	delete(m.rows, id)
	return nil
}

func (m *mockApplicationRepo) RebuildApplications(ctx context.Context, userID int64, build repository.BuildFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.sorted(func(a models.Application) bool { return owned(a, userID) }, false)
	ids := models.IDState{Reserved: map[int64]struct{}{}, High: m.nextID}
	for id, a := range m.rows {
		if !owned(a, userID) {
			ids.Reserved[id] = struct{}{}
		}
	}

	next, err := build(existing, ids)
	if err != nil {
		return err
	}
	for _, a := range next {
		if _, taken := ids.Reserved[a.ID]; taken {
			return fmt.Errorf("insert application %d: %w", a.ID, repository.ErrDuplicate)
		}
	}

	for _, a := range existing {
		delete(m.rows, a.ID)
	}
	for _, a := range next {
		uid := userID
		a.UserID = &uid
		m.rows[a.ID] = a
		if a.ID > m.nextID {
			m.nextID = a.ID
		}
	}
	return nil
}

type mockJobRepo struct {
	mu   sync.Mutex
	Jobs []models.BackgroundJob
}

func (m *mockJobRepo) Enqueue(ctx context.Context, j *models.BackgroundJob) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.ID = int64(len(m.Jobs) + 1)
	j.Status = "queued"
	m.Jobs = append(m.Jobs, *j)
	return j.ID, nil
}

func (m *mockJobRepo) FetchNext(ctx context.Context) (*models.BackgroundJob, error) { return nil, nil }

func (m *mockJobRepo) UpdateJob(ctx context.Context, j *models.BackgroundJob) error { return nil }

func (m *mockJobRepo) MoveToDeadLetter(ctx context.Context, j *models.BackgroundJob) error {
	return nil
}
