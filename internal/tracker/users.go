package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/jobtrack/pkg/models"
	"github.com/garnizeh/jobtrack/pkg/repository"
)

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, username, password, confirm string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{Username: username, PasswordHash: string(hash)}
	if _, err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate checks a username and password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// User returns the account for id, or ErrInvalidCredentials when it no
// longer exists.
func (s *Service) User(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
