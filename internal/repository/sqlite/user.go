package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/jobtrack/pkg/models"
	"github.com/garnizeh/jobtrack/pkg/repository"
)

func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if u == nil {
		return 0, fmt.Errorf("user is nil")
	}

	created := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO users (username, password_hash, created) VALUES (?, ?, ?)`, u.Username, u.PasswordHash, created)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("username %q: %w", u.Username, repository.ErrDuplicate)
		}
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID, u.Created = id, created
	return id, nil
}

func (r *SQLiteRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getUser(ctx, `SELECT id, username, password_hash, created FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, `SELECT id, username, password_hash, created FROM users WHERE username = ?`, username)
}

func (r *SQLiteRepo) getUser(ctx context.Context, q string, arg any) (*models.User, error) {
	var u models.User
	if err := r.conn.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &u, nil
}
