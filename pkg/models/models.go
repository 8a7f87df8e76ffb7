package models

import (
	"encoding/json"
	"time"
)

// Domain models matching the database schema in db/migrations/0001_init.sql

type User struct {
	ID           int64  `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"`
	Created      int64  `json:"created" db:"created"`
}

// Application is one job application. Status mirrors the label of the last
// line of Updates on every path except a raw edit of Updates.
type Application struct {
	ID      int64  `json:"id" db:"id"`
	Company string `json:"company" db:"company"`
	Role    string `json:"role" db:"role"`
	Status  string `json:"status" db:"status"`
	Updates string `json:"updates" db:"updates"`
	Notes   string `json:"notes" db:"notes"`
	UserID  *int64 `json:"-" db:"user_id"`
}

// IDState describes identities that a rebuild of one user's applications
// must not reuse: ids held by other owners, and the highest id the table
// has ever handed out.
type IDState struct {
	Reserved map[int64]struct{}
	High     int64
}

// BackgroundJob is a queued unit of asynchronous work, such as a notification.
type BackgroundJob struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	NextTryAt   *time.Time      `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}
