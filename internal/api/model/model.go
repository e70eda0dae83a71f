package model

import (
	"database/sql"
	"time"
)

type Job struct {
	JobID        string         `db:"job_id"`
	Kind         string         `db:"kind"`
	UserID       string         `db:"user_id"`
	FileURL      string         `db:"file_url"`
	Mode         string         `db:"mode"`
	Status       string         `db:"status"`
	AttemptsMade int            `db:"attempts_made"`
	MaxAttempts  int            `db:"max_attempts"`
	LastError    sql.NullString `db:"last_error"`
	CreatedAt    time.Time      `db:"created_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
}
