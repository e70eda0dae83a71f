package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/summarylab/summary-be/internal/api/domain"
	"github.com/summarylab/summary-be/internal/api/model"
	"github.com/summarylab/summary-be/shared/postgresql"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// CreateJob inserts a new job in the waiting state.
func (s *Storage) CreateJob(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, kind, user_id, file_url,
			mode, status, attempts_made, max_attempts, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.Kind,
		job.UserID,
		job.FileURL,
		job.Mode,
		job.Status,
		job.AttemptsMade,
		job.MaxAttempts,
		job.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJobForUser fetches a job scoped to its owner. A job belonging to a
// different user is indistinguishable from a missing one.
func (s *Storage) GetJobForUser(ctx context.Context, jobID, userID string) (*model.Job, error) {
	var job model.Job
	query := `
		SELECT
			job_id, kind, user_id, file_url,
			mode, status, attempts_made, max_attempts,
			last_error, created_at, completed_at
		FROM jobs
		WHERE job_id = $1 AND user_id = $2
	`

	err := s.db.GetContext(ctx, &job, query, jobID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// GetCreationContent returns the stored summary for a completed job, or nil
// when the job finished without producing one. Scoped to the owning user
// like the job lookup itself.
func (s *Storage) GetCreationContent(ctx context.Context, jobID, userID string) (*string, error) {
	var content string
	query := `SELECT content FROM creations WHERE job_id = $1 AND user_id = $2`

	err := s.db.GetContext(ctx, &content, query, jobID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get creation content: %w", err)
	}

	return &content, nil
}

// ScheduleDispatch marks a waiting job for pickup by the dispatch sweep.
// Used when the immediate publish after creation fails.
func (s *Storage) ScheduleDispatch(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs
		SET next_attempt_at = NOW()
		WHERE job_id = $1 AND status = $2
	`

	_, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusWaiting)
	if err != nil {
		return fmt.Errorf("failed to schedule dispatch: %w", err)
	}

	return nil
}
