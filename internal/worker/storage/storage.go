package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/summarylab/summary-be/internal/worker/domain"
)

// Storage handles all database operations for the worker
type Storage struct {
	db        *sqlx.DB
	logger    *slog.Logger
	retention int
}

// NewStorage creates a new Storage instance. retention is the number of
// completed jobs kept for late status queries; older ones are evicted.
func NewStorage(db *sqlx.DB, logger *slog.Logger, retention int) *Storage {
	return &Storage{
		db:        db,
		logger:    logger,
		retention: retention,
	}
}

// ClaimJob atomically moves a WAITING job to ACTIVE for this worker and
// increments its attempt counter. The status guard in the WHERE clause means
// two racing workers can never both claim the same job.
func (s *Storage) ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    worker_id = $2,
		    attempts_made = attempts_made + 1,
		    next_attempt_at = NULL,
		    started_at = NOW(),
		    last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status = $4
		RETURNING job_id, kind, user_id, file_url, mode, attempts_made, max_attempts
	`

	var job domain.Job
	err := s.db.QueryRowContext(ctx, query, domain.JobStatusActive, workerID, jobID, domain.JobStatusWaiting).Scan(
		&job.JobID,
		&job.Kind,
		&job.UserID,
		&job.FileURL,
		&job.Mode,
		&job.AttemptsMade,
		&job.MaxAttempts,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to claim job - already claimed or not found",
				slog.String("job_id", jobID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrJobAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.Status = domain.JobStatusActive
	job.WorkerID = workerID

	s.logger.Info("Job claimed",
		slog.String("job_id", jobID),
		slog.String("worker_id", workerID),
		slog.Int("attempt", job.AttemptsMade),
	)

	return &job, nil
}

// ScheduleRetry returns an ACTIVE job to WAITING with a due time, so the
// retry dispatcher republishes it after the backoff delay has elapsed.
func (s *Storage) ScheduleRetry(ctx context.Context, jobID string, delay time.Duration, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    worker_id = NULL,
		    next_attempt_at = NOW() + make_interval(secs => $2),
		    last_error = $3,
		    updated_at = NOW()
		WHERE job_id = $4
		  AND status = $5
	`

	_, err := s.db.ExecContext(ctx, query, domain.JobStatusWaiting, delay.Seconds(), errMsg, jobID, domain.JobStatusActive)
	if err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}

	s.logger.Info("Retry scheduled",
		slog.String("job_id", jobID),
		slog.Duration("delay", delay),
	)

	return nil
}

// MarkCompleted moves a job to its terminal COMPLETED state and evicts the
// oldest completed jobs beyond the retention cap. Failed jobs are never
// evicted; they are diagnostic evidence.
func (s *Storage) MarkCompleted(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $2
	`

	if _, err := s.db.ExecContext(ctx, query, domain.JobStatusCompleted, jobID); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	evict := `
		DELETE FROM jobs
		WHERE status = $1
		  AND job_id NOT IN (
			SELECT job_id FROM jobs
			WHERE status = $1
			ORDER BY completed_at DESC
			LIMIT $2
		  )
	`

	result, err := s.db.ExecContext(ctx, evict, domain.JobStatusCompleted, s.retention)
	if err != nil {
		// Eviction is housekeeping; the job itself completed.
		s.logger.Warn("Failed to evict old completed jobs",
			slog.String("error", err.Error()),
		)
		return nil
	}

	if evicted, err := result.RowsAffected(); err == nil && evicted > 0 {
		s.logger.Debug("Evicted old completed jobs",
			slog.Int64("count", evicted),
		)
	}

	return nil
}

// MarkFailed moves a job to its terminal FAILED state.
func (s *Storage) MarkFailed(ctx context.Context, jobID, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    worker_id = NULL,
		    next_attempt_at = NULL,
		    last_error = $2,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errMsg, jobID); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	s.logger.Info("Job marked failed",
		slog.String("job_id", jobID),
	)

	return nil
}

// SaveCreation persists the result record of a successful job, keyed by the
// originating job id for status-query correlation.
func (s *Storage) SaveCreation(ctx context.Context, creation *domain.Creation) error {
	query := `
		INSERT INTO creations (user_id, prompt, content, type, job_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err := s.db.ExecContext(ctx, query,
		creation.UserID,
		creation.Prompt,
		creation.Content,
		creation.Type,
		creation.JobID,
	)
	if err != nil {
		return fmt.Errorf("failed to save creation: %w", err)
	}

	return nil
}

// UpdateHeartbeat updates the last_heartbeat_at timestamp for an active job.
func (s *Storage) UpdateHeartbeat(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs
		SET last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $1 AND status = $2
	`

	result, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusActive)
	if err != nil {
		return fmt.Errorf("failed to update job heartbeat: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		s.logger.Warn("Job heartbeat update - no rows affected (job may not be active)",
			slog.String("job_id", jobID),
		)
	}

	return nil
}

// DueRetries returns ids of WAITING jobs whose retry delay has elapsed.
func (s *Storage) DueRetries(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT job_id FROM jobs
		WHERE status = $1
		  AND next_attempt_at IS NOT NULL
		  AND next_attempt_at <= NOW()
		ORDER BY next_attempt_at
		LIMIT $2
	`

	var ids []string
	if err := s.db.SelectContext(ctx, &ids, query, domain.JobStatusWaiting, limit); err != nil {
		return nil, fmt.Errorf("failed to list due retries: %w", err)
	}

	return ids, nil
}

// ClaimRetryDispatch atomically clears a due job's retry time. Only the
// dispatcher instance that wins the update republishes, so a job is not
// double-published by concurrent workers.
func (s *Storage) ClaimRetryDispatch(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE jobs
		SET next_attempt_at = NULL,
		    updated_at = NOW()
		WHERE job_id = $1
		  AND status = $2
		  AND next_attempt_at IS NOT NULL
		  AND next_attempt_at <= NOW()
	`

	result, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusWaiting)
	if err != nil {
		return false, fmt.Errorf("failed to claim retry dispatch: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// RestoreRetry makes a dispatch-claimed job due again after a failed publish.
func (s *Storage) RestoreRetry(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs
		SET next_attempt_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $1 AND status = $2
	`

	if _, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusWaiting); err != nil {
		return fmt.Errorf("failed to restore retry: %w", err)
	}

	return nil
}

// ReclaimStalled returns ACTIVE jobs with stale heartbeats to WAITING so
// another worker instance can pick them up. The reclaimed jobs become due
// immediately.
func (s *Storage) ReclaimStalled(ctx context.Context, stalledAfter time.Duration) (int64, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    worker_id = NULL,
		    next_attempt_at = NOW(),
		    updated_at = NOW()
		WHERE status = $2
		  AND last_heartbeat_at < NOW() - make_interval(secs => $3)
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusWaiting, domain.JobStatusActive, stalledAfter.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stalled jobs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows > 0 {
		s.logger.Warn("Reclaimed stalled jobs",
			slog.Int64("count", rows),
		)
	}

	return rows, nil
}
