package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/summarylab/summary-be/internal/worker/domain"
)

// errorDetailLimit caps the error detail carried in a dead-letter entry.
const errorDetailLimit = 800

// processJob runs a single dispatched job: rate-limit the start, claim,
// execute the pipeline, settle the outcome in the job store. Job-level
// failures (transient retries, permanent discards, exhaustion) are settled
// here and return nil; only infrastructure errors propagate to the loop's
// nack decision.
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	// At most rate_limit_max job starts per rolling window, on top of the
	// concurrency ceiling.
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	job, err := w.store.ClaimJob(ctx, msg.JobID, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			// Another worker (or a prior delivery) owns it; the delivery is
			// settled by acking.
			w.logger.Warn("Job already claimed, skipping",
				slog.String("job_id", msg.JobID),
			)
			return nil
		}
		return fmt.Errorf("failed to claim job: %w", err)
	}

	w.logger.Info("Processing job",
		slog.String("job_id", job.JobID),
		slog.String("kind", job.Kind),
		slog.String("mode", job.Mode),
		slog.Int("attempt", job.AttemptsMade),
		slog.Int("max_attempts", job.MaxAttempts),
	)

	// Unknown kinds are acknowledged as no-op successes so one physical
	// queue can carry future job kinds.
	if job.Kind != domain.KindPDFSummary {
		w.logger.Info("Ignoring job of unknown kind",
			slog.String("job_id", job.JobID),
			slog.String("kind", job.Kind),
		)
		if err := w.store.MarkCompleted(ctx, job.JobID); err != nil {
			return fmt.Errorf("failed to complete ignored job: %w", err)
		}
		return nil
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	heartbeatDone := make(chan struct{})
	go w.sendJobHeartbeat(jobCtx, job.JobID, heartbeatDone)
	defer close(heartbeatDone)

	result, runErr := w.pipeline.Run(jobCtx, job)
	if runErr == nil {
		creation := &domain.Creation{
			UserID:  job.UserID,
			Prompt:  result.PromptLabel,
			Content: result.Summary,
			Type:    domain.KindPDFSummary,
			JobID:   job.JobID,
		}

		if err := w.store.SaveCreation(ctx, creation); err != nil {
			// Persistence write errors retry like any other transient step.
			runErr = domain.Transient(fmt.Errorf("failed to persist result: %w", err))
		} else {
			if err := w.store.MarkCompleted(ctx, job.JobID); err != nil {
				return fmt.Errorf("failed to mark job completed: %w", err)
			}

			w.logger.Info("Job completed",
				slog.String("job_id", job.JobID),
				slog.Int("summary_length", len(result.Summary)),
			)
			return nil
		}
	}

	return w.settleFailure(ctx, job, runErr)
}

// settleFailure applies the failure taxonomy: permanent failures are
// discarded and dead-lettered immediately; transient failures retry with
// exponential backoff until the attempt budget is spent, then dead-letter.
func (w *Worker) settleFailure(ctx context.Context, job *domain.Job, runErr error) error {
	w.logger.Error("Job execution failed",
		slog.String("job_id", job.JobID),
		slog.Int("attempt", job.AttemptsMade),
		slog.String("error", runErr.Error()),
	)

	exhausted := job.AttemptsMade >= job.MaxAttempts

	if domain.IsPermanent(runErr) || exhausted {
		if exhausted && !domain.IsPermanent(runErr) {
			w.logger.Warn("Job exceeded max attempts",
				slog.String("job_id", job.JobID),
				slog.Int("attempts_made", job.AttemptsMade),
				slog.Int("max_attempts", job.MaxAttempts),
			)
		}

		// Dead-letter before the terminal transition; emission failures are
		// logged and swallowed so they never mask the original failure.
		w.emitDeadLetter(ctx, job, runErr)

		if err := w.store.MarkFailed(ctx, job.JobID, runErr.Error()); err != nil {
			return fmt.Errorf("failed to mark job failed: %w", err)
		}
		return nil
	}

	delay := backoffDelay(w.backoffBase, job.AttemptsMade)
	if err := w.store.ScheduleRetry(ctx, job.JobID, delay, runErr.Error()); err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}

	w.logger.Info("Job will be retried",
		slog.String("job_id", job.JobID),
		slog.Int("attempt", job.AttemptsMade),
		slog.Duration("delay", delay),
	)
	return nil
}

// emitDeadLetter publishes the failure snapshot for out-of-band triage.
func (w *Worker) emitDeadLetter(ctx context.Context, job *domain.Job, runErr error) {
	detail := fmt.Sprintf("%+v", runErr)
	if len(detail) > errorDetailLimit {
		// Back off to a rune boundary so the snapshot stays valid UTF-8.
		cut := errorDetailLimit
		for cut > 0 && !utf8.RuneStart(detail[cut]) {
			cut--
		}
		detail = detail[:cut]
	}

	entry := domain.DeadLetterEntry{
		OriginalJobID: job.JobID,
		UserID:        job.UserID,
		FileURL:       job.FileURL,
		Mode:          job.Mode,
		ErrorMessage:  runErr.Error(),
		ErrorDetail:   detail,
		FailedAt:      time.Now().UTC(),
	}

	body, err := json.Marshal(entry)
	if err != nil {
		w.logger.Error("Failed to marshal dead-letter entry",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := w.queue.PublishDeadLetter(ctx, body); err != nil {
		w.logger.Error("Failed to publish dead-letter entry",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		return
	}

	w.logger.Info("Job moved to dead-letter queue",
		slog.String("job_id", job.JobID),
	)
}

// sendJobHeartbeat periodically refreshes the job's heartbeat so the
// stalled-job reaper leaves live work alone.
func (w *Worker) sendJobHeartbeat(ctx context.Context, jobID string, done <-chan struct{}) {
	interval := w.heartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.UpdateHeartbeat(ctx, jobID); err != nil {
				w.logger.Warn("Failed to update job heartbeat",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// backoffDelay computes the delay before the next attempt: base doubled per
// completed attempt (5s, 10s, 20s, ...).
func backoffDelay(base time.Duration, attemptsMade int) time.Duration {
	if attemptsMade < 1 {
		attemptsMade = 1
	}
	return base * (1 << (attemptsMade - 1))
}
