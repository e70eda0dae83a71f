package worker

import (
	"context"
	"encoding/json"
	"log/slog"
)

// dispatchDueRetries sweeps jobs whose backoff delay has elapsed and
// republishes a wake-up message for each. The dispatch claim is atomic so
// concurrent instances never publish the same retry twice.
func (w *Worker) dispatchDueRetries(ctx context.Context) {
	jobIDs, err := w.store.DueRetries(ctx, 100)
	if err != nil {
		w.logger.Error("Failed to list due retries",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, jobID := range jobIDs {
		claimed, err := w.store.ClaimRetryDispatch(ctx, jobID)
		if err != nil {
			w.logger.Error("Failed to claim retry dispatch",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !claimed {
			// Another instance got there first.
			continue
		}

		body, err := json.Marshal(map[string]string{"job_id": jobID})
		if err != nil {
			w.logger.Error("Failed to marshal retry message",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := w.queue.PublishJob(ctx, body); err != nil {
			w.logger.Error("Failed to publish retry message",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
			// Put the schedule back so the next sweep picks it up.
			if restoreErr := w.store.RestoreRetry(ctx, jobID); restoreErr != nil {
				w.logger.Error("Failed to restore retry schedule",
					slog.String("job_id", jobID),
					slog.String("error", restoreErr.Error()),
				)
			}
			continue
		}

		w.logger.Info("Retry dispatched",
			slog.String("job_id", jobID),
		)
	}
}

// reclaimStalled returns jobs whose worker stopped heartbeating to the
// waiting state so they get picked up again.
func (w *Worker) reclaimStalled(ctx context.Context) {
	reclaimed, err := w.store.ReclaimStalled(ctx, w.stalledAfter)
	if err != nil {
		w.logger.Error("Failed to reclaim stalled jobs",
			slog.String("error", err.Error()),
		)
		return
	}

	if reclaimed > 0 {
		w.logger.Warn("Reclaimed stalled jobs",
			slog.Int64("count", reclaimed),
		)
	}
}
