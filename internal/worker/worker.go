package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/summarylab/summary-be/internal/pipeline"
	"github.com/summarylab/summary-be/internal/worker/domain"
	"github.com/summarylab/summary-be/shared/rabbitmq"
)

// JobStore is the worker's view of the shared job store. It is the single
// source of truth for job state; the broker only carries wake-up messages.
type JobStore interface {
	ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error)
	ScheduleRetry(ctx context.Context, jobID string, delay time.Duration, errMsg string) error
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID, errMsg string) error
	SaveCreation(ctx context.Context, creation *domain.Creation) error
	UpdateHeartbeat(ctx context.Context, jobID string) error
	DueRetries(ctx context.Context, limit int) ([]string, error)
	ClaimRetryDispatch(ctx context.Context, jobID string) (bool, error)
	RestoreRetry(ctx context.Context, jobID string) error
	ReclaimStalled(ctx context.Context, stalledAfter time.Duration) (int64, error)
}

// Queue is the broker surface the worker writes to: job dispatch messages
// for retries, and dead-letter snapshots.
type Queue interface {
	PublishJob(ctx context.Context, body []byte) error
	PublishDeadLetter(ctx context.Context, body []byte) error
}

// TaskRunner executes the task pipeline for one claimed job.
type TaskRunner interface {
	Run(ctx context.Context, job *domain.Job) (*pipeline.Result, error)
}

// Config holds worker configuration
type Config struct {
	Logger            *slog.Logger
	Store             JobStore
	Queue             Queue
	RabbitClient      *rabbitmq.Client
	Pipeline          TaskRunner
	WorkerID          string
	Concurrency       int
	JobTimeout        time.Duration
	RateLimitMax      int
	RateLimitWindow   time.Duration
	HeartbeatInterval time.Duration
	StalledAfter      time.Duration
	BackoffBase       time.Duration
}

// Worker consumes job dispatch messages and runs them to completion or
// failure. Concurrency is the number of in-flight jobs per instance;
// production runs with 1 so the pipeline's external calls never interleave.
type Worker struct {
	logger            *slog.Logger
	store             JobStore
	queue             Queue
	rabbitClient      *rabbitmq.Client
	pipeline          TaskRunner
	workerID          string
	concurrency       int
	jobTimeout        time.Duration
	heartbeatInterval time.Duration
	stalledAfter      time.Duration
	backoffBase       time.Duration
	limiter           *rate.Limiter
	cron              *cron.Cron
	jobsChan          chan *domain.JobMessage
	wg                sync.WaitGroup
	stopChan          chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	// The limiter caps job starts per rolling window (10 per 60s by
	// default), independent of the concurrency ceiling.
	limit := rate.Limit(float64(cfg.RateLimitMax) / cfg.RateLimitWindow.Seconds())

	return &Worker{
		logger:            cfg.Logger,
		store:             cfg.Store,
		queue:             cfg.Queue,
		rabbitClient:      cfg.RabbitClient,
		pipeline:          cfg.Pipeline,
		workerID:          cfg.WorkerID,
		concurrency:       cfg.Concurrency,
		jobTimeout:        cfg.JobTimeout,
		heartbeatInterval: cfg.HeartbeatInterval,
		stalledAfter:      cfg.StalledAfter,
		backoffBase:       cfg.BackoffBase,
		limiter:           rate.NewLimiter(limit, cfg.RateLimitMax),
		jobsChan:          make(chan *domain.JobMessage),
		stopChan:          make(chan struct{}),
	}
}

// Start begins consuming and processing jobs. It blocks until ctx is
// canceled, Stop is called, or the delivery channel closes; an unexpected
// close is returned as ErrConsumerClosed so the process exits instead of
// idling without a consumer.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)

	if err := w.startSchedules(ctx); err != nil {
		return fmt.Errorf("failed to start schedules: %w", err)
	}

	return w.startMessageDispatcher(ctx, deliveries)
}

// startSchedules runs the retry dispatcher and the stalled-job reaper on
// cron schedules.
func (w *Worker) startSchedules(ctx context.Context) error {
	w.cron = cron.New()

	if _, err := w.cron.AddFunc("@every 2s", func() {
		w.dispatchDueRetries(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule retry dispatcher: %w", err)
	}

	if _, err := w.cron.AddFunc("@every 1m", func() {
		w.reclaimStalled(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule stalled-job reaper: %w", err)
	}

	w.cron.Start()
	return nil
}

// Stop gracefully stops the worker: no new dequeues, the in-flight job
// finishes, then the loops exit.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")

	close(w.stopChan)

	if w.cron != nil {
		<-w.cron.Stop().Done()
	}

	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
