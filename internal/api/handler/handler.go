package handler

import (
	"context"
	"log/slog"

	"github.com/summarylab/summary-be/internal/api/model"
	"github.com/summarylab/summary-be/internal/api/storage"
)

// Gin context keys populated by the auth middleware.
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUserPlan = "user_plan"
)

// JobStore is the handler's view of the job store.
type JobStore interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJobForUser(ctx context.Context, jobID, userID string) (*model.Job, error)
	GetCreationContent(ctx context.Context, jobID, userID string) (*string, error)
	ScheduleDispatch(ctx context.Context, jobID string) error
}

// Publisher emits job dispatch messages to the broker.
type Publisher interface {
	PublishJob(ctx context.Context, body []byte) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Storage     JobStore
	Publisher   Publisher
	MaxAttempts int
}

// SummaryHandler handles summary job HTTP requests
type SummaryHandler struct {
	logger      *slog.Logger
	storage     JobStore
	publisher   Publisher
	maxAttempts int
}

// NewSummaryHandler creates a new SummaryHandler instance
func NewSummaryHandler(deps *Dependencies) *SummaryHandler {
	return &SummaryHandler{
		logger:      deps.Logger,
		storage:     deps.Storage,
		publisher:   deps.Publisher,
		maxAttempts: deps.MaxAttempts,
	}
}

var _ JobStore = (*storage.Storage)(nil)
