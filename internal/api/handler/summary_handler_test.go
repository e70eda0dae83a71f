package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summarylab/summary-be/internal/api/domain"
	"github.com/summarylab/summary-be/internal/api/handler"
	"github.com/summarylab/summary-be/internal/api/model"
	"github.com/summarylab/summary-be/internal/api/router"
)

type stubStorage struct {
	createdJobs []*model.Job
	createErr   error

	job    *model.Job
	getErr error

	content    *string
	contentErr error

	dispatched  []string
	dispatchErr error
}

func (s *stubStorage) CreateJob(_ context.Context, job *model.Job) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.createdJobs = append(s.createdJobs, job)
	return nil
}

func (s *stubStorage) GetJobForUser(_ context.Context, jobID, userID string) (*model.Job, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.job == nil || s.job.JobID != jobID || s.job.UserID != userID {
		return nil, domain.ErrJobNotFound
	}
	return s.job, nil
}

func (s *stubStorage) GetCreationContent(_ context.Context, _, _ string) (*string, error) {
	return s.content, s.contentErr
}

func (s *stubStorage) ScheduleDispatch(_ context.Context, jobID string) error {
	if s.dispatchErr != nil {
		return s.dispatchErr
	}
	s.dispatched = append(s.dispatched, jobID)
	return nil
}

type stubPublisher struct {
	published [][]byte
	err       error
}

func (p *stubPublisher) PublishJob(_ context.Context, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, body)
	return nil
}

func newTestRouter(storage *stubStorage, publisher *stubPublisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return router.SetupRouter(&handler.Dependencies{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Storage:     storage,
		Publisher:   publisher,
		MaxAttempts: 3,
	})
}

func doRequest(r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func premiumHeaders() map[string]string {
	return map[string]string{
		"X-User-Id":   "user-1",
		"X-User-Plan": "premium",
	}
}

func TestCreateSummarySuccess(t *testing.T) {
	storage := &stubStorage{}
	publisher := &stubPublisher{}
	r := newTestRouter(storage, publisher)

	w := doRequest(r, http.MethodPost, "/api/v1/ai/pdf-summary", gin.H{
		"file_url": "https://cdn.example.com/report.pdf",
		"mode":     "bullet",
	}, premiumHeaders())

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		JobID   string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	_, err := uuid.Parse(resp.JobID)
	assert.NoError(t, err, "job_id must be a UUID")

	require.Len(t, storage.createdJobs, 1)
	job := storage.createdJobs[0]
	assert.Equal(t, domain.JobKindPDFSummary, job.Kind)
	assert.Equal(t, "user-1", job.UserID)
	assert.Equal(t, "bullet", job.Mode)
	assert.Equal(t, domain.JobStatusWaiting, job.Status)
	assert.Equal(t, 3, job.MaxAttempts)

	require.Len(t, publisher.published, 1)
	var msg map[string]string
	require.NoError(t, json.Unmarshal(publisher.published[0], &msg))
	assert.Equal(t, resp.JobID, msg["job_id"])
	assert.Len(t, msg, 1, "the broker message carries only the job id")
}

func TestCreateSummaryRequiresIdentity(t *testing.T) {
	r := newTestRouter(&stubStorage{}, &stubPublisher{})

	w := doRequest(r, http.MethodPost, "/api/v1/ai/pdf-summary", gin.H{
		"file_url": "https://cdn.example.com/report.pdf",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateSummaryRequiresPremiumPlan(t *testing.T) {
	storage := &stubStorage{}
	r := newTestRouter(storage, &stubPublisher{})

	w := doRequest(r, http.MethodPost, "/api/v1/ai/pdf-summary", gin.H{
		"file_url": "https://cdn.example.com/report.pdf",
	}, map[string]string{
		"X-User-Id":   "user-1",
		"X-User-Plan": "free",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, storage.createdJobs)
}

func TestCreateSummaryValidation(t *testing.T) {
	tests := []struct {
		name string
		body gin.H
	}{
		{name: "missing file_url", body: gin.H{"mode": "short"}},
		{name: "non-http scheme", body: gin.H{"file_url": "ftp://cdn.example.com/a.pdf"}},
		{name: "not a url", body: gin.H{"file_url": "report.pdf"}},
		{name: "unknown mode", body: gin.H{"file_url": "https://cdn.example.com/a.pdf", "mode": "haiku"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &stubStorage{}
			r := newTestRouter(storage, &stubPublisher{})

			w := doRequest(r, http.MethodPost, "/api/v1/ai/pdf-summary", tt.body, premiumHeaders())

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, storage.createdJobs)
		})
	}
}

func TestCreateSummaryPublishFailureDefersToSweep(t *testing.T) {
	storage := &stubStorage{}
	publisher := &stubPublisher{err: errors.New("broker unavailable")}
	r := newTestRouter(storage, publisher)

	w := doRequest(r, http.MethodPost, "/api/v1/ai/pdf-summary", gin.H{
		"file_url": "https://cdn.example.com/report.pdf",
	}, premiumHeaders())

	assert.Equal(t, http.StatusAccepted, w.Code, "the job row exists; delivery is deferred, not failed")
	require.Len(t, storage.createdJobs, 1)
	assert.Equal(t, []string{storage.createdJobs[0].JobID}, storage.dispatched)
}

func TestGetSummaryStatusProcessing(t *testing.T) {
	jobID := uuid.New().String()
	for _, status := range []string{domain.JobStatusWaiting, domain.JobStatusActive} {
		storage := &stubStorage{job: &model.Job{
			JobID:  jobID,
			UserID: "user-1",
			Status: status,
		}}
		r := newTestRouter(storage, &stubPublisher{})

		w := doRequest(r, http.MethodGet, "/api/v1/ai/summaries/"+jobID, nil, premiumHeaders())

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success bool   `json:"success"`
			Status  string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "processing", resp.Status, "status %s reads as processing", status)
	}
}

func TestGetSummaryStatusCompleted(t *testing.T) {
	jobID := uuid.New().String()
	content := "A concise summary."
	storage := &stubStorage{
		job:     &model.Job{JobID: jobID, UserID: "user-1", Status: domain.JobStatusCompleted},
		content: &content,
	}
	r := newTestRouter(storage, &stubPublisher{})

	w := doRequest(r, http.MethodGet, "/api/v1/ai/summaries/"+jobID, nil, premiumHeaders())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool    `json:"success"`
		Status  string  `json:"status"`
		Content *string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "completed", resp.Status)
	require.NotNil(t, resp.Content)
	assert.Equal(t, content, *resp.Content)
}

func TestGetSummaryStatusCompletedWithoutContent(t *testing.T) {
	jobID := uuid.New().String()
	storage := &stubStorage{
		job: &model.Job{JobID: jobID, UserID: "user-1", Status: domain.JobStatusCompleted},
	}
	r := newTestRouter(storage, &stubPublisher{})

	w := doRequest(r, http.MethodGet, "/api/v1/ai/summaries/"+jobID, nil, premiumHeaders())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status  string  `json:"status"`
		Content *string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	assert.Nil(t, resp.Content)
}

func TestGetSummaryStatusFailed(t *testing.T) {
	jobID := uuid.New().String()
	storage := &stubStorage{job: &model.Job{
		JobID:     jobID,
		UserID:    "user-1",
		Status:    domain.JobStatusFailed,
		LastError: sql.NullString{String: "content too short to summarize", Valid: true},
	}}
	r := newTestRouter(storage, &stubPublisher{})

	w := doRequest(r, http.MethodGet, "/api/v1/ai/summaries/"+jobID, nil, premiumHeaders())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, "Job processing failed", resp.Message)
	assert.NotContains(t, w.Body.String(), "content too short",
		"internal error text must not leak to callers")
}

func TestGetSummaryStatusScopedToOwner(t *testing.T) {
	jobID := uuid.New().String()
	storage := &stubStorage{job: &model.Job{
		JobID:  jobID,
		UserID: "someone-else",
		Status: domain.JobStatusCompleted,
	}}
	r := newTestRouter(storage, &stubPublisher{})

	w := doRequest(r, http.MethodGet, "/api/v1/ai/summaries/"+jobID, nil, premiumHeaders())

	assert.Equal(t, http.StatusNotFound, w.Code, "another user's job must look missing")
}

func TestGetSummaryStatusInvalidJobID(t *testing.T) {
	r := newTestRouter(&stubStorage{}, &stubPublisher{})

	w := doRequest(r, http.MethodGet, "/api/v1/ai/summaries/not-a-uuid", nil, premiumHeaders())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
