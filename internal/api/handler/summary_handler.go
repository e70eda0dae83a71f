package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/summarylab/summary-be/internal/api/domain"
	"github.com/summarylab/summary-be/internal/api/dto"
	"github.com/summarylab/summary-be/internal/api/model"
)

// CreateSummary handles POST /api/v1/summaries/pdf
// Accepts a summary request, persists the job, and wakes up a worker.
func (h *SummaryHandler) CreateSummary(c *gin.Context) {
	userID := c.GetString(ContextKeyUserID)
	plan := c.GetString(ContextKeyUserPlan)

	if plan != domain.PlanPremium {
		h.logger.Warn("Summary request rejected - plan not premium",
			slog.String("user_id", userID),
			slog.String("plan", plan),
		)
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "PDF summaries require a premium plan",
		})
		return
	}

	var req dto.CreateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "file_url is required",
		})
		return
	}

	if err := validateFileURL(req.FileURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if !domain.ValidMode(req.Mode) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "mode must be one of short, detailed, bullet, insights",
		})
		return
	}

	job := model.Job{
		JobID:       uuid.New().String(),
		Kind:        domain.JobKindPDFSummary,
		UserID:      userID,
		FileURL:     req.FileURL,
		Mode:        req.Mode,
		Status:      domain.JobStatusWaiting,
		MaxAttempts: h.maxAttempts,
		CreatedAt:   time.Now(),
	}

	if err := h.storage.CreateJob(c.Request.Context(), &job); err != nil {
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to create job",
		})
		return
	}

	h.logger.Info("Summary job created",
		slog.String("job_id", job.JobID),
		slog.String("user_id", userID),
		slog.String("mode", job.Mode),
	)

	body, _ := json.Marshal(map[string]string{"job_id": job.JobID})
	if err := h.publisher.PublishJob(c.Request.Context(), body); err != nil {
		h.logger.Error("Failed to publish job message, deferring to dispatch sweep",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		// The job row is the source of truth; hand it to the dispatch sweep
		// instead of failing the request.
		if schedErr := h.storage.ScheduleDispatch(c.Request.Context(), job.JobID); schedErr != nil {
			h.logger.Error("Failed to schedule dispatch",
				slog.String("job_id", job.JobID),
				slog.String("error", schedErr.Error()),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to enqueue job",
			})
			return
		}
	}

	c.JSON(http.StatusAccepted, dto.CreateSummaryResponse{
		Success: true,
		JobID:   job.JobID,
	})
}

// GetSummaryStatus handles GET /api/v1/summaries/:job_id
// Reports the job's progress; completed jobs carry the summary content.
func (h *SummaryHandler) GetSummaryStatus(c *gin.Context) {
	userID := c.GetString(ContextKeyUserID)

	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.storage.GetJobForUser(c.Request.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to get job",
		})
		return
	}

	switch job.Status {
	case domain.JobStatusCompleted:
		content, err := h.storage.GetCreationContent(c.Request.Context(), job.JobID, userID)
		if err != nil {
			h.logger.Error("Failed to get summary content", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to get summary content",
			})
			return
		}

		c.JSON(http.StatusOK, dto.SummaryStatusResponse{
			Success: true,
			JobID:   job.JobID,
			Status:  "completed",
			Content: content,
		})

	case domain.JobStatusFailed:
		// The stored error text is operator-facing; callers get a generic
		// message.
		c.JSON(http.StatusOK, dto.SummaryStatusResponse{
			Success: false,
			JobID:   job.JobID,
			Status:  "failed",
			Message: "Job processing failed",
		})

	default:
		// WAITING and ACTIVE both read as processing; the distinction is a
		// worker-side detail callers poll through.
		c.JSON(http.StatusOK, dto.SummaryStatusResponse{
			Success: true,
			JobID:   job.JobID,
			Status:  "processing",
		})
	}
}

func validateFileURL(fileURL string) error {
	u, err := url.Parse(fileURL)
	if err != nil {
		return errors.New("file_url must be a valid URL")
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("file_url must be an http(s) URL")
	}

	return nil
}
