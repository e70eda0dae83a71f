package domain

import "time"

// Job represents a job row claimed for processing.
type Job struct {
	JobID        string     `db:"job_id"`
	Kind         string     `db:"kind"`
	UserID       string     `db:"user_id"`
	FileURL      string     `db:"file_url"`
	Mode         string     `db:"mode"`
	Status       string     `db:"status"`
	AttemptsMade int        `db:"attempts_made"`
	MaxAttempts  int        `db:"max_attempts"`
	WorkerID     string     `db:"worker_id"`
	LastError    string     `db:"last_error"`
	CreatedAt    time.Time  `db:"created_at"`
	CompletedAt  *time.Time `db:"completed_at"`
}

// JobMessage is the dispatch message published to RabbitMQ. Only the job id
// travels over the wire; the job row is the source of truth.
type JobMessage struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
}

// DeadLetterEntry is the snapshot published when a job is permanently
// abandoned. Write-once; nothing in this system reads it back.
type DeadLetterEntry struct {
	OriginalJobID string    `json:"original_job_id"`
	UserID        string    `json:"user_id"`
	FileURL       string    `json:"file_url"`
	Mode          string    `json:"mode"`
	ErrorMessage  string    `json:"error_message"`
	ErrorDetail   string    `json:"error_detail"`
	FailedAt      time.Time `json:"failed_at"`
}

// Creation is the durable output of a successful pdf-summary job.
type Creation struct {
	UserID  string `db:"user_id"`
	Prompt  string `db:"prompt"`
	Content string `db:"content"`
	Type    string `db:"type"`
	JobID   string `db:"job_id"`
}
