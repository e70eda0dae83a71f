package dto

type CreateSummaryRequest struct {
	FileURL string `json:"file_url" binding:"required"`
	Mode    string `json:"mode"`
}

type CreateSummaryResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
}

type SummaryStatusResponse struct {
	Success bool    `json:"success"`
	JobID   string  `json:"job_id"`
	Status  string  `json:"status"`
	Content *string `json:"content,omitempty"`
	Message string  `json:"message,omitempty"`
}
