package domain

// Job status constants
const (
	JobStatusWaiting   = "WAITING"
	JobStatusActive    = "ACTIVE"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
)

// KindPDFSummary is the only job kind this worker executes. Other kinds are
// acknowledged as no-op successes so the queue can be shared later.
const KindPDFSummary = "pdf-summary"

// Summarization modes
const (
	ModeShort    = "short"
	ModeDetailed = "detailed"
	ModeBullet   = "bullet"
	ModeInsights = "insights"
)

// ValidMode reports whether mode is one of the supported summarization modes.
func ValidMode(mode string) bool {
	switch mode {
	case ModeShort, ModeDetailed, ModeBullet, ModeInsights:
		return true
	}
	return false
}
