package domain

import (
	"errors"
)

const (
	JobStatusWaiting   = "WAITING"
	JobStatusActive    = "ACTIVE"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
)

const (
	JobKindPDFSummary = "pdf-summary"
)

// PlanPremium is the plan tier allowed to request summaries.
const PlanPremium = "premium"

var (
	ErrJobNotFound = errors.New("job not found")
)

// ValidMode reports whether mode is one of the supported summary modes.
// The empty string is valid and means the default mode.
func ValidMode(mode string) bool {
	switch mode {
	case "", "short", "detailed", "bullet", "insights":
		return true
	}
	return false
}
