package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyClaimed is returned when attempting to claim a job that's
	// already claimed by another worker
	ErrJobAlreadyClaimed = errors.New("job already claimed or not in WAITING status")

	// ErrInvalidPayload marks a payload that can never execute (missing or
	// malformed document reference)
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrContentTooShort marks extracted text below the summarizable minimum
	ErrContentTooShort = errors.New("content too short to summarize")

	// ErrEmptySummary marks an empty response from the summarization service
	ErrEmptySummary = errors.New("summary came back empty")
)

// PermanentError wraps failures for which retrying the identical input
// cannot plausibly succeed. The job is discarded without further attempts.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as a permanent failure.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// TransientError wraps failures attributable to temporary conditions,
// eligible for retry with backoff.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a transient failure.
func Transient(err error) error {
	return &TransientError{Err: err}
}

// IsPermanent reports whether err is classified as a permanent failure.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// IsTransient reports whether err is classified as a transient failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
