package domain

import "errors"

var (
	// ErrJobAlreadyClaimed is returned when the task row is not PENDING anymore
	ErrJobAlreadyClaimed = errors.New("task already claimed or not in PENDING status")

	// ErrTaskRunning is returned when another worker holds the task and is still sending heartbeats
	ErrTaskRunning = errors.New("task is running on another worker")

	// ErrConsumerClosed is returned by Worker.Start when the broker closes the delivery channel
	ErrConsumerClosed = errors.New("task delivery channel closed")

	// ErrInvalidPayload is returned when a message or task payload cannot be used
	ErrInvalidPayload = errors.New("invalid task payload")

	// ErrMaxRetriesExceeded is returned when a task failed on its last attempt
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrUnknownKind is returned when no executor is registered for a task kind
	ErrUnknownKind = errors.New("unknown task kind")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
