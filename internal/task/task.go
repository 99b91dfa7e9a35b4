// Package task holds the single-flight background task machinery shared by
// the api-service (dispatch, status) and the worker-service (execution).
package task

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Kind identifies the executor a task is routed to
type Kind string

const (
	KindImport   Kind = "import"
	KindAnalysis Kind = "analysis"
)

// Status is the lifecycle state of a task
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether no further transitions are expected
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

const (
	DefaultLockTTL    = 300 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 60 * time.Second
)

// Task is a row of the tasks table. ID is the deterministic task id.
type Task struct {
	ID          string             `db:"id"`
	Kind        Kind               `db:"kind"`
	UserID      string             `db:"user_id"`
	Status      Status             `db:"status"`
	Payload     types.JSONText     `db:"payload"`
	Result      types.NullJSONText `db:"result"`
	Progress    types.NullJSONText `db:"progress"`
	Error       sql.NullString     `db:"error"`
	RetryCount  int                `db:"retry_count"`
	MaxRetries  int                `db:"max_retries"`
	WorkerID    sql.NullString     `db:"worker_id"`
	CreatedAt   time.Time          `db:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at"`
	StartedAt   sql.NullTime       `db:"started_at"`
	CompletedAt sql.NullTime       `db:"completed_at"`
	HeartbeatAt sql.NullTime       `db:"heartbeat_at"`
}

// Message is the body published to the task queue
type Message struct {
	TaskID string `json:"task_id"`
}

// Handle is the client-facing view of a task
type Handle struct {
	TaskID   string          `json:"task_id"`
	Status   Status          `json:"status"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Progress json.RawMessage `json:"progress,omitempty"`

	// UserID is the owner, empty for tasks that were never dispatched
	UserID string `json:"-"`
}

// NewHandle builds the status view of a stored task
func NewHandle(t *Task) *Handle {
	h := &Handle{
		TaskID: t.ID,
		Status: t.Status,
		UserID: t.UserID,
	}

	switch t.Status {
	case StatusSucceeded:
		if t.Result.Valid {
			h.Result = json.RawMessage(t.Result.JSONText)
		}
	case StatusFailed:
		h.Error = t.Error.String
	case StatusRunning:
		if t.Progress.Valid {
			h.Progress = json.RawMessage(t.Progress.JSONText)
		}
	}

	return h
}
