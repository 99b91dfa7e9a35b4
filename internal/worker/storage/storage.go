package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/career-assistant/internal/task"
	"github.com/cuongbtq/career-assistant/internal/worker/domain"
)

const taskColumns = `id, kind, user_id, status, payload, result, progress, error, retry_count,
	max_retries, worker_id, created_at, updated_at, started_at, completed_at, heartbeat_at`

// Storage moves task rows through their lifecycle for the worker
type Storage struct {
	db         *sqlx.DB
	logger     *slog.Logger
	staleAfter time.Duration
	now        func() time.Time
}

// NewStorage creates a new Storage instance. A RUNNING task whose last
// heartbeat is older than staleAfter can be claimed again; zero disables
// the takeover.
func NewStorage(db *sqlx.DB, logger *slog.Logger, staleAfter time.Duration) *Storage {
	return &Storage{
		db:         db,
		logger:     logger,
		staleAfter: staleAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// GetTask retrieves a task row by id
func (s *Storage) GetTask(ctx context.Context, taskID string) (*task.Task, error) {
	var t task.Task
	err := s.db.GetContext(ctx, &t, s.db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, task.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

// ClaimTask moves a PENDING task to RUNNING with an optimistic update. A
// RUNNING task whose worker stopped sending heartbeats is taken over and the
// lost attempt is counted in retry_count. A task held by a live worker yields
// domain.ErrTaskRunning; any other state yields domain.ErrJobAlreadyClaimed.
func (s *Storage) ClaimTask(ctx context.Context, taskID, workerID string) (*task.Task, error) {
	now := s.now()

	// with takeover disabled no heartbeat can be older than the zero time
	staleBefore := time.Time{}
	if s.staleAfter > 0 {
		staleBefore = now.Add(-s.staleAfter)
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE tasks
		SET status = ?,
		    worker_id = ?,
		    retry_count = CASE WHEN status = ? THEN retry_count + 1 ELSE retry_count END,
		    started_at = ?,
		    heartbeat_at = ?,
		    updated_at = ?
		WHERE id = ?
		  AND (status = ?
		       OR (status = ? AND COALESCE(heartbeat_at, started_at, updated_at) < ?))`),
		string(task.StatusRunning), workerID, string(task.StatusRunning), now, now, now,
		taskID, string(task.StatusPending), string(task.StatusRunning), staleBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil, s.claimRejected(ctx, taskID, workerID)
	}

	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Task claimed successfully",
		slog.String("task_id", taskID),
		slog.String("worker_id", workerID),
		slog.String("kind", string(t.Kind)),
		slog.Int("retry_count", t.RetryCount),
	)

	return t, nil
}

func (s *Storage) claimRejected(ctx context.Context, taskID, workerID string) error {
	t, err := s.GetTask(ctx, taskID)
	if err == nil && t.Status == task.StatusRunning {
		s.logger.Info("Task is running on a live worker",
			slog.String("task_id", taskID),
			slog.String("worker_id", workerID),
			slog.String("owner", t.WorkerID.String),
		)
		return domain.ErrTaskRunning
	}

	s.logger.Warn("Failed to claim task - already claimed or not found",
		slog.String("task_id", taskID),
		slog.String("worker_id", workerID),
	)
	return domain.ErrJobAlreadyClaimed
}

// CompleteTask stores the result and marks the task SUCCEEDED
func (s *Storage) CompleteTask(ctx context.Context, taskID string, result []byte) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE tasks
		SET status = ?, result = ?, error = NULL, completed_at = ?, updated_at = ?
		WHERE id = ?`),
		string(task.StatusSucceeded), string(result), now, now, taskID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}

	s.logger.Info("Task status updated",
		slog.String("task_id", taskID),
		slog.String("status", string(task.StatusSucceeded)),
	)
	return nil
}

// FailTask marks the task FAILED with the final error message
func (s *Storage) FailTask(ctx context.Context, taskID, errorMsg string) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE tasks
		SET status = ?, error = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`),
		string(task.StatusFailed), errorMsg, now, now, taskID,
	)
	if err != nil {
		return fmt.Errorf("failed to fail task: %w", err)
	}

	s.logger.Info("Task status updated",
		slog.String("task_id", taskID),
		slog.String("status", string(task.StatusFailed)),
	)
	return nil
}

// RetryTask puts a failed attempt back to PENDING and counts it
func (s *Storage) RetryTask(ctx context.Context, taskID, errorMsg string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE tasks
		SET status = ?, error = ?, retry_count = retry_count + 1, worker_id = NULL,
		    progress = NULL, updated_at = ?
		WHERE id = ?`),
		string(task.StatusPending), errorMsg, s.now(), taskID,
	)
	if err != nil {
		return fmt.Errorf("failed to reschedule task: %w", err)
	}

	s.logger.Info("Task status updated",
		slog.String("task_id", taskID),
		slog.String("status", string(task.StatusPending)),
	)
	return nil
}

// UpdateProgress replaces the progress snapshot of a running task
func (s *Storage) UpdateProgress(ctx context.Context, taskID string, progress []byte) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE tasks SET progress = ?, updated_at = ?
		WHERE id = ? AND status = ?`),
		string(progress), s.now(), taskID, string(task.StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("failed to update task progress: %w", err)
	}
	return nil
}

// UpdateHeartbeat refreshes heartbeat_at for a running task
func (s *Storage) UpdateHeartbeat(ctx context.Context, taskID string) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE tasks SET heartbeat_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`),
		now, now, taskID, string(task.StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("failed to update task heartbeat: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Task heartbeat update - no rows affected (task may not be running)",
			slog.String("task_id", taskID),
		)
	}

	return nil
}
