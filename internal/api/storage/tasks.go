package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuongbtq/career-assistant/internal/task"
)

const taskColumns = `id, kind, user_id, status, payload, result, progress, error, retry_count,
	max_retries, worker_id, created_at, updated_at, started_at, completed_at, heartbeat_at`

// UpsertPendingTask creates the task row, or resets a finished run of the same
// task id back to PENDING
func (s *Storage) UpsertPendingTask(ctx context.Context, t *task.Task) error {
	_, err := s.exec(ctx, `
		INSERT INTO tasks (id, kind, user_id, status, payload, retry_count, max_retries, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			user_id = excluded.user_id,
			status = excluded.status,
			payload = excluded.payload,
			result = NULL,
			progress = NULL,
			error = NULL,
			retry_count = 0,
			max_retries = excluded.max_retries,
			worker_id = NULL,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			started_at = NULL,
			completed_at = NULL,
			heartbeat_at = NULL`,
		t.ID, t.Kind, t.UserID, t.Status, t.Payload, t.MaxRetries, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert task %s: %w", t.ID, err)
	}
	return nil
}

func (s *Storage) GetTask(ctx context.Context, taskID string) (*task.Task, error) {
	var t task.Task
	err := s.get(ctx, &t, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, task.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}
	return &t, nil
}
