package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/career-assistant/internal/task"
)

func TestTasks_UpsertResetsFinishedRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	pending := &task.Task{
		ID:         "import:u1:golang",
		Kind:       task.KindImport,
		UserID:     "u1",
		Status:     task.StatusPending,
		Payload:    []byte(`{"query":"golang"}`),
		MaxRetries: 3,
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	}
	require.NoError(t, s.UpsertPendingTask(ctx, pending))

	_, err := s.DB().Exec(`
		UPDATE tasks SET status = 'FAILED', error = 'boom', retry_count = 3, worker_id = 'w1', completed_at = ?
		WHERE id = ?`, baseTime, pending.ID)
	require.NoError(t, err)

	failed, err := s.GetTask(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error.String)

	require.NoError(t, s.UpsertPendingTask(ctx, pending))

	reset, err := s.GetTask(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, reset.Status)
	assert.Equal(t, 0, reset.RetryCount)
	assert.False(t, reset.Error.Valid)
	assert.False(t, reset.WorkerID.Valid)
	assert.False(t, reset.CompletedAt.Valid)
	assert.False(t, reset.Result.Valid)
	assert.JSONEq(t, `{"query":"golang"}`, reset.Payload.String())

	var count int
	require.NoError(t, s.DB().Get(&count, `SELECT COUNT(*) FROM tasks`))
	assert.Equal(t, 1, count)
}

func TestGetTask_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetTask(context.Background(), "import:u1:nothing")
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}
