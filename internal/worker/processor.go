package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/career-assistant/internal/task"
	"github.com/cuongbtq/career-assistant/internal/worker/domain"
)

// processTask claims, executes and settles a single task. The returned error
// drives the ACK/NACK decision.
func (w *Worker) processTask(ctx context.Context, msg *domain.TaskMessage) error {
	log := w.logger.With(
		slog.String("task_id", msg.TaskID),
		slog.String("worker_id", w.workerID),
	)

	t, err := w.storage.ClaimTask(ctx, msg.TaskID, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			log.Warn("Task already claimed, skipping")
			return fmt.Errorf("task already claimed: %w", err)
		}
		if errors.Is(err, domain.ErrTaskRunning) {
			// redelivered while the owner is alive; check again once it may have gone stale
			log.Info("Task is running elsewhere, requeueing", slog.Duration("retry_delay", w.retryDelay))
			w.waitRetryDelay(ctx)
			return domain.NewRetryableError(err)
		}
		log.Error("Failed to claim task", slog.String("error", err.Error()))
		return domain.NewRetryableError(fmt.Errorf("failed to claim task: %w", err))
	}

	log = log.With(slog.String("kind", string(t.Kind)))

	if t.RetryCount > t.MaxRetries {
		err := fmt.Errorf("%w: task was abandoned by %d workers", domain.ErrMaxRetriesExceeded, t.RetryCount)
		log.Warn("Task exceeded max retries after worker loss")
		w.finishFailed(t, err, log)
		return err
	}

	executor, ok := w.executors[t.Kind]
	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrUnknownKind, t.Kind)
		w.finishFailed(t, err, log)
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	// a running task is finished even when the worker is asked to stop
	jobCtx := context.WithoutCancel(ctx)
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, w.jobTimeout)
		defer cancel()
	}

	heartbeatDone := make(chan struct{})
	go w.sendHeartbeat(jobCtx, t.ID, heartbeatDone)
	defer close(heartbeatDone)

	started := time.Now()
	result, err := executor.Execute(jobCtx, t, w.progressReporter(jobCtx, t.ID, log))
	if err == nil {
		err = w.finishSucceeded(jobCtx, t, result, log)
	}
	if err == nil {
		log.Info("Task completed successfully", slog.Duration("duration", time.Since(started)))
		return nil
	}

	log.Error("Task execution failed",
		slog.String("error", err.Error()),
		slog.Int("retry_count", t.RetryCount),
		slog.Int("max_retries", t.MaxRetries),
	)

	if errors.Is(err, domain.ErrInvalidPayload) {
		w.finishFailed(t, err, log)
		return err
	}

	if t.RetryCount < t.MaxRetries {
		if retryErr := w.storage.RetryTask(context.WithoutCancel(ctx), t.ID, err.Error()); retryErr != nil {
			log.Error("Failed to reschedule task", slog.String("error", retryErr.Error()))
		}

		log.Info("Task will be retried", slog.Duration("retry_delay", w.retryDelay))
		w.waitRetryDelay(ctx)

		return domain.NewRetryableError(fmt.Errorf("task execution failed: %w", err))
	}

	log.Warn("Task exceeded max retries")
	w.finishFailed(t, err, log)

	return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, err)
}

func (w *Worker) finishSucceeded(ctx context.Context, t *task.Task, result any, log *slog.Logger) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal result: %v", domain.ErrInvalidPayload, err)
	}

	if err := w.storage.CompleteTask(ctx, t.ID, data); err != nil {
		return err
	}

	w.releaseLock(t.ID, log)
	return nil
}

func (w *Worker) finishFailed(t *task.Task, cause error, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.storage.FailTask(ctx, t.ID, cause.Error()); err != nil {
		log.Error("Failed to update task status to FAILED", slog.String("error", err.Error()))
	}

	w.releaseLock(t.ID, log)
}

// releaseLock is best effort: the lock TTL frees the id if this fails
func (w *Worker) releaseLock(taskID string, log *slog.Logger) {
	if w.locker == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.locker.Release(ctx, taskID); err != nil {
		log.Error("Failed to release task lock", slog.String("error", err.Error()))
	}
}

func (w *Worker) waitRetryDelay(ctx context.Context) {
	if w.retryDelay <= 0 {
		return
	}

	timer := time.NewTimer(w.retryDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-w.stopChan:
	}
}

func (w *Worker) progressReporter(ctx context.Context, taskID string, log *slog.Logger) func(any) {
	return func(progress any) {
		data, err := json.Marshal(progress)
		if err != nil {
			log.Warn("Failed to marshal task progress", slog.String("error", err.Error()))
			return
		}
		if err := w.storage.UpdateProgress(ctx, taskID, data); err != nil {
			log.Warn("Failed to update task progress", slog.String("error", err.Error()))
		}
	}
}

// sendHeartbeat periodically updates the task's heartbeat timestamp
func (w *Worker) sendHeartbeat(ctx context.Context, taskID string, done <-chan struct{}) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := w.storage.UpdateHeartbeat(ctx, taskID); err != nil {
				w.logger.Warn("Failed to update task heartbeat",
					slog.String("task_id", taskID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
