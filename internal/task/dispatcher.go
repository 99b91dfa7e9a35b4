package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/career-assistant/shared/rabbitmq"
)

// Store persists task rows
type Store interface {
	// UpsertPendingTask inserts the row or resets an existing one to PENDING
	UpsertPendingTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, taskID string) (*Task, error)
}

// Publisher delivers task messages to the worker queue
type Publisher interface {
	PublishWithRetry(ctx context.Context, msg rabbitmq.Message) error
}

// DispatcherConfig tunes dispatch
type DispatcherConfig struct {
	LockTTL    time.Duration
	MaxRetries int
}

// Dispatcher turns requests into at most one queued task per task id
type Dispatcher struct {
	store     Store
	locker    Locker
	publisher Publisher
	config    DispatcherConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewDispatcher(store Store, locker Locker, publisher Publisher, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}

	return &Dispatcher{
		store:     store,
		locker:    locker,
		publisher: publisher,
		config:    config,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch validates params, takes the task lock and enqueues the task.
// A held lock yields a *ConflictError carrying the active task id.
func (d *Dispatcher) Dispatch(ctx context.Context, kind Kind, requesterID string, params Params) (*Handle, error) {
	if params == nil || params.Kind() != kind {
		return nil, fmt.Errorf("%w: parameters do not match task kind %q", ErrInvalidParams, kind)
	}
	if requesterID == "" {
		return nil, fmt.Errorf("%w: requester is required", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	taskID := params.TaskID(requesterID)
	log := d.logger.With(slog.String("task_id", taskID), slog.String("kind", string(kind)))

	acquired, err := d.locker.TryAcquire(ctx, taskID, d.config.LockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		log.Info("Task already in progress")
		return nil, &ConflictError{TaskID: taskID}
	}

	payload, err := json.Marshal(params)
	if err != nil {
		d.release(taskID, log)
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	now := d.now()
	t := &Task{
		ID:         taskID,
		Kind:       kind,
		UserID:     requesterID,
		Status:     StatusPending,
		Payload:    payload,
		MaxRetries: d.config.MaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := d.store.UpsertPendingTask(ctx, t); err != nil {
		d.release(taskID, log)
		return nil, fmt.Errorf("failed to store task: %w", err)
	}

	body, err := json.Marshal(Message{TaskID: taskID})
	if err != nil {
		d.release(taskID, log)
		return nil, fmt.Errorf("failed to marshal task message: %w", err)
	}

	if err := d.publisher.PublishWithRetry(ctx, rabbitmq.Message{ID: taskID, Body: body}); err != nil {
		log.Error("Failed to publish task", slog.Any("error", err))
		d.release(taskID, log)
		return nil, fmt.Errorf("failed to publish task: %w", err)
	}

	log.Info("Task dispatched", slog.String("user_id", requesterID))

	return &Handle{TaskID: taskID, Status: StatusPending, UserID: requesterID}, nil
}

// Status never fails for unknown ids: a task that has not been recorded is PENDING
func (d *Dispatcher) Status(ctx context.Context, taskID string) (*Handle, error) {
	t, err := d.store.GetTask(ctx, taskID)
	if errors.Is(err, ErrTaskNotFound) {
		return &Handle{TaskID: taskID, Status: StatusPending}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	return NewHandle(t), nil
}

// release runs detached from the request context so a cancelled request
// still frees the lock
func (d *Dispatcher) release(taskID string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.locker.Release(ctx, taskID); err != nil {
		log.Error("Failed to release task lock", slog.Any("error", err))
	}
}
