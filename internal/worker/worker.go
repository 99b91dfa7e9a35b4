package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/career-assistant/internal/task"
	"github.com/cuongbtq/career-assistant/internal/worker/domain"
)

// Consumer is the queue side of *rabbitmq.Client used by the worker
type Consumer interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
	Cancel(consumerTag string) error
}

// TaskStore moves task rows through their lifecycle
type TaskStore interface {
	ClaimTask(ctx context.Context, taskID, workerID string) (*task.Task, error)
	CompleteTask(ctx context.Context, taskID string, result []byte) error
	FailTask(ctx context.Context, taskID, errorMsg string) error
	RetryTask(ctx context.Context, taskID, errorMsg string) error
	UpdateProgress(ctx context.Context, taskID string, progress []byte) error
	UpdateHeartbeat(ctx context.Context, taskID string) error
}

// IdleCloser is implemented by outbound HTTP clients holding keep-alive connections
type IdleCloser interface {
	CloseIdleConnections()
}

// Config holds worker configuration
type Config struct {
	Logger            *slog.Logger
	Consumer          Consumer
	Storage           TaskStore
	Locker            task.Locker
	Importer          ImportRunner
	Analyzer          AnalysisRunner
	IdleClosers       []IdleCloser
	Concurrency       int
	JobTimeout        time.Duration
	HeartbeatInterval time.Duration
	RetryDelay        time.Duration
}

// Worker consumes task messages and executes them on a bounded pool
type Worker struct {
	logger            *slog.Logger
	consumer          Consumer
	storage           TaskStore
	locker            task.Locker
	executors         map[task.Kind]Executor
	idleClosers       []IdleCloser
	workerID          string
	concurrency       int
	jobTimeout        time.Duration
	heartbeatInterval time.Duration
	retryDelay        time.Duration
	jobsChan          chan *domain.TaskMessage
	wg                sync.WaitGroup
	stopChan          chan struct{}
	stopOnce          sync.Once
}

// NewWorker creates a new worker instance with one executor per task kind
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	retryDelay := cfg.RetryDelay
	if retryDelay < 0 {
		retryDelay = 0
	}

	return &Worker{
		logger:            cfg.Logger,
		consumer:          cfg.Consumer,
		storage:           cfg.Storage,
		locker:            cfg.Locker,
		executors:         newExecutors(cfg.Importer, cfg.Analyzer),
		idleClosers:       cfg.IdleClosers,
		workerID:          newWorkerID(),
		concurrency:       concurrency,
		jobTimeout:        cfg.JobTimeout,
		heartbeatInterval: heartbeat,
		retryDelay:        retryDelay,
		jobsChan:          make(chan *domain.TaskMessage),
		stopChan:          make(chan struct{}),
	}
}

func newWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}

// ID returns the identifier written to claimed task rows
func (w *Worker) ID() string {
	return w.workerID
}

// Start subscribes to the task queue and processes messages until ctx is
// canceled or Stop is called. It returns domain.ErrConsumerClosed when the
// broker closes the delivery channel so the process can exit and restart.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	w.spawnWorkerPool(ctx)

	dispatchErr := make(chan error, 1)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.startMessageDispatcher(ctx, deliveries); err != nil {
			dispatchErr <- err
			cancel()
		}
	}()

	<-ctx.Done()

	select {
	case err := <-dispatchErr:
		w.logger.Error("Worker stopped consuming", slog.String("error", err.Error()))
		return err
	default:
	}

	w.logger.Info("Worker context canceled, stopping...")
	return nil
}

// Stop cancels the consumer, waits for in-flight tasks and closes idle
// outbound connections
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")

		if err := w.consumer.Cancel(w.workerID); err != nil {
			w.logger.Warn("Failed to cancel consumer", slog.Any("error", err))
		}

		close(w.stopChan)
		w.wg.Wait()

		for _, c := range w.idleClosers {
			c.CloseIdleConnections()
		}

		w.logger.Info("Worker stopped")
	})
}
