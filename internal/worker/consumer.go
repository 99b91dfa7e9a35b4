package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/career-assistant/internal/task"
	"github.com/cuongbtq/career-assistant/internal/worker/domain"
)

// setupConsumer starts consuming the task queue with the worker id as consumer tag
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	deliveries, err := w.consumer.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
	)

	return deliveries, nil
}

// startMessageDispatcher decodes deliveries and hands them to the worker pool.
// It returns domain.ErrConsumerClosed when the broker closes the channel.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Error("RabbitMQ delivery channel closed")
				return domain.ErrConsumerClosed
			}

			msg, err := decodeMessage(delivery)
			if err != nil {
				w.logger.Error("Dropping malformed task message",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			select {
			case w.jobsChan <- msg:
				w.logger.Debug("Task dispatched to worker pool",
					slog.String("task_id", msg.TaskID),
					slog.Uint64("delivery_tag", msg.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching task")
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return nil
			}
		}
	}
}

// decodeMessage accepts {"task_id": "..."} bodies whose id starts with a known kind
func decodeMessage(delivery amqp.Delivery) (*domain.TaskMessage, error) {
	var body task.Message
	if err := json.Unmarshal(delivery.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	kind, _, _ := strings.Cut(body.TaskID, ":")
	switch task.Kind(kind) {
	case task.KindImport, task.KindAnalysis:
	default:
		return nil, fmt.Errorf("%w: task id %q", domain.ErrInvalidPayload, body.TaskID)
	}

	return &domain.TaskMessage{
		TaskID:      body.TaskID,
		DeliveryTag: delivery.DeliveryTag,
		Delivery:    delivery,
	}, nil
}
