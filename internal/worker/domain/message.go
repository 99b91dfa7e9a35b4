package domain

// Acker settles a delivery. amqp091.Delivery satisfies it.
type Acker interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// TaskMessage is a decoded queue delivery handed to the worker pool
type TaskMessage struct {
	TaskID      string
	DeliveryTag uint64
	Delivery    Acker
}
