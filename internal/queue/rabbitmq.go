package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/valpere/vietsub/internal"
)

const publishTimeout = 5 * time.Second

// RabbitMQQueue stores jobs in a durable RabbitMQ queue. Publishing and
// consuming use separate connections; the consumer is opened on the first
// Dequeue so a publish-only process never holds prefetched jobs.
type RabbitMQQueue struct {
	url      string
	name     string
	prefetch int
	logger   *slog.Logger

	closed chan struct{}
	once   sync.Once

	publishMu   sync.Mutex
	publishConn *amqp.Connection
	publishCh   *amqp.Channel

	consumeOnce sync.Once
	consumeErr  error
	consumeConn *amqp.Connection
	consumeCh   *amqp.Channel
	deliveries  <-chan amqp.Delivery

	// amqp channels are not safe for concurrent acks.
	ackMu sync.Mutex
}

// NewRabbitMQQueue connects the publisher and declares the queue. prefetch
// bounds the unacknowledged jobs held by this consumer; it should equal the
// number of workers.
func NewRabbitMQQueue(url, name string, prefetch int, logger *slog.Logger) (*RabbitMQQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	q := &RabbitMQQueue{
		url:      url,
		name:     name,
		prefetch: prefetch,
		logger:   logger,
		closed:   make(chan struct{}),
	}

	conn, ch, err := q.open()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq publisher: %w", err)
	}
	q.publishConn, q.publishCh = conn, ch
	logger.Debug("rabbitmq queue ready", "queue", name)
	return q, nil
}

func (q *RabbitMQQueue) open() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(q.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(q.name, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue %s: %w", q.name, err)
	}
	return conn, ch, nil
}

func (q *RabbitMQQueue) setupConsumer() error {
	conn, ch, err := q.open()
	if err != nil {
		return err
	}
	if err := ch.Qos(q.prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(q.name, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("consume %s: %w", q.name, err)
	}
	q.consumeConn, q.consumeCh, q.deliveries = conn, ch, deliveries
	q.logger.Debug("rabbitmq consumer started", "queue", q.name, "prefetch", q.prefetch)
	return nil
}

func (q *RabbitMQQueue) Enqueue(ctx context.Context, job internal.Job) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	q.publishMu.Lock()
	defer q.publishMu.Unlock()
	err = q.publishCh.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    job.ID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish job %s: %w", job.ID, err)
	}
	return nil
}

func (q *RabbitMQQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	q.consumeOnce.Do(func() { q.consumeErr = q.setupConsumer() })
	if q.consumeErr != nil {
		return nil, fmt.Errorf("rabbitmq consumer: %w", q.consumeErr)
	}

	for {
		select {
		case <-q.closed:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg, ok := <-q.deliveries:
			if !ok {
				return nil, ErrClosed
			}
			var job internal.Job
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				q.logger.Warn("dropping undecodable job", "error", err, "message_id", msg.MessageId)
				q.nack(msg.DeliveryTag, false)
				continue
			}
			return &Delivery{Job: job, tag: msg.DeliveryTag}, nil
		}
	}
}

func (q *RabbitMQQueue) Ack(d *Delivery) error {
	if d == nil || q.consumeCh == nil {
		return nil
	}
	q.ackMu.Lock()
	defer q.ackMu.Unlock()
	return q.consumeCh.Ack(d.tag, false)
}

func (q *RabbitMQQueue) Nack(d *Delivery, requeue bool) error {
	if d == nil || q.consumeCh == nil {
		return nil
	}
	return q.nack(d.tag, requeue)
}

func (q *RabbitMQQueue) nack(tag uint64, requeue bool) error {
	q.ackMu.Lock()
	defer q.ackMu.Unlock()
	return q.consumeCh.Nack(tag, false, requeue)
}

// Pending reports the number of ready messages in the queue.
func (q *RabbitMQQueue) Pending() (int, error) {
	q.publishMu.Lock()
	defer q.publishMu.Unlock()
	info, err := q.publishCh.QueueInspect(q.name)
	if err != nil {
		return 0, fmt.Errorf("inspect queue %s: %w", q.name, err)
	}
	return info.Messages, nil
}

func (q *RabbitMQQueue) Close() error {
	q.once.Do(func() {
		close(q.closed)
		if q.consumeCh != nil {
			q.consumeCh.Close()
		}
		if q.consumeConn != nil {
			q.consumeConn.Close()
		}
		if q.publishCh != nil {
			q.publishCh.Close()
		}
		if q.publishConn != nil {
			q.publishConn.Close()
		}
	})
	return nil
}
