// Package rabbitmq publishes and consumes booking events over AMQP queues.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Domenick1991/flightbook/config"
	"github.com/Domenick1991/flightbook/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func NewConn(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	return conn, nil
}

// DeclareQueues makes sure the durable queues exist.
func DeclareQueues(ch *amqp.Channel, names ...string) error {
	for _, name := range names {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}
	}
	return nil
}

type Publisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	queues []string
	logger *zap.Logger
}

func NewPublisher(conn *amqp.Connection, cfg config.RabbitMQConfig, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	queues := []string{cfg.BookingQueue, cfg.NotificationsQueue}
	if err := DeclareQueues(ch, queues...); err != nil {
		ch.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, queues: queues, logger: logger}, nil
}

// PublishBooking sends the event to the booking queue and the notifications queue.
func (p *Publisher) PublishBooking(ctx context.Context, event events.BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, queue := range p.queues {
		err := p.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.Key(),
			Body:         body,
			Timestamp:    time.Now(),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to publish to queue %s: %w", queue, err))
			continue
		}
		p.logger.Debug("published to rabbitmq", zap.String("queue", queue), zap.String("booking_id", event.BookingID))
	}
	return errors.Join(errs...)
}

func (p *Publisher) Close() error {
	return errors.Join(p.ch.Close(), p.conn.Close())
}

type Consumer struct {
	conn   *amqp.Connection
	queue  string
	logger *zap.Logger
}

func NewConsumer(conn *amqp.Connection, queue string, logger *zap.Logger) *Consumer {
	return &Consumer{conn: conn, queue: queue, logger: logger}
}

// Consume acks handled deliveries, drops malformed ones and requeues failures.
func (c *Consumer) Consume(ctx context.Context, handler events.Handler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := DeclareQueues(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.handle(ctx, msg, handler)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery, handler events.Handler) {
	event, err := events.Decode(msg.Body)
	if err != nil {
		c.logger.Warn("drop malformed event", zap.String("queue", c.queue), zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	if err := handler(ctx, event); err != nil {
		c.logger.Error("handle event", zap.String("booking_id", event.BookingID), zap.Error(err))
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

func (c *Consumer) Close() error {
	return c.conn.Close()
}

var (
	_ events.Publisher = (*Publisher)(nil)
	_ events.Consumer  = (*Consumer)(nil)
)
