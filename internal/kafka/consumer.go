package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/flightbook/internal/events"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		logger: logger,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume reads until ctx is cancelled. Malformed messages are logged and skipped.
func (c *Consumer) Consume(ctx context.Context, handler events.Handler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return err
		}

		if err := handleMessage(ctx, msg.Value, handler, c.logger); err != nil {
			return err
		}
	}
}

func handleMessage(ctx context.Context, value []byte, handler events.Handler, logger *zap.Logger) error {
	event, err := events.Decode(value)
	if err != nil {
		logger.Warn("skip malformed event", zap.Error(err))
		return nil
	}
	return handler(ctx, event)
}

var _ events.Consumer = (*Consumer)(nil)
