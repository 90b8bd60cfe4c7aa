package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxHandlerRetries bounds handler attempts per message; after that the
// message is committed and skipped.
const maxHandlerRetries = 3

// TopicPrefix prefixes every topic this service produces or consumes.
const TopicPrefix = "catalog"

// Topic builds "catalog.<domain>.<action>".
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}

// Handler processes one Event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic within a consumer group and dispatches each
// decoded Event to its Handler.
type Consumer struct {
	reader    messageReader
	topic     string
	group     string
	logger    *slog.Logger
	handler   Handler
	backoff   time.Duration
	closeOnce sync.Once
}

// NewConsumer creates a consumer for cfg.Topic in cfg.GroupID.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return newConsumer(r, cfg.Topic, cfg.GroupID, handler, logger)
}

func newConsumer(r messageReader, topic, group string, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		topic:   topic,
		group:   group,
		logger:  logger,
		handler: handler,
		backoff: 100 * time.Millisecond,
	}
}

// Start consumes until ctx is canceled. Messages are committed after they
// are handled, skipped as undecodable, or skipped after maxHandlerRetries
// failed attempts.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started", slog.String("topic", c.topic), slog.String("group", c.group))
	defer c.logger.Info("consumer stopped", slog.String("topic", c.topic))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return c.Close()
			}
			c.logger.Error("failed to fetch message", slog.String("topic", c.topic), slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return c.Close()
			case <-time.After(c.backoff):
			}
			continue
		}

		if err := c.process(ctx, msg); err != nil && ctx.Err() != nil {
			return c.Close()
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

// process runs the handler with retries. The returned error is non-nil only
// when the message could not be handled; the caller still commits it.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	start := time.Now()
	defer func() {
		consumerProcessingDuration.WithLabelValues(c.topic, c.group).Observe(time.Since(start).Seconds())
	}()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		consumerMessagesFailed.WithLabelValues(c.topic, c.group).Inc()
		c.logger.Error("failed to decode event, skipping",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return err
	}

	for attempt := 1; ; attempt++ {
		err = c.handler(ctx, event)
		if err == nil {
			consumerMessagesProcessed.WithLabelValues(c.topic, c.group).Inc()
			return nil
		}
		if attempt == maxHandlerRetries {
			break
		}
		c.logger.Warn("handler failed, retrying",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}

	consumerMessagesFailed.WithLabelValues(c.topic, c.group).Inc()
	c.logger.Error("handler failed after all retries, skipping message",
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
		slog.String("error", err.Error()),
	)
	return err
}

// Topic returns the topic this consumer reads.
func (c *Consumer) Topic() string { return c.topic }

// Close closes the consumer. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
