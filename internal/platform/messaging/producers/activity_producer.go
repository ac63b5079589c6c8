// Package producers publishes contribution activity events to Kafka for the
// platform's activity trail. Publishing is best-effort: the payment pipeline
// never fails or rolls back because an activity event could not be written.
package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pamojafund/payment-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// ActivityPublisher handles publishing activity events
type ActivityPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ActivityEvent is the wire shape of one contribution activity record
type ActivityEvent struct {
	ContributionID string    `json:"contribution_id"`
	ProjectID      string    `json:"project_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Reason         string    `json:"reason,omitempty"`
	AdminUserID    string    `json:"admin_user_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ActivityEventProducer publishes activity events to the configured topic
type ActivityEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

var _ ActivityPublisher = (*ActivityEventProducer)(nil)

// NewActivityEventProducer creates the producer and ensures the topic exists
func NewActivityEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ActivityEventProducer, error) {
	if cfg.ActivityTopic == "" {
		return nil, fmt.Errorf("kafka activity topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for activity producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.ActivityTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure activity topic %s exists: %w", cfg.ActivityTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.ActivityTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Activity events are fire-and-forget
		WriteTimeout: cfg.WriteTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write activity events asynchronously", "topic", cfg.ActivityTopic, "error", err, "count", len(messages))
			}
		},
	}

	return &ActivityEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ActivityTopic,
	}, nil
}

func (p *ActivityEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal activity event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish activity event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish activity event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published activity event", "topic", p.topic, "key", key)
	return nil
}

func (p *ActivityEventProducer) Close() error {
	p.logger.Info("Closing activity event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close activity kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
