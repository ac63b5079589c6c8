// Package eventbus provides the in-process publish/subscribe dispatcher that
// decouples callback ingestion from the contribution state machine. Delivery
// is synchronous: handlers run on the publisher's call stack, and handler
// errors are logged and returned to the publisher rather than swallowed.
package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Topic identifies a class of gateway outcome events
type Topic string

const (
	TopicPaymentSucceeded Topic = "payment.succeeded"
	TopicPaymentFailed    Topic = "payment.failed"
	TopicRefundSucceeded  Topic = "refund.succeeded"
	TopicRefundFailed     Topic = "refund.failed"
	TopicRefundTimedOut   Topic = "refund.timed_out"
)

// Handler processes one published event
type Handler func(ctx context.Context, event interface{}) error

// Publisher is the narrow interface callback ingestion depends on
type Publisher interface {
	Publish(ctx context.Context, topic Topic, event interface{}) error
}

// Bus is a single process-wide dispatcher mapping topics to handler lists.
// Subscriptions are registered once at process start; Publish is safe for
// concurrent use afterwards.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
	logger   *slog.Logger
}

var _ Publisher = (*Bus)(nil)

// New creates an empty event bus
func New(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[Topic][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a topic
func (b *Bus) Subscribe(topic Topic, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish delivers the event to every registered handler in registration
// order. All handlers run even when an earlier one fails; the joined error is
// returned so the publisher decides whether to swallow it.
func (b *Bus) Publish(ctx context.Context, topic Topic, event interface{}) error {
	b.mu.RLock()
	handlers := b.handlers[topic]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Warn("No handlers registered for topic", "topic", string(topic))
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.Error("Event handler failed", "topic", string(topic), "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
