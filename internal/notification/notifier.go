// Package notification dispatches best-effort user notifications after
// committed state changes. Delivery failures are logged and never retried by
// the payment pipeline; financial state consistency takes precedence over
// notification delivery.
package notification

import (
	"context"

	"github.com/pamojafund/payment-ledger/internal/domain/contribution"
)

// Notifier is the capability the orchestrator uses after a successful state
// mutation. Implementations must never block the payment pipeline.
type Notifier interface {
	SendPaymentSuccess(ctx context.Context, c *contribution.Contribution)
	SendPaymentFailure(ctx context.Context, c *contribution.Contribution)
	SendRefundNotice(ctx context.Context, c *contribution.Contribution, reason string)
	SendAdminConfirmation(ctx context.Context, c *contribution.Contribution)
}

// Sender delivers a single message synchronously. The async dispatcher wraps
// a Sender with a worker pool; the sender itself may retry a bounded number
// of times.
type Sender interface {
	Send(ctx context.Context, kind Kind, c *contribution.Contribution, detail string) error
}

// Kind classifies a notification message
type Kind string

const (
	KindPaymentSuccess    Kind = "payment_success"
	KindPaymentFailure    Kind = "payment_failure"
	KindRefundNotice      Kind = "refund_notice"
	KindAdminConfirmation Kind = "admin_confirmation"
)
