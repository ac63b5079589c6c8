package notification

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"
	"github.com/pamojafund/payment-ledger/internal/config"
	"github.com/pamojafund/payment-ledger/internal/domain/contribution"
)

// AsyncDispatcher fans notification sends out to a worker pool. Submissions
// never block the caller; a full or broken pool only logs.
type AsyncDispatcher struct {
	sender        Sender
	pool          *ants.Pool
	retryAttempts int
	logger        *slog.Logger
}

var _ Notifier = (*AsyncDispatcher)(nil)

// NewAsyncDispatcher creates a dispatcher with its own worker pool
func NewAsyncDispatcher(logger *slog.Logger, cfg *config.NotificationConfig, sender Sender) (*AsyncDispatcher, error) {
	pool, err := ants.NewPool(cfg.PoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	return &AsyncDispatcher{
		sender:        sender,
		pool:          pool,
		retryAttempts: cfg.RetryAttempts,
		logger:        logger,
	}, nil
}

func (d *AsyncDispatcher) SendPaymentSuccess(ctx context.Context, c *contribution.Contribution) {
	d.dispatch(KindPaymentSuccess, c, "")
}

func (d *AsyncDispatcher) SendPaymentFailure(ctx context.Context, c *contribution.Contribution) {
	d.dispatch(KindPaymentFailure, c, c.FailureReason)
}

func (d *AsyncDispatcher) SendRefundNotice(ctx context.Context, c *contribution.Contribution, reason string) {
	d.dispatch(KindRefundNotice, c, reason)
}

func (d *AsyncDispatcher) SendAdminConfirmation(ctx context.Context, c *contribution.Contribution) {
	d.dispatch(KindAdminConfirmation, c, "")
}

// dispatch submits the send to the pool. The worker uses a background
// context: the HTTP request that triggered the notification may complete
// before the send does.
func (d *AsyncDispatcher) dispatch(kind Kind, c *contribution.Contribution, detail string) {
	snapshot := *c

	err := d.pool.Submit(func() {
		ctx := context.Background()
		var lastErr error
		for attempt := 0; attempt <= d.retryAttempts; attempt++ {
			lastErr = d.sender.Send(ctx, kind, &snapshot, detail)
			if lastErr == nil {
				return
			}
		}
		d.logger.Error("Notification delivery failed after retries",
			"kind", string(kind),
			"contribution_id", snapshot.ID.String(),
			"attempts", d.retryAttempts+1,
			"error", lastErr,
		)
	})
	if err != nil {
		d.logger.Error("Failed to submit notification to pool",
			"kind", string(kind),
			"contribution_id", c.ID.String(),
			"error", err,
		)
	}
}

// Shutdown releases the worker pool
func (d *AsyncDispatcher) Shutdown() {
	d.logger.Info("Shutting down notification pool", "running_workers", d.pool.Running())
	d.pool.Release()
}
