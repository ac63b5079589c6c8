package notification

import (
	"context"
	"log/slog"

	"github.com/pamojafund/payment-ledger/internal/domain/contribution"
)

// LogSender writes notifications to the log. It stands in for the real mail
// integration, which lives in the platform's messaging service and is
// reached over its own API.
type LogSender struct {
	logger *slog.Logger
}

var _ Sender = (*LogSender)(nil)

// NewLogSender creates a sender that only logs
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, kind Kind, c *contribution.Contribution, detail string) error {
	s.logger.Info("Notification dispatched",
		"kind", string(kind),
		"contribution_id", c.ID.String(),
		"user_id", c.UserID.String(),
		"status", string(c.PaymentStatus),
		"detail", detail,
	)
	return nil
}
