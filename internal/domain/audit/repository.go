package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages the append-only audit trail. There is no update or
// delete; entries are immutable once written.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	ListByContribution(ctx context.Context, contributionID uuid.UUID) ([]*Entry, error)
	WithTx(tx pgx.Tx) Repository
}
