package project

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines the project operations the payment pipeline needs.
// current_amount is only ever changed through AdjustCurrentAmount; blind
// overwrites of the running total are not part of the interface.
type Repository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)

	// AdjustCurrentAmount applies an additive delta under a row lock and
	// returns LedgerViolationError when the result would be negative.
	// Must be called inside the same transaction as the contribution
	// status change it accompanies.
	AdjustCurrentAmount(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
	WithTx(tx pgx.Tx) Repository
}
