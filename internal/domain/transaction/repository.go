package transaction

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages transaction log persistence
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	Update(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// GetByGatewayTransactionID resolves a gateway-side id (checkout request
	// or reversal conversation id) to the transaction that recorded it.
	// Returns nil, nil when nothing matches.
	GetByGatewayTransactionID(ctx context.Context, gatewayID string, txnType Type) (*Transaction, error)

	// GetLatestSuccessfulPayment returns the most recent SUCCESS payment
	// transaction for a contribution, or nil, nil when none exists. Refunds
	// may only target contributions with such a transaction.
	GetLatestSuccessfulPayment(ctx context.Context, contributionID uuid.UUID) (*Transaction, error)
	ListByContribution(ctx context.Context, contributionID uuid.UUID) ([]*Transaction, error)
	WithTx(tx pgx.Tx) Repository
}
