package contribution

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines contribution persistence operations
type Repository interface {
	Create(ctx context.Context, c *Contribution) error
	GetByID(ctx context.Context, id uuid.UUID) (*Contribution, error)

	// GetByPaymentReference resolves a gateway checkout id back to its
	// contribution. Returns nil, nil when no contribution carries the
	// reference (callbacks for unknown references are dropped, not errors).
	GetByPaymentReference(ctx context.Context, reference string) (*Contribution, error)

	// LockForUpdate acquires a pessimistic lock for status transitions
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Contribution, error)
	Update(ctx context.Context, c *Contribution) error
	ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*Contribution, error)
	WithTx(tx pgx.Tx) Repository
}
