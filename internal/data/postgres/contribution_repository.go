// Package postgres provides PostgreSQL implementations of the domain
// repositories. All status-changing operations are expected to run inside a
// transaction obtained from the persistence layer and joined via WithTx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pamojafund/payment-ledger/internal/domain/contribution"
	"github.com/pamojafund/payment-ledger/internal/platform/persistence"
)

// ContributionRepository implements the contribution.Repository interface for PostgreSQL
type ContributionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewContributionRepository creates a new PostgreSQL contribution repository
func NewContributionRepository(logger *slog.Logger, db *persistence.PostgresDB) contribution.Repository {
	return &ContributionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls
func (r *ContributionRepository) WithTx(tx pgx.Tx) contribution.Repository {
	return &ContributionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const contributionColumns = `id, user_id, project_id, amount, payment_status, notes, payment_reference, failure_reason, paid_at, created_at, updated_at`

// Create stores a new contribution
func (r *ContributionRepository) Create(ctx context.Context, c *contribution.Contribution) error {
	query := `
		INSERT INTO contributions (id, user_id, project_id, amount, payment_status, notes, payment_reference, failure_reason, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.ProjectID,
		c.Amount,
		c.PaymentStatus,
		c.Notes,
		c.PaymentReference,
		c.FailureReason,
		c.PaidAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create contribution", "error", err)
		return fmt.Errorf("failed to create contribution: %w", err)
	}

	return nil
}

// GetByID retrieves a contribution by its ID
func (r *ContributionRepository) GetByID(ctx context.Context, id uuid.UUID) (*contribution.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE id = $1
	`

	c, err := r.scanRow(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contribution.ErrContributionNotFound{ContributionID: id}
		}
		r.logger.Error("Failed to get contribution", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}

	return c, nil
}

// GetByPaymentReference resolves a gateway checkout id to its contribution.
// Returns nil, nil when no contribution carries the reference.
func (r *ContributionRepository) GetByPaymentReference(ctx context.Context, reference string) (*contribution.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE payment_reference = $1
	`

	c, err := r.scanRow(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get contribution by payment reference", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get contribution by payment reference: %w", err)
	}

	return c, nil
}

// LockForUpdate obtains a pessimistic lock on the contribution and returns its
// current state. Must be used within a transaction.
func (r *ContributionRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*contribution.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE id = $1
		FOR UPDATE
	`

	c, err := r.scanRow(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contribution.ErrContributionNotFound{ContributionID: id}
		}
		r.logger.Error("Failed to lock contribution for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock contribution for update: %w", err)
	}

	return c, nil
}

// Update persists the mutable fields of a contribution
func (r *ContributionRepository) Update(ctx context.Context, c *contribution.Contribution) error {
	query := `
		UPDATE contributions
		SET payment_status = $1, notes = $2, payment_reference = NULLIF($3, ''), failure_reason = NULLIF($4, ''), paid_at = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.querier.Exec(ctx, query,
		c.PaymentStatus,
		c.Notes,
		c.PaymentReference,
		c.FailureReason,
		c.PaidAt,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update contribution", "id", c.ID.String(), "error", err)
		return fmt.Errorf("failed to update contribution: %w", err)
	}

	if result.RowsAffected() == 0 {
		return contribution.ErrContributionNotFound{ContributionID: c.ID}
	}

	return nil
}

// ListByProject retrieves contributions for a project ordered by creation time
func (r *ContributionRepository) ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*contribution.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, projectID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list contributions", "project_id", projectID.String(), "error", err)
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []*contribution.Contribution
	for rows.Next() {
		c, err := r.scanRow(rows)
		if err != nil {
			r.logger.Error("Failed to scan contribution", "error", err)
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over contributions", "error", err)
		return nil, fmt.Errorf("error iterating over contributions: %w", err)
	}

	return contributions, nil
}

// scanRow scans a single contribution row, mapping nullable text columns back
// to empty strings on the entity
func (r *ContributionRepository) scanRow(row pgx.Row) (*contribution.Contribution, error) {
	var c contribution.Contribution
	var paymentReference, failureReason *string
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.ProjectID,
		&c.Amount,
		&c.PaymentStatus,
		&c.Notes,
		&paymentReference,
		&failureReason,
		&c.PaidAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paymentReference != nil {
		c.PaymentReference = *paymentReference
	}
	if failureReason != nil {
		c.FailureReason = *failureReason
	}
	return &c, nil
}
