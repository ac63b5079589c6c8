package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pamojafund/payment-ledger/internal/domain/project"
	"github.com/pamojafund/payment-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// ProjectRepository implements the project.Repository interface for PostgreSQL
type ProjectRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewProjectRepository creates a new PostgreSQL project repository
func NewProjectRepository(logger *slog.Logger, db *persistence.PostgresDB) project.Repository {
	return &ProjectRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. Ledger adjustments must run
// in the same transaction as the contribution status change.
func (r *ProjectRepository) WithTx(tx pgx.Tx) project.Repository {
	return &ProjectRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new project ledger row
func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) error {
	query := `
		INSERT INTO projects (id, name, status, target_amount, current_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Status,
		p.TargetAmount,
		p.CurrentAmount,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create project", "error", err)
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetByID retrieves a project by its ID
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	query := `
		SELECT id, name, status, target_amount, current_amount, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	var p project.Project
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Status,
		&p.TargetAmount,
		&p.CurrentAmount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, project.ErrProjectNotFound{ProjectID: id}
		}
		r.logger.Error("Failed to get project", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &p, nil
}

// AdjustCurrentAmount applies an additive delta to the project's running
// total. The guarded UPDATE locks the row, applies the delta and refuses a
// negative result in one statement; two concurrent contributions on the same
// project serialize on the row lock instead of both reading a stale total.
func (r *ProjectRepository) AdjustCurrentAmount(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}

	query := `
		UPDATE projects
		SET current_amount = current_amount + $1, updated_at = NOW()
		WHERE id = $2 AND current_amount + $1 >= 0
	`

	result, err := r.querier.Exec(ctx, query, delta, id)
	if err != nil {
		r.logger.Error("Failed to adjust project amount", "id", id.String(), "delta", delta.String(), "error", err)
		return fmt.Errorf("failed to adjust project amount: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing project from a would-be-negative total
		exists, checkErr := r.exists(ctx, id)
		if checkErr != nil {
			return checkErr
		}
		if !exists {
			return project.ErrProjectNotFound{ProjectID: id}
		}
		return project.LedgerViolationError{ProjectID: id, Delta: delta}
	}

	return nil
}

func (r *ProjectRepository) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.querier.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check project existence", "id", id.String(), "error", err)
		return false, fmt.Errorf("failed to check project existence: %w", err)
	}
	return exists, nil
}
