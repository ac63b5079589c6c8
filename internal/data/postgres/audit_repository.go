package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pamojafund/payment-ledger/internal/domain/audit"
	"github.com/pamojafund/payment-ledger/internal/platform/persistence"
)

// AuditRepository implements the audit.Repository interface for PostgreSQL
type AuditRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAuditRepository creates a new PostgreSQL audit repository
func NewAuditRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.Repository {
	return &AuditRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. Audit entries must land in
// the same transaction as the contribution mutation they describe.
func (r *AuditRepository) WithTx(tx pgx.Tx) audit.Repository {
	return &AuditRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends an audit entry. Entries are never updated or deleted.
func (r *AuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	query := `
		INSERT INTO contribution_audit_log (id, contribution_id, admin_user_id, previous_status, new_status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.ContributionID,
		entry.AdminUserID,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.Reason,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create audit entry",
			"contribution_id", entry.ContributionID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

// ListByContribution retrieves the audit trail for a contribution in
// chronological order
func (r *AuditRepository) ListByContribution(ctx context.Context, contributionID uuid.UUID) ([]*audit.Entry, error) {
	query := `
		SELECT id, contribution_id, admin_user_id, previous_status, new_status, reason, created_at
		FROM contribution_audit_log
		WHERE contribution_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, contributionID)
	if err != nil {
		r.logger.Error("Failed to list audit entries", "contribution_id", contributionID.String(), "error", err)
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		var entry audit.Entry
		var reason *string
		err := rows.Scan(
			&entry.ID,
			&entry.ContributionID,
			&entry.AdminUserID,
			&entry.PreviousStatus,
			&entry.NewStatus,
			&reason,
			&entry.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan audit entry", "error", err)
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if reason != nil {
			entry.Reason = *reason
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over audit entries", "error", err)
		return nil, fmt.Errorf("error iterating over audit entries: %w", err)
	}

	return entries, nil
}
