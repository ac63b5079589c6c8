package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pamojafund/payment-ledger/internal/domain/transaction"
	"github.com/pamojafund/payment-ledger/internal/platform/persistence"
)

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const transactionColumns = `id, contribution_id, transaction_type, amount, status, gateway_transaction_id, gateway_response, error_code, error_message, created_at`

// Create stores a new transaction log row, normally in PENDING status before
// the gateway call completes
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, contribution_id, transaction_type, amount, status, gateway_transaction_id, gateway_response, error_code, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10)
	`

	_, err := r.querier.Exec(ctx, query,
		t.ID,
		t.ContributionID,
		t.TransactionType,
		t.Amount,
		t.Status,
		t.GatewayTransactionID,
		t.GatewayResponse,
		t.ErrorCode,
		t.ErrorMessage,
		t.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// Update persists the resolution of a gateway call attempt
func (r *TransactionRepository) Update(ctx context.Context, t *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET status = $1, gateway_transaction_id = NULLIF($2, ''), gateway_response = NULLIF($3, ''), error_code = NULLIF($4, ''), error_message = NULLIF($5, '')
		WHERE id = $6
	`

	result, err := r.querier.Exec(ctx, query,
		t.Status,
		t.GatewayTransactionID,
		t.GatewayResponse,
		t.ErrorCode,
		t.ErrorMessage,
		t.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update transaction", "id", t.ID.String(), "error", err)
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: t.ID}
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	t, err := r.scanRow(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return t, nil
}

// GetByGatewayTransactionID resolves a gateway-side id to the most recent
// transaction of the given type carrying it. Returns nil, nil when nothing matches.
func (r *TransactionRepository) GetByGatewayTransactionID(ctx context.Context, gatewayID string, txnType transaction.Type) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE gateway_transaction_id = $1 AND transaction_type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	t, err := r.scanRow(r.querier.QueryRow(ctx, query, gatewayID, txnType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by gateway id", "gateway_id", gatewayID, "error", err)
		return nil, fmt.Errorf("failed to get transaction by gateway id: %w", err)
	}

	return t, nil
}

// GetLatestSuccessfulPayment returns the most recent successful payment
// transaction for a contribution, or nil, nil when none exists
func (r *TransactionRepository) GetLatestSuccessfulPayment(ctx context.Context, contributionID uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE contribution_id = $1 AND transaction_type = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	t, err := r.scanRow(r.querier.QueryRow(ctx, query, contributionID, transaction.TypePayment, transaction.StatusSuccess))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get latest successful payment", "contribution_id", contributionID.String(), "error", err)
		return nil, fmt.Errorf("failed to get latest successful payment: %w", err)
	}

	return t, nil
}

// ListByContribution retrieves all gateway call attempts for a contribution in
// chronological order
func (r *TransactionRepository) ListByContribution(ctx context.Context, contributionID uuid.UUID) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE contribution_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, contributionID)
	if err != nil {
		r.logger.Error("Failed to list transactions", "contribution_id", contributionID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		t, err := r.scanRow(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transactions", "error", err)
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return transactions, nil
}

func (r *TransactionRepository) scanRow(row pgx.Row) (*transaction.Transaction, error) {
	var t transaction.Transaction
	var gatewayID, gatewayResponse, errorCode, errorMessage *string
	err := row.Scan(
		&t.ID,
		&t.ContributionID,
		&t.TransactionType,
		&t.Amount,
		&t.Status,
		&gatewayID,
		&gatewayResponse,
		&errorCode,
		&errorMessage,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if gatewayID != nil {
		t.GatewayTransactionID = *gatewayID
	}
	if gatewayResponse != nil {
		t.GatewayResponse = *gatewayResponse
	}
	if errorCode != nil {
		t.ErrorCode = *errorCode
	}
	if errorMessage != nil {
		t.ErrorMessage = *errorMessage
	}
	return &t, nil
}
