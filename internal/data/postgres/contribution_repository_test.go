package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pamojafund/payment-ledger/internal/domain/contribution"
)

func contributionRows(c *contribution.Contribution) *pgxmock.Rows {
	var paymentReference, failureReason *string
	if c.PaymentReference != "" {
		paymentReference = &c.PaymentReference
	}
	if c.FailureReason != "" {
		failureReason = &c.FailureReason
	}
	return pgxmock.NewRows([]string{"id", "user_id", "project_id", "amount", "payment_status", "notes", "payment_reference", "failure_reason", "paid_at", "created_at", "updated_at"}).
		AddRow(c.ID, c.UserID, c.ProjectID, c.Amount, c.PaymentStatus, c.Notes, paymentReference, failureReason, c.PaidAt, c.CreatedAt, c.UpdatedAt)
}

func testContribution() *contribution.Contribution {
	now := time.Now()
	return &contribution.Contribution{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		ProjectID:     uuid.New(),
		Amount:        decimal.RequireFromString("150.00"),
		PaymentStatus: contribution.StatusPending,
		Notes:         "monthly pledge",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestContributionRepository_GetByPaymentReference(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ContributionRepository{querier: mock, logger: logger}

	query := `
		SELECT id, user_id, project_id, amount, payment_status, notes, payment_reference, failure_reason, paid_at, created_at, updated_at
		FROM contributions
		WHERE payment_reference = \$1
	`

	t.Run("success", func(t *testing.T) {
		expected := testContribution()
		expected.PaymentReference = "ws_CO_123"
		mock.ExpectQuery(query).WithArgs("ws_CO_123").WillReturnRows(contributionRows(expected))

		c, err := repo.GetByPaymentReference(ctx, "ws_CO_123")
		assert.NoError(t, err)
		assert.Equal(t, expected, c)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown reference", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("ws_CO_ghost").WillReturnError(pgx.ErrNoRows)

		c, err := repo.GetByPaymentReference(ctx, "ws_CO_ghost")
		assert.NoError(t, err) // No error, just nil contribution
		assert.Nil(t, c)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs("ws_CO_123").WillReturnError(dbErr)

		c, err := repo.GetByPaymentReference(ctx, "ws_CO_123")
		assert.Error(t, err)
		assert.Nil(t, c)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContributionRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ContributionRepository{querier: mock, logger: logger}

	query := `
		SELECT id, user_id, project_id, amount, payment_status, notes, payment_reference, failure_reason, paid_at, created_at, updated_at
		FROM contributions
		WHERE id = \$1
		FOR UPDATE
	`

	t.Run("success", func(t *testing.T) {
		expected := testContribution()
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnRows(contributionRows(expected))

		c, err := repo.LockForUpdate(ctx, expected.ID)
		assert.NoError(t, err)
		assert.Equal(t, expected, c)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(query).WithArgs(id).WillReturnError(pgx.ErrNoRows)

		c, err := repo.LockForUpdate(ctx, id)
		assert.Error(t, err)
		assert.Nil(t, c)
		var notFoundErr contribution.ErrContributionNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, id, notFoundErr.ContributionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContributionRepository_Update(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ContributionRepository{querier: mock, logger: logger}
	c := testContribution()
	c.PaymentStatus = contribution.StatusPaid
	c.PaymentReference = "ws_CO_123"

	query := `
		UPDATE contributions
		SET payment_status = \$1, notes = \$2, payment_reference = NULLIF\(\$3, ''\), failure_reason = NULLIF\(\$4, ''\), paid_at = \$5, updated_at = \$6
		WHERE id = \$7
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(c.PaymentStatus, c.Notes, c.PaymentReference, c.FailureReason, c.PaidAt, c.UpdatedAt, c.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, c)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(c.PaymentStatus, c.Notes, c.PaymentReference, c.FailureReason, c.PaidAt, c.UpdatedAt, c.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, c)
		assert.Error(t, err)
		var notFoundErr contribution.ErrContributionNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("update db error")
		mock.ExpectExec(query).
			WithArgs(c.PaymentStatus, c.Notes, c.PaymentReference, c.FailureReason, c.PaidAt, c.UpdatedAt, c.ID).
			WillReturnError(dbErr)

		err := repo.Update(ctx, c)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update contribution")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
