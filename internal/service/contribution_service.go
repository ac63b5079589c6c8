// Package service implements the contribution orchestrator: the state machine
// driving every contribution status change, the ledger adjustments that
// accompany them and the gateway calls that initiate payments and refunds.
// All status mutations, whether admin-driven or callback-driven, pass through
// UpdateContributionStatus so the transition table, the ledger delta and the
// audit write stay atomic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pamojafund/payment-ledger/internal/domain/audit"
	"github.com/pamojafund/payment-ledger/internal/domain/contribution"
	"github.com/pamojafund/payment-ledger/internal/domain/project"
	"github.com/pamojafund/payment-ledger/internal/domain/transaction"
	"github.com/pamojafund/payment-ledger/internal/gateway/mpesa"
	"github.com/pamojafund/payment-ledger/internal/notification"
	"github.com/pamojafund/payment-ledger/internal/platform/messaging/producers"
	"github.com/pamojafund/payment-ledger/internal/platform/persistence"
)

// Gateway is the slice of the mobile-money client the orchestrator uses
type Gateway interface {
	InitiatePayment(ctx context.Context, amount decimal.Decimal, phoneNumber, reference string) mpesa.Result
	InitiateReversal(ctx context.Context, originalTransactionID string, amount decimal.Decimal, reason string) mpesa.Result
	PollStatus(ctx context.Context, checkoutRequestID string) mpesa.StatusResult
}

// ContributionService orchestrates contribution state changes
type ContributionService struct {
	logger           *slog.Logger
	txRunner         persistence.TxRunner
	contributionRepo contribution.Repository
	transactionRepo  transaction.Repository
	auditRepo        audit.Repository
	projectRepo      project.Repository
	gateway          Gateway
	notifier         notification.Notifier
	activity         producers.ActivityPublisher
}

// NewContributionService creates the orchestrator with its collaborators
func NewContributionService(
	logger *slog.Logger,
	txRunner persistence.TxRunner,
	contributionRepo contribution.Repository,
	transactionRepo transaction.Repository,
	auditRepo audit.Repository,
	projectRepo project.Repository,
	gateway Gateway,
	notifier notification.Notifier,
	activity producers.ActivityPublisher,
) *ContributionService {
	return &ContributionService{
		logger:           logger,
		txRunner:         txRunner,
		contributionRepo: contributionRepo,
		transactionRepo:  transactionRepo,
		auditRepo:        auditRepo,
		projectRepo:      projectRepo,
		gateway:          gateway,
		notifier:         notifier,
		activity:         activity,
	}
}

// CreateContribution creates a new PENDING contribution after validating the
// amount and that the owning project accepts contributions. No ledger effect.
func (s *ContributionService) CreateContribution(ctx context.Context, userID, projectID uuid.UUID, amount decimal.Decimal, notes string) (*contribution.Contribution, error) {
	proj, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !proj.AcceptingContributions() {
		return nil, contribution.ValidationError{Field: "project_id", Reason: "project is not accepting contributions"}
	}

	c, err := contribution.New(userID, projectID, amount, notes)
	if err != nil {
		return nil, err
	}

	if err := s.contributionRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create contribution: %w", err)
	}

	s.logger.Info("Contribution created",
		"contribution_id", c.ID.String(),
		"project_id", projectID.String(),
		"amount", amount.String(),
	)
	return c, nil
}

// AdminCreateParams carries the fields of an admin-created contribution
type AdminCreateParams struct {
	UserID           uuid.UUID
	ProjectID        uuid.UUID
	Amount           decimal.Decimal
	Status           contribution.Status
	PaymentReference string
	Notes            string
	AdminUserID      uuid.UUID
	SendEmail        bool
}

// AdminCreateContribution creates a contribution that may start in a
// non-PENDING status. Starting PAID applies the ledger delta; every admin
// creation writes an audit entry regardless of the initial status.
func (s *ContributionService) AdminCreateContribution(ctx context.Context, params AdminCreateParams) (*contribution.Contribution, error) {
	if !params.Status.Valid() {
		return nil, contribution.ValidationError{Field: "status", Reason: "unknown status " + string(params.Status)}
	}
	if params.Status == contribution.StatusRefunded {
		return nil, contribution.ValidationError{Field: "status", Reason: "a contribution cannot be created as REFUNDED"}
	}

	proj, err := s.projectRepo.GetByID(ctx, params.ProjectID)
	if err != nil {
		return nil, err
	}
	if !proj.AcceptingContributions() {
		return nil, contribution.ValidationError{Field: "project_id", Reason: "project is not accepting contributions"}
	}

	c, err := contribution.New(params.UserID, params.ProjectID, params.Amount, params.Notes)
	if err != nil {
		return nil, err
	}
	c.PaymentReference = params.PaymentReference
	if params.Status != contribution.StatusPending {
		c.ApplyStatus(params.Status, "", time.Now())
	}

	adminID := params.AdminUserID
	reason := "admin created with status " + string(params.Status)

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.contributionRepo.WithTx(tx).Create(ctx, c); err != nil {
			return fmt.Errorf("failed to create contribution: %w", err)
		}

		delta := contribution.LedgerDelta(contribution.StatusPending, params.Status, params.Amount)
		if !delta.IsZero() {
			if err := s.projectRepo.WithTx(tx).AdjustCurrentAmount(ctx, params.ProjectID, delta); err != nil {
				return err
			}
		}

		entry := audit.NewEntry(c.ID, &adminID, contribution.StatusPending, params.Status, reason)
		return s.auditRepo.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Contribution created by admin",
		"contribution_id", c.ID.String(),
		"status", string(params.Status),
		"admin_user_id", adminID.String(),
	)

	if params.SendEmail {
		s.notifier.SendAdminConfirmation(ctx, c)
	}
	s.publishActivity(ctx, c, contribution.StatusPending, params.Status, reason, &adminID)

	return c, nil
}

// ProcessPayment initiates a gateway payment for a PENDING contribution. On
// gateway acceptance the contribution stays PENDING with the checkout id
// recorded as its payment reference; the terminal state arrives later via
// callback. Transport failure leaves the contribution unchanged and returns
// ErrGatewayUnavailable; a synchronous gateway rejection transitions it to
// FAILED and returns GatewayRejectedError.
func (s *ContributionService) ProcessPayment(ctx context.Context, contributionID uuid.UUID, phoneNumber string) (*contribution.Contribution, error) {
	c, err := s.contributionRepo.GetByID(ctx, contributionID)
	if err != nil {
		return nil, err
	}
	if c.PaymentStatus != contribution.StatusPending {
		return nil, contribution.ConflictError{From: c.PaymentStatus, To: contribution.StatusPaid, Reason: "payment requires a pending contribution"}
	}

	txn := transaction.New(c.ID, transaction.TypePayment, c.Amount)
	if err := s.transactionRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record payment attempt: %w", err)
	}

	result := s.gateway.InitiatePayment(ctx, c.Amount, phoneNumber, c.ID.String())

	if result.Unreachable() {
		txn.MarkFailed(result.ErrorCode, result.ErrorMessage, "")
		if updErr := s.transactionRepo.Update(ctx, txn); updErr != nil {
			s.logger.Error("Failed to resolve payment transaction", "transaction_id", txn.ID.String(), "error", updErr)
		}
		s.logger.Warn("Gateway unreachable during payment initiation",
			"contribution_id", c.ID.String(),
			"error", result.ErrorMessage,
		)
		return nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, result.ErrorMessage)
	}

	if !result.Success {
		txn.MarkFailed(result.ErrorCode, result.ErrorMessage, "")
		if updErr := s.transactionRepo.Update(ctx, txn); updErr != nil {
			s.logger.Error("Failed to resolve payment transaction", "transaction_id", txn.ID.String(), "error", updErr)
		}

		failed, updErr := s.UpdateContributionStatus(ctx, c.ID, contribution.StatusFailed, result.ErrorMessage, nil)
		if updErr != nil {
			return nil, updErr
		}
		return nil, GatewayRejectedError{Code: result.ErrorCode, Message: result.ErrorMessage, Contribution: failed}
	}

	// The checkout id only exists after the gateway responds, so there is a
	// window where a callback can arrive before the reference is persisted.
	// Such a callback fails correlation and is dropped; the reconcile
	// endpoint recovers the final state from the gateway.
	txn.GatewayTransactionID = result.CheckoutRequestID
	if err := s.transactionRepo.Update(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record checkout id on transaction: %w", err)
	}

	c.PaymentReference = result.CheckoutRequestID
	c.UpdatedAt = time.Now()
	if err := s.contributionRepo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to record payment reference: %w", err)
	}

	s.logger.Info("Payment initiated",
		"contribution_id", c.ID.String(),
		"checkout_request_id", result.CheckoutRequestID,
	)
	return c, nil
}

// UpdateContributionStatus is the single choke point for status changes. It
// locks the contribution, applies the transition table, the ledger delta and
// the audit write inside one database transaction, then fires best-effort
// notification and activity side effects. Requesting the current status is a
// no-op returning the current state, which makes duplicate callback delivery
// idempotent.
func (s *ContributionService) UpdateContributionStatus(ctx context.Context, contributionID uuid.UUID, newStatus contribution.Status, reason string, adminUserID *uuid.UUID) (*contribution.Contribution, error) {
	if !newStatus.Valid() {
		return nil, contribution.ValidationError{Field: "status", Reason: "unknown status " + string(newStatus)}
	}

	var updated *contribution.Contribution
	var previous contribution.Status
	var noop bool

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		c, err := s.contributionRepo.WithTx(tx).LockForUpdate(ctx, contributionID)
		if err != nil {
			return err
		}

		previous = c.PaymentStatus
		if c.PaymentStatus == newStatus {
			noop = true
			updated = c
			return nil
		}
		if !contribution.CanTransition(c.PaymentStatus, newStatus) {
			return contribution.ConflictError{From: c.PaymentStatus, To: newStatus}
		}

		delta := contribution.LedgerDelta(c.PaymentStatus, newStatus, c.Amount)
		if !delta.IsZero() {
			if err := s.projectRepo.WithTx(tx).AdjustCurrentAmount(ctx, c.ProjectID, delta); err != nil {
				return err
			}
		}

		c.ApplyStatus(newStatus, reason, time.Now())
		if err := s.contributionRepo.WithTx(tx).Update(ctx, c); err != nil {
			return fmt.Errorf("failed to update contribution: %w", err)
		}

		entry := audit.NewEntry(c.ID, adminUserID, previous, newStatus, reason)
		if err := s.auditRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}

		updated = c
		return nil
	})
	if err != nil {
		if errors.Is(err, project.LedgerViolationError{}) {
			s.logger.Error("Ledger violation rejected",
				"contribution_id", contributionID.String(),
				"requested_status", string(newStatus),
				"error", err,
			)
		}
		return nil, err
	}

	if noop {
		s.logger.Info("Status unchanged, skipping transition",
			"contribution_id", contributionID.String(),
			"status", string(newStatus),
		)
		return updated, nil
	}

	s.logger.Info("Contribution status updated",
		"contribution_id", contributionID.String(),
		"previous_status", string(previous),
		"new_status", string(newStatus),
	)

	s.notify(ctx, updated, reason)
	s.publishActivity(ctx, updated, previous, newStatus, reason, adminUserID)

	return updated, nil
}

// ProcessRefund initiates a gateway reversal for a PAID contribution. The
// refund precondition is checked before any gateway call: there must be a
// successful payment transaction with a recorded gateway transaction id. On
// gateway acceptance a PENDING refund transaction records the reversal's
// conversation id; the terminal REFUNDED status arrives via the async
// reversal-result callback.
func (s *ContributionService) ProcessRefund(ctx context.Context, contributionID uuid.UUID, reason string, adminUserID *uuid.UUID) (*contribution.Contribution, error) {
	c, err := s.contributionRepo.GetByID(ctx, contributionID)
	if err != nil {
		return nil, err
	}
	if c.PaymentStatus != contribution.StatusPaid {
		return nil, contribution.ConflictError{From: c.PaymentStatus, To: contribution.StatusRefunded}
	}

	payment, err := s.transactionRepo.GetLatestSuccessfulPayment(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.GatewayTransactionID == "" {
		return nil, contribution.ConflictError{
			From:   c.PaymentStatus,
			To:     contribution.StatusRefunded,
			Reason: "no confirmed payment transaction to reverse",
		}
	}

	txn := transaction.New(c.ID, transaction.TypeRefund, c.Amount)
	if err := s.transactionRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record refund attempt: %w", err)
	}

	result := s.gateway.InitiateReversal(ctx, payment.GatewayTransactionID, c.Amount, reason)

	if result.Unreachable() {
		txn.MarkFailed(result.ErrorCode, result.ErrorMessage, "")
		if updErr := s.transactionRepo.Update(ctx, txn); updErr != nil {
			s.logger.Error("Failed to resolve refund transaction", "transaction_id", txn.ID.String(), "error", updErr)
		}
		return nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, result.ErrorMessage)
	}

	if !result.Success {
		txn.MarkFailed(result.ErrorCode, result.ErrorMessage, "")
		if updErr := s.transactionRepo.Update(ctx, txn); updErr != nil {
			s.logger.Error("Failed to resolve refund transaction", "transaction_id", txn.ID.String(), "error", updErr)
		}
		// The contribution stays PAID; a failed reversal must not touch the ledger
		return nil, GatewayRejectedError{Code: result.ErrorCode, Message: result.ErrorMessage, Contribution: c}
	}

	txn.GatewayTransactionID = result.OriginatorConversationID
	if err := s.transactionRepo.Update(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record reversal conversation id: %w", err)
	}

	s.logger.Info("Refund initiated",
		"contribution_id", c.ID.String(),
		"originator_conversation_id", result.OriginatorConversationID,
		"reason", reason,
	)
	return c, nil
}

// ReconcilePayment polls the gateway for the outcome of a pending payment and
// applies the terminal status when one is reported. Non-terminal and unknown
// poll outcomes leave the contribution untouched.
func (s *ContributionService) ReconcilePayment(ctx context.Context, contributionID uuid.UUID) (*contribution.Contribution, error) {
	c, err := s.contributionRepo.GetByID(ctx, contributionID)
	if err != nil {
		return nil, err
	}
	if c.PaymentStatus != contribution.StatusPending || c.PaymentReference == "" {
		return nil, contribution.ConflictError{From: c.PaymentStatus, To: contribution.StatusPaid, Reason: "no pending payment to reconcile"}
	}

	status := s.gateway.PollStatus(ctx, c.PaymentReference)
	switch status.Outcome {
	case mpesa.StatusOutcomePaid:
		return s.UpdateContributionStatus(ctx, c.ID, contribution.StatusPaid, status.ResultDesc, nil)
	case mpesa.StatusOutcomeFailed:
		return s.UpdateContributionStatus(ctx, c.ID, contribution.StatusFailed, status.ResultDesc, nil)
	default:
		s.logger.Info("Payment status still unresolved after polling",
			"contribution_id", c.ID.String(),
			"outcome", string(status.Outcome),
		)
		return c, nil
	}
}

// BulkError records one failed id within a bulk status update
type BulkError struct {
	ContributionID uuid.UUID `json:"contribution_id"`
	Error          string    `json:"error"`
}

// BulkResult summarizes a bulk status update
type BulkResult struct {
	SuccessCount int         `json:"success_count"`
	FailureCount int         `json:"failure_count"`
	Errors       []BulkError `json:"errors,omitempty"`
}

// BulkUpdateContributionStatus applies UpdateContributionStatus independently
// per id, sequentially and each in its own transaction. One id's failure does
// not abort the batch.
func (s *ContributionService) BulkUpdateContributionStatus(ctx context.Context, ids []uuid.UUID, newStatus contribution.Status, reason string, adminUserID *uuid.UUID) BulkResult {
	var result BulkResult
	for _, id := range ids {
		if _, err := s.UpdateContributionStatus(ctx, id, newStatus, reason, adminUserID); err != nil {
			result.FailureCount++
			result.Errors = append(result.Errors, BulkError{ContributionID: id, Error: err.Error()})
			continue
		}
		result.SuccessCount++
	}

	s.logger.Info("Bulk status update completed",
		"requested", len(ids),
		"succeeded", result.SuccessCount,
		"failed", result.FailureCount,
		"new_status", string(newStatus),
	)
	return result
}

// GetContribution fetches a contribution by id
func (s *ContributionService) GetContribution(ctx context.Context, id uuid.UUID) (*contribution.Contribution, error) {
	return s.contributionRepo.GetByID(ctx, id)
}

// ListTransactions returns the gateway call log for a contribution
func (s *ContributionService) ListTransactions(ctx context.Context, contributionID uuid.UUID) ([]*transaction.Transaction, error) {
	if _, err := s.contributionRepo.GetByID(ctx, contributionID); err != nil {
		return nil, err
	}
	return s.transactionRepo.ListByContribution(ctx, contributionID)
}

// ListAuditTrail returns the status transition history for a contribution
func (s *ContributionService) ListAuditTrail(ctx context.Context, contributionID uuid.UUID) ([]*audit.Entry, error) {
	if _, err := s.contributionRepo.GetByID(ctx, contributionID); err != nil {
		return nil, err
	}
	return s.auditRepo.ListByContribution(ctx, contributionID)
}

// notify fires the notification matching the contribution's new status.
// Dispatch is fire-and-forget; the dispatcher logs its own failures.
func (s *ContributionService) notify(ctx context.Context, c *contribution.Contribution, reason string) {
	switch c.PaymentStatus {
	case contribution.StatusPaid:
		s.notifier.SendPaymentSuccess(ctx, c)
	case contribution.StatusFailed:
		s.notifier.SendPaymentFailure(ctx, c)
	case contribution.StatusRefunded:
		s.notifier.SendRefundNotice(ctx, c, reason)
	}
}

// publishActivity emits a best-effort activity event. Failures are logged by
// the producer and never propagated into the payment pipeline.
func (s *ContributionService) publishActivity(ctx context.Context, c *contribution.Contribution, previous, next contribution.Status, reason string, adminUserID *uuid.UUID) {
	event := producers.ActivityEvent{
		ContributionID: c.ID.String(),
		ProjectID:      c.ProjectID.String(),
		PreviousStatus: string(previous),
		NewStatus:      string(next),
		Reason:         reason,
		OccurredAt:     time.Now(),
	}
	if adminUserID != nil {
		event.AdminUserID = adminUserID.String()
	}

	if err := s.activity.Publish(ctx, c.ID.String(), event); err != nil {
		s.logger.Warn("Failed to publish activity event", "contribution_id", c.ID.String(), "error", err)
	}
}
