package service

import (
	"context"
	"fmt"

	"github.com/pamojafund/payment-ledger/internal/domain/contribution"
	"github.com/pamojafund/payment-ledger/internal/domain/transaction"
	"github.com/pamojafund/payment-ledger/internal/eventbus"
)

// RegisterEventHandlers subscribes the orchestrator's callback-driven
// transitions on the bus. Called once at process start, before the server
// begins accepting callbacks.
func (s *ContributionService) RegisterEventHandlers(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.TopicPaymentSucceeded, s.handlePaymentSucceeded)
	bus.Subscribe(eventbus.TopicPaymentFailed, s.handlePaymentFailed)
	bus.Subscribe(eventbus.TopicRefundSucceeded, s.handleReversalSucceeded)
	bus.Subscribe(eventbus.TopicRefundFailed, s.handleReversalFailed)
	bus.Subscribe(eventbus.TopicRefundTimedOut, s.handleReversalTimeout)
}

// handlePaymentSucceeded applies the PAID transition for a payment callback.
// An unknown checkout reference is logged and dropped: the callback may be a
// duplicate after manual reconciliation or belong to another instance.
func (s *ContributionService) handlePaymentSucceeded(ctx context.Context, event interface{}) error {
	e, ok := event.(eventbus.PaymentResultEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T for payment.succeeded", event)
	}

	c, err := s.contributionRepo.GetByPaymentReference(ctx, e.CheckoutRequestID)
	if err != nil {
		return err
	}
	if c == nil {
		s.logger.Warn("Dropping payment callback for unknown reference", "checkout_request_id", e.CheckoutRequestID)
		return nil
	}

	s.resolvePaymentTransaction(ctx, e.CheckoutRequestID, func(t *transaction.Transaction) {
		t.MarkSuccess(e.ReceiptNumber, e.RawPayload)
	})

	_, err = s.UpdateContributionStatus(ctx, c.ID, contribution.StatusPaid, e.ResultDesc, nil)
	return err
}

// handlePaymentFailed applies the FAILED transition with the gateway's
// failure description preserved as the failure reason
func (s *ContributionService) handlePaymentFailed(ctx context.Context, event interface{}) error {
	e, ok := event.(eventbus.PaymentResultEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T for payment.failed", event)
	}

	c, err := s.contributionRepo.GetByPaymentReference(ctx, e.CheckoutRequestID)
	if err != nil {
		return err
	}
	if c == nil {
		s.logger.Warn("Dropping payment callback for unknown reference", "checkout_request_id", e.CheckoutRequestID)
		return nil
	}

	s.resolvePaymentTransaction(ctx, e.CheckoutRequestID, func(t *transaction.Transaction) {
		t.MarkFailed(fmt.Sprintf("%d", e.ResultCode), e.ResultDesc, e.RawPayload)
	})

	_, err = s.UpdateContributionStatus(ctx, c.ID, contribution.StatusFailed, e.ResultDesc, nil)
	return err
}

// handleReversalSucceeded applies the REFUNDED transition for a reversal
// callback, correlated through the refund transaction's conversation id
func (s *ContributionService) handleReversalSucceeded(ctx context.Context, event interface{}) error {
	e, ok := event.(eventbus.ReversalResultEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T for refund.succeeded", event)
	}

	txn, err := s.transactionRepo.GetByGatewayTransactionID(ctx, e.OriginatorConversationID, transaction.TypeRefund)
	if err != nil {
		return err
	}
	if txn == nil {
		s.logger.Warn("Dropping reversal callback for unknown conversation id", "originator_conversation_id", e.OriginatorConversationID)
		return nil
	}

	txn.MarkSuccess(txn.GatewayTransactionID, e.RawPayload)
	if err := s.transactionRepo.Update(ctx, txn); err != nil {
		s.logger.Error("Failed to resolve refund transaction", "transaction_id", txn.ID.String(), "error", err)
	}

	_, err = s.UpdateContributionStatus(ctx, txn.ContributionID, contribution.StatusRefunded, e.ResultDesc, nil)
	return err
}

// handleReversalFailed records the failure on the refund transaction and
// leaves the contribution PAID; a failed reversal must not touch the ledger
func (s *ContributionService) handleReversalFailed(ctx context.Context, event interface{}) error {
	e, ok := event.(eventbus.ReversalResultEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T for refund.failed", event)
	}

	txn, err := s.transactionRepo.GetByGatewayTransactionID(ctx, e.OriginatorConversationID, transaction.TypeRefund)
	if err != nil {
		return err
	}
	if txn == nil {
		s.logger.Warn("Dropping reversal callback for unknown conversation id", "originator_conversation_id", e.OriginatorConversationID)
		return nil
	}

	txn.MarkFailed(fmt.Sprintf("%d", e.ResultCode), e.ResultDesc, e.RawPayload)
	if err := s.transactionRepo.Update(ctx, txn); err != nil {
		return fmt.Errorf("failed to resolve refund transaction: %w", err)
	}

	s.logger.Error("Reversal failed at gateway",
		"contribution_id", txn.ContributionID.String(),
		"result_code", e.ResultCode,
		"result_desc", e.ResultDesc,
	)
	return nil
}

// handleReversalTimeout marks the refund transaction for manual
// reconciliation. The outcome is ambiguous: the money may or may not have
// moved, so neither SUCCESS nor FAILED is applied and no automatic retry runs.
func (s *ContributionService) handleReversalTimeout(ctx context.Context, event interface{}) error {
	e, ok := event.(eventbus.ReversalTimeoutEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T for refund.timed_out", event)
	}

	txn, err := s.transactionRepo.GetByGatewayTransactionID(ctx, e.OriginatorConversationID, transaction.TypeRefund)
	if err != nil {
		return err
	}
	if txn == nil {
		s.logger.Warn("Dropping reversal timeout for unknown conversation id", "originator_conversation_id", e.OriginatorConversationID)
		return nil
	}

	txn.ErrorCode = "REVERSAL_TIMEOUT"
	txn.ErrorMessage = "gateway timed out the reversal; outcome unknown"
	if e.RawPayload != "" {
		txn.GatewayResponse = e.RawPayload
	}
	if err := s.transactionRepo.Update(ctx, txn); err != nil {
		return fmt.Errorf("failed to record reversal timeout: %w", err)
	}

	s.logger.Error("Reversal timed out, manual reconciliation required",
		"contribution_id", txn.ContributionID.String(),
		"originator_conversation_id", e.OriginatorConversationID,
	)
	return nil
}

// resolvePaymentTransaction mutates and saves the payment transaction that
// carries the checkout id. Resolution failures are logged, not propagated:
// the contribution transition matters more than the attempt log entry.
func (s *ContributionService) resolvePaymentTransaction(ctx context.Context, checkoutRequestID string, mutate func(*transaction.Transaction)) {
	txn, err := s.transactionRepo.GetByGatewayTransactionID(ctx, checkoutRequestID, transaction.TypePayment)
	if err != nil {
		s.logger.Error("Failed to load payment transaction", "checkout_request_id", checkoutRequestID, "error", err)
		return
	}
	if txn == nil {
		s.logger.Warn("No payment transaction recorded for checkout id", "checkout_request_id", checkoutRequestID)
		return
	}

	mutate(txn)
	if err := s.transactionRepo.Update(ctx, txn); err != nil {
		s.logger.Error("Failed to resolve payment transaction", "transaction_id", txn.ID.String(), "error", err)
	}
}
