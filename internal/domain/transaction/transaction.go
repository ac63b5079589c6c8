// Package transaction defines the append-style log of gateway call attempts.
// Every payment initiation and reversal gets exactly one row, created PENDING
// before the gateway responds and resolved to SUCCESS or FAILED afterwards.
package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type defines the kind of gateway call a transaction records
type Type string

const (
	TypePayment Type = "PAYMENT"
	TypeRefund  Type = "REFUND"
)

// Status defines the resolution state of a gateway call attempt
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Transaction records one gateway call attempt tied to a contribution
type Transaction struct {
	ID                   uuid.UUID       `json:"id"`
	ContributionID       uuid.UUID       `json:"contribution_id"`
	TransactionType      Type            `json:"transaction_type"`
	Amount               decimal.Decimal `json:"amount"`
	Status               Status          `json:"status"`
	GatewayTransactionID string          `json:"gateway_transaction_id,omitempty"`
	GatewayResponse      string          `json:"gateway_response,omitempty"` // Raw payload, kept for audit
	ErrorCode            string          `json:"error_code,omitempty"`
	ErrorMessage         string          `json:"error_message,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

// New creates a pending transaction for a gateway call that is about to be made
func New(contributionID uuid.UUID, txnType Type, amount decimal.Decimal) *Transaction {
	return &Transaction{
		ID:              uuid.New(),
		ContributionID:  contributionID,
		TransactionType: txnType,
		Amount:          amount,
		Status:          StatusPending,
		CreatedAt:       time.Now(),
	}
}

// MarkSuccess resolves the attempt as successful with the gateway's receipt id
func (t *Transaction) MarkSuccess(gatewayTransactionID, rawResponse string) {
	t.Status = StatusSuccess
	if gatewayTransactionID != "" {
		t.GatewayTransactionID = gatewayTransactionID
	}
	if rawResponse != "" {
		t.GatewayResponse = rawResponse
	}
}

// MarkFailed resolves the attempt as failed with the gateway's error details
func (t *Transaction) MarkFailed(errorCode, errorMessage, rawResponse string) {
	t.Status = StatusFailed
	t.ErrorCode = errorCode
	t.ErrorMessage = errorMessage
	if rawResponse != "" {
		t.GatewayResponse = rawResponse
	}
}

// ErrTransactionNotFound indicates a missing transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
