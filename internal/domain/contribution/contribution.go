// Package contribution defines the pledge entity at the center of the payment
// pipeline: its status state machine, the ledger delta attached to each
// transition and the validation rules for new pledges.
package contribution

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status defines the payment state of a contribution
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusPaid     Status = "PAID"
	StatusFailed   Status = "FAILED"
	StatusRefunded Status = "REFUNDED"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Contribution represents a user's pledge of money toward a project
type Contribution struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	ProjectID        uuid.UUID       `json:"project_id"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentStatus    Status          `json:"payment_status"`
	Notes            string          `json:"notes,omitempty"`
	PaymentReference string          `json:"payment_reference,omitempty"` // Gateway checkout id
	FailureReason    string          `json:"failure_reason,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// New creates a contribution in PENDING status after validating the amount
func New(userID, projectID uuid.UUID, amount decimal.Decimal, notes string) (*Contribution, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Contribution{
		ID:            uuid.New(),
		UserID:        userID,
		ProjectID:     projectID,
		Amount:        amount,
		PaymentStatus: StatusPending,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ValidateAmount enforces the amount invariant: positive, at most 2 decimal digits
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if amount.Exponent() < -2 {
		return ValidationError{Field: "amount", Reason: "must have at most 2 decimal places"}
	}
	return nil
}

// CanTransition reports whether a status change is allowed by the state machine:
// PENDING -> {PAID, FAILED}, FAILED -> PAID (retry),
// PAID -> {REFUNDED, FAILED, PENDING} (admin override), REFUNDED is terminal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusPaid || to == StatusFailed
	case StatusFailed:
		return to == StatusPaid
	case StatusPaid:
		return to == StatusRefunded || to == StatusFailed || to == StatusPending
	case StatusRefunded:
		return false
	}
	return false
}

// LedgerDelta returns the signed amount by which the owning project's running
// total changes for the given transition. Transitions into PAID add the
// contribution amount; transitions out of PAID subtract it; everything else
// leaves the ledger untouched.
func LedgerDelta(from, to Status, amount decimal.Decimal) decimal.Decimal {
	if from != StatusPaid && to == StatusPaid {
		return amount
	}
	if from == StatusPaid && to != StatusPaid {
		return amount.Neg()
	}
	return decimal.Zero
}

// ApplyStatus mutates the contribution for a validated transition, maintaining
// the paid_at invariant: set when entering PAID, cleared when rolled back to
// PENDING or FAILED. A refund keeps paid_at as the record of when the money
// originally arrived.
func (c *Contribution) ApplyStatus(to Status, failureReason string, at time.Time) {
	from := c.PaymentStatus
	c.PaymentStatus = to
	c.UpdatedAt = at

	switch {
	case to == StatusPaid:
		paidAt := at
		c.PaidAt = &paidAt
		c.FailureReason = ""
	case from == StatusPaid && (to == StatusPending || to == StatusFailed):
		c.PaidAt = nil
	}

	if to == StatusFailed && failureReason != "" {
		c.FailureReason = failureReason
	}
}

// ValidationError indicates a malformed field on a contribution request
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError indicates a status transition the state machine rejects.
// Reason is set when the transition pair itself is legal but a precondition
// failed, such as refunding a payment the gateway never confirmed.
type ConflictError struct {
	From   Status
	To     Status
	Reason string
}

func (e ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot transition from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("illegal status transition from %s to %s", e.From, e.To)
}

// ErrContributionNotFound indicates a missing contribution
type ErrContributionNotFound struct {
	ContributionID uuid.UUID
}

func (e ErrContributionNotFound) Error() string {
	return "contribution not found: " + e.ContributionID.String()
}

// Is implements the errors.Is interface for ErrContributionNotFound
func (e ErrContributionNotFound) Is(target error) bool {
	t, ok := target.(ErrContributionNotFound)
	if !ok {
		return false
	}
	if t.ContributionID == uuid.Nil {
		return true
	}
	return e.ContributionID == t.ContributionID
}
