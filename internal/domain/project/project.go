// Package project exposes the slice of the project entity the payment
// pipeline owns: the running total of paid contributions. Project CRUD lives
// elsewhere; this package only reads projects and adjusts current_amount.
package project

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status defines the lifecycle state of a project
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusActive Status = "ACTIVE"
	StatusClosed Status = "CLOSED"
)

// Project represents a crowdfunding project's ledger view
type Project struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Status        Status          `json:"status"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AcceptingContributions reports whether new pledges may be created
func (p *Project) AcceptingContributions() bool {
	return p.Status == StatusActive
}

// ErrProjectNotFound indicates a missing project
type ErrProjectNotFound struct {
	ProjectID uuid.UUID
}

func (e ErrProjectNotFound) Error() string {
	return "project not found: " + e.ProjectID.String()
}

// Is implements the errors.Is interface for ErrProjectNotFound
func (e ErrProjectNotFound) Is(target error) bool {
	t, ok := target.(ErrProjectNotFound)
	if !ok {
		return false
	}
	if t.ProjectID == uuid.Nil {
		return true
	}
	return e.ProjectID == t.ProjectID
}

// LedgerViolationError indicates a delta that would drive current_amount below
// zero. This is a caller bug (double refund, inconsistent history), not a
// retryable condition; nothing is mutated when it is returned.
type LedgerViolationError struct {
	ProjectID uuid.UUID
	Delta     decimal.Decimal
}

func (e LedgerViolationError) Error() string {
	return fmt.Sprintf("ledger violation: delta %s would drive project %s below zero", e.Delta.String(), e.ProjectID.String())
}

// Is implements the errors.Is interface for LedgerViolationError
func (e LedgerViolationError) Is(target error) bool {
	t, ok := target.(LedgerViolationError)
	if !ok {
		return false
	}
	if t.ProjectID == uuid.Nil {
		return true
	}
	return e.ProjectID == t.ProjectID
}
