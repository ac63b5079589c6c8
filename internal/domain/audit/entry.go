// Package audit defines the immutable trail of contribution status changes.
// One entry is written per transition, inside the same database transaction
// as the contribution mutation it describes.
package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/pamojafund/payment-ledger/internal/domain/contribution"
)

// Entry is an append-only record of one contribution status transition
type Entry struct {
	ID             uuid.UUID           `json:"id"`
	ContributionID uuid.UUID           `json:"contribution_id"`
	AdminUserID    *uuid.UUID          `json:"admin_user_id,omitempty"` // Present for admin-driven changes
	PreviousStatus contribution.Status `json:"previous_status"`
	NewStatus      contribution.Status `json:"new_status"`
	Reason         string              `json:"reason,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// NewEntry creates an audit entry for a status transition
func NewEntry(contributionID uuid.UUID, adminUserID *uuid.UUID, previous, next contribution.Status, reason string) *Entry {
	return &Entry{
		ID:             uuid.New(),
		ContributionID: contributionID,
		AdminUserID:    adminUserID,
		PreviousStatus: previous,
		NewStatus:      next,
		Reason:         reason,
		CreatedAt:      time.Now(),
	}
}
