package handler

import (
	"time"

	"github.com/pamojafund/payment-ledger/internal/domain/audit"
	"github.com/pamojafund/payment-ledger/internal/domain/contribution"
	"github.com/pamojafund/payment-ledger/internal/domain/transaction"
)

// CreateContributionRequest represents a user pledge request
type CreateContributionRequest struct {
	UserID    string `json:"user_id" binding:"required,uuid"`
	ProjectID string `json:"project_id" binding:"required,uuid"`
	Amount    string `json:"amount" binding:"required"`
	Notes     string `json:"notes,omitempty"`
}

// AdminCreateContributionRequest represents an admin-created contribution,
// which may start in a non-PENDING status
type AdminCreateContributionRequest struct {
	UserID           string `json:"user_id" binding:"required,uuid"`
	ProjectID        string `json:"project_id" binding:"required,uuid"`
	Amount           string `json:"amount" binding:"required"`
	Status           string `json:"status" binding:"required,oneof=PENDING PAID FAILED"`
	PaymentReference string `json:"payment_reference,omitempty"`
	Notes            string `json:"notes,omitempty"`
	AdminUserID      string `json:"admin_user_id" binding:"required,uuid"`
	SendEmail        bool   `json:"send_email"`
}

// ProcessPaymentRequest carries the payer details for payment initiation
type ProcessPaymentRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// RefundRequest represents a refund of a paid contribution
type RefundRequest struct {
	Reason      string `json:"reason" binding:"required"`
	AdminUserID string `json:"admin_user_id,omitempty" binding:"omitempty,uuid"`
}

// UpdateStatusRequest represents a direct status transition request
type UpdateStatusRequest struct {
	Status      string `json:"status" binding:"required,oneof=PENDING PAID FAILED REFUNDED"`
	Reason      string `json:"reason,omitempty"`
	AdminUserID string `json:"admin_user_id,omitempty" binding:"omitempty,uuid"`
}

// BulkUpdateStatusRequest applies one status transition to many contributions
type BulkUpdateStatusRequest struct {
	ContributionIDs []string `json:"contribution_ids" binding:"required,min=1,dive,uuid"`
	Status          string   `json:"status" binding:"required,oneof=PENDING PAID FAILED REFUNDED"`
	Reason          string   `json:"reason,omitempty"`
	AdminUserID     string   `json:"admin_user_id,omitempty" binding:"omitempty,uuid"`
}

// ContributionResponse represents a contribution in API responses
type ContributionResponse struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	ProjectID        string `json:"project_id"`
	Amount           string `json:"amount"`
	PaymentStatus    string `json:"payment_status"`
	Notes            string `json:"notes,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`
	FailureReason    string `json:"failure_reason,omitempty"`
	PaidAt           string `json:"paid_at,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// TransactionResponse represents a gateway call attempt in API responses
type TransactionResponse struct {
	ID                   string `json:"id"`
	ContributionID       string `json:"contribution_id"`
	TransactionType      string `json:"transaction_type"`
	Amount               string `json:"amount"`
	Status               string `json:"status"`
	GatewayTransactionID string `json:"gateway_transaction_id,omitempty"`
	ErrorCode            string `json:"error_code,omitempty"`
	ErrorMessage         string `json:"error_message,omitempty"`
	CreatedAt            string `json:"created_at"`
}

// AuditEntryResponse represents one status transition in API responses
type AuditEntryResponse struct {
	ID             string `json:"id"`
	ContributionID string `json:"contribution_id"`
	AdminUserID    string `json:"admin_user_id,omitempty"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	Reason         string `json:"reason,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func mapContributionToResponse(c *contribution.Contribution) ContributionResponse {
	response := ContributionResponse{
		ID:               c.ID.String(),
		UserID:           c.UserID.String(),
		ProjectID:        c.ProjectID.String(),
		Amount:           c.Amount.StringFixed(2),
		PaymentStatus:    string(c.PaymentStatus),
		Notes:            c.Notes,
		PaymentReference: c.PaymentReference,
		FailureReason:    c.FailureReason,
		CreatedAt:        c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        c.UpdatedAt.Format(time.RFC3339),
	}
	if c.PaidAt != nil {
		response.PaidAt = c.PaidAt.Format(time.RFC3339)
	}
	return response
}

func mapTransactionToResponse(t *transaction.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                   t.ID.String(),
		ContributionID:       t.ContributionID.String(),
		TransactionType:      string(t.TransactionType),
		Amount:               t.Amount.StringFixed(2),
		Status:               string(t.Status),
		GatewayTransactionID: t.GatewayTransactionID,
		ErrorCode:            t.ErrorCode,
		ErrorMessage:         t.ErrorMessage,
		CreatedAt:            t.CreatedAt.Format(time.RFC3339),
	}
}

func mapAuditEntryToResponse(e *audit.Entry) AuditEntryResponse {
	response := AuditEntryResponse{
		ID:             e.ID.String(),
		ContributionID: e.ContributionID.String(),
		PreviousStatus: string(e.PreviousStatus),
		NewStatus:      string(e.NewStatus),
		Reason:         e.Reason,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
	}
	if e.AdminUserID != nil {
		response.AdminUserID = e.AdminUserID.String()
	}
	return response
}
