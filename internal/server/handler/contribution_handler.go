package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pamojafund/payment-ledger/internal/domain/contribution"
	"github.com/pamojafund/payment-ledger/internal/service"
)

// ContributionHandler handles HTTP requests for contribution operations
type ContributionHandler struct {
	service *service.ContributionService
	logger  *slog.Logger
}

// NewContributionHandler creates a new contribution handler
func NewContributionHandler(logger *slog.Logger, svc *service.ContributionService) *ContributionHandler {
	return &ContributionHandler{
		service: svc,
		logger:  logger,
	}
}

// Create creates a new PENDING contribution
func (h *ContributionHandler) Create(c *gin.Context) {
	var req CreateContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, _ := uuid.Parse(req.UserID)
	projectID, _ := uuid.Parse(req.ProjectID)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount")
		return
	}

	created, err := h.service.CreateContribution(c.Request.Context(), userID, projectID, amount, req.Notes)
	if err != nil {
		h.logger.Error("Failed to create contribution", "error", err)
		RespondServiceError(c, err)
		return
	}

	RespondCreated(c, mapContributionToResponse(created))
}

// AdminCreate creates a contribution that may start in a non-PENDING status
func (h *ContributionHandler) AdminCreate(c *gin.Context) {
	var req AdminCreateContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, _ := uuid.Parse(req.UserID)
	projectID, _ := uuid.Parse(req.ProjectID)
	adminUserID, _ := uuid.Parse(req.AdminUserID)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount")
		return
	}

	created, err := h.service.AdminCreateContribution(c.Request.Context(), service.AdminCreateParams{
		UserID:           userID,
		ProjectID:        projectID,
		Amount:           amount,
		Status:           contribution.Status(req.Status),
		PaymentReference: req.PaymentReference,
		Notes:            req.Notes,
		AdminUserID:      adminUserID,
		SendEmail:        req.SendEmail,
	})
	if err != nil {
		h.logger.Error("Failed to create contribution as admin", "error", err)
		RespondServiceError(c, err)
		return
	}

	RespondCreated(c, mapContributionToResponse(created))
}

// ProcessPayment initiates a gateway payment for a pending contribution.
// Gateway acceptance returns 202: the terminal state arrives via callback.
func (h *ContributionHandler) ProcessPayment(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.service.ProcessPayment(c.Request.Context(), id, req.PhoneNumber)
	if err != nil {
		h.logger.Error("Failed to process payment", "contribution_id", id.String(), "error", err)
		RespondServiceError(c, err)
		return
	}

	RespondAccepted(c, mapContributionToResponse(updated))
}

// ProcessRefund initiates a gateway reversal for a paid contribution
func (h *ContributionHandler) ProcessRefund(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.service.ProcessRefund(c.Request.Context(), id, req.Reason, parseOptionalUUID(req.AdminUserID))
	if err != nil {
		h.logger.Error("Failed to process refund", "contribution_id", id.String(), "error", err)
		RespondServiceError(c, err)
		return
	}

	RespondAccepted(c, mapContributionToResponse(updated))
}

// Reconcile polls the gateway for a pending payment's outcome
func (h *ContributionHandler) Reconcile(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	updated, err := h.service.ReconcilePayment(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to reconcile payment", "contribution_id", id.String(), "error", err)
		RespondServiceError(c, err)
		return
	}

	RespondOK(c, mapContributionToResponse(updated))
}

// UpdateStatus applies a direct status transition
func (h *ContributionHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.service.UpdateContributionStatus(
		c.Request.Context(),
		id,
		contribution.Status(req.Status),
		req.Reason,
		parseOptionalUUID(req.AdminUserID),
	)
	if err != nil {
		h.logger.Error("Failed to update status", "contribution_id", id.String(), "error", err)
		RespondServiceError(c, err)
		return
	}

	RespondOK(c, mapContributionToResponse(updated))
}

// BulkUpdateStatus applies one transition to many contributions with a
// partial-success result
func (h *ContributionHandler) BulkUpdateStatus(c *gin.Context) {
	var req BulkUpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ids := make([]uuid.UUID, 0, len(req.ContributionIDs))
	for _, raw := range req.ContributionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondBadRequest(c, "Invalid contribution ID: "+raw)
			return
		}
		ids = append(ids, id)
	}

	result := h.service.BulkUpdateContributionStatus(
		c.Request.Context(),
		ids,
		contribution.Status(req.Status),
		req.Reason,
		parseOptionalUUID(req.AdminUserID),
	)

	RespondOK(c, result)
}

// GetByID retrieves a contribution, returns 404 if not found
func (h *ContributionHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	found, err := h.service.GetContribution(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	RespondOK(c, mapContributionToResponse(found))
}

// ListTransactions retrieves the gateway call log for a contribution
func (h *ContributionHandler) ListTransactions(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	transactions, err := h.service.ListTransactions(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(transactions))
	for _, t := range transactions {
		responses = append(responses, mapTransactionToResponse(t))
	}
	RespondOK(c, responses)
}

// ListAudit retrieves the status transition history for a contribution
func (h *ContributionHandler) ListAudit(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	entries, err := h.service.ListAuditTrail(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	responses := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, mapAuditEntryToResponse(e))
	}
	RespondOK(c, responses)
}

func (h *ContributionHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid contribution ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid contribution ID")
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalUUID(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
