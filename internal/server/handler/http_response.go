package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pamojafund/payment-ledger/internal/domain/contribution"
	"github.com/pamojafund/payment-ledger/internal/domain/project"
	"github.com/pamojafund/payment-ledger/internal/server/middleware"
	"github.com/pamojafund/payment-ledger/internal/service"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	response := &Response{Data: data}
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	response := &Response{Error: &ErrorInfo{Code: code, Message: message}}
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondAccepted sends a 202 Accepted response with data
func RespondAccepted(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusAccepted, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondConflict sends a 409 Conflict response with an error
func RespondConflict(c *gin.Context, message string) {
	RespondWithError(c, http.StatusConflict, "CONFLICT", message)
}

// RespondInternalError sends a 500 Internal Server Error response with an error
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

// RespondServiceError maps orchestrator errors to HTTP responses:
// validation → 400, not found → 404, transition conflict → 409, gateway
// rejection → 422 with the failed contribution, gateway unreachable → 502,
// ledger violation and anything unexpected → 500.
func RespondServiceError(c *gin.Context, err error) {
	var validationErr contribution.ValidationError
	if errors.As(err, &validationErr) {
		RespondBadRequest(c, validationErr.Error())
		return
	}

	if errors.Is(err, contribution.ErrContributionNotFound{}) || errors.Is(err, project.ErrProjectNotFound{}) {
		RespondNotFound(c, err.Error())
		return
	}

	var conflictErr contribution.ConflictError
	if errors.As(err, &conflictErr) {
		RespondConflict(c, conflictErr.Error())
		return
	}

	var rejectedErr service.GatewayRejectedError
	if errors.As(err, &rejectedErr) {
		response := &Response{
			Data:          rejectedErr.Contribution,
			Error:         &ErrorInfo{Code: "GATEWAY_REJECTED", Message: rejectedErr.Message},
			CorrelationID: middleware.GetCorrelationID(c),
		}
		c.JSON(http.StatusUnprocessableEntity, response)
		return
	}

	if errors.Is(err, service.ErrGatewayUnavailable) {
		RespondWithError(c, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", err.Error())
		return
	}

	if errors.Is(err, project.LedgerViolationError{}) {
		RespondWithError(c, http.StatusInternalServerError, "LEDGER_VIOLATION", "Ledger invariant violation")
		return
	}

	RespondInternalError(c)
}
