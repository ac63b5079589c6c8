package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pamojafund/payment-ledger/internal/domain/contribution"
	"github.com/pamojafund/payment-ledger/internal/domain/project"
	"github.com/pamojafund/payment-ledger/internal/service"
)

func respondWith(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	RespondServiceError(c, err)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var response Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestRespondServiceError(t *testing.T) {
	t.Run("ValidationErrorIs400", func(t *testing.T) {
		w := respondWith(contribution.ValidationError{Field: "amount", Reason: "must be positive"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := decodeResponse(t, w)
		require.NotNil(t, response.Error)
		assert.Equal(t, "BAD_REQUEST", response.Error.Code)
	})

	t.Run("NotFoundIs404", func(t *testing.T) {
		w := respondWith(contribution.ErrContributionNotFound{ContributionID: uuid.New()})
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = respondWith(project.ErrProjectNotFound{ProjectID: uuid.New()})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("TransitionConflictIs409", func(t *testing.T) {
		w := respondWith(contribution.ConflictError{From: contribution.StatusPending, To: contribution.StatusRefunded})
		assert.Equal(t, http.StatusConflict, w.Code)
		response := decodeResponse(t, w)
		require.NotNil(t, response.Error)
		assert.Equal(t, "CONFLICT", response.Error.Code)
		assert.Contains(t, response.Error.Message, "PENDING")
	})

	t.Run("GatewayRejectionIs422WithContribution", func(t *testing.T) {
		c, _ := contribution.New(uuid.New(), uuid.New(), decimal.RequireFromString("100.00"), "")
		c.PaymentStatus = contribution.StatusFailed
		c.FailureReason = "Invalid Amount"

		w := respondWith(service.GatewayRejectedError{
			Code:         "400.002.02",
			Message:      "Invalid Amount",
			Contribution: c,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		response := decodeResponse(t, w)
		require.NotNil(t, response.Error)
		assert.Equal(t, "GATEWAY_REJECTED", response.Error.Code)
		assert.NotNil(t, response.Data, "the failed contribution rides along in the body")
	})

	t.Run("GatewayUnavailableIs502", func(t *testing.T) {
		w := respondWith(fmt.Errorf("%w: connection refused", service.ErrGatewayUnavailable))
		assert.Equal(t, http.StatusBadGateway, w.Code)
		response := decodeResponse(t, w)
		require.NotNil(t, response.Error)
		assert.Equal(t, "GATEWAY_UNAVAILABLE", response.Error.Code)
	})

	t.Run("LedgerViolationIs500", func(t *testing.T) {
		w := respondWith(project.LedgerViolationError{ProjectID: uuid.New()})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		response := decodeResponse(t, w)
		require.NotNil(t, response.Error)
		assert.Equal(t, "LEDGER_VIOLATION", response.Error.Code)
	})

	t.Run("UnknownErrorIs500", func(t *testing.T) {
		w := respondWith(errors.New("database on fire"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		response := decodeResponse(t, w)
		require.NotNil(t, response.Error)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", response.Error.Code)
		assert.NotContains(t, response.Error.Message, "database", "internal details are not leaked")
	})
}

func TestContributionHandler_RequestValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	// The service is never reached on these paths
	h := NewContributionHandler(testLogger(), nil)

	router := gin.New()
	router.POST("/contributions", h.Create)
	router.POST("/contributions/:id/payments", h.ProcessPayment)
	router.POST("/contributions/admin", h.AdminCreate)
	router.POST("/contributions/bulk-status", h.BulkUpdateStatus)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"MissingUserID", "/contributions", `{"project_id":"` + uuid.NewString() + `","amount":"100"}`},
		{"MalformedUserID", "/contributions", `{"user_id":"not-a-uuid","project_id":"` + uuid.NewString() + `","amount":"100"}`},
		{"InvalidContributionID", "/contributions/not-a-uuid/payments", `{"phone_number":"0712345678"}`},
		{"MissingPhoneNumber", "/contributions/" + uuid.NewString() + "/payments", `{}`},
		{"AdminCreateRefundedStatus", "/contributions/admin", `{"user_id":"` + uuid.NewString() + `","project_id":"` + uuid.NewString() + `","amount":"100","status":"REFUNDED","admin_user_id":"` + uuid.NewString() + `"}`},
		{"BulkEmptyIDList", "/contributions/bulk-status", `{"contribution_ids":[],"status":"PAID"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postCallback(router, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			response := decodeResponse(t, w)
			require.NotNil(t, response.Error)
			assert.Equal(t, "BAD_REQUEST", response.Error.Code)
		})
	}
}
