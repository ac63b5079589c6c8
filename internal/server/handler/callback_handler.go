package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/pamojafund/payment-ledger/internal/eventbus"
)

const (
	kindPaymentResult   = "payment_result"
	kindReversalResult  = "reversal_result"
	kindReversalTimeout = "reversal_timeout"

	callbackTimestampLayout = "20060102150405"
)

// Archiver stores raw callback payloads for manual reconciliation
type Archiver interface {
	Save(ctx context.Context, kind string, payload []byte) error
}

// CallbackHandler receives asynchronous gateway notifications. The contract
// with the gateway is accept-and-log: every endpoint responds with result
// code 0 even when parsing or downstream handling fails, because an error
// response would trigger gateway-side retries that duplicate processing.
type CallbackHandler struct {
	logger  *slog.Logger
	bus     eventbus.Publisher
	archive Archiver
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(logger *slog.Logger, bus eventbus.Publisher, archive Archiver) *CallbackHandler {
	return &CallbackHandler{
		logger:  logger,
		bus:     bus,
		archive: archive,
	}
}

// paymentCallbackBody is the gateway's payment result notification
type paymentCallbackBody struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []metadataItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// metadataItem is one key/value pair in the success metadata list. Values
// arrive as strings or numbers depending on the key.
type metadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// reversalCallbackBody covers both the reversal result and timeout
// notifications, which share the Result envelope
type reversalCallbackBody struct {
	Result struct {
		ResultType               int    `json:"ResultType"`
		ResultCode               int    `json:"ResultCode"`
		ResultDesc               string `json:"ResultDesc"`
		OriginatorConversationID string `json:"OriginatorConversationID"`
		ConversationID           string `json:"ConversationID"`
		TransactionID            string `json:"TransactionID"`
	} `json:"Result"`
}

// PaymentResult handles the asynchronous payment outcome notification
func (h *CallbackHandler) PaymentResult(c *gin.Context) {
	body := h.readAndArchive(c, kindPaymentResult)
	defer acknowledge(c)

	var payload paymentCallbackBody
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Error("Unparseable payment callback", "error", err)
		return
	}

	cb := payload.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		h.logger.Error("Payment callback missing checkout request id")
		return
	}

	event := eventbus.PaymentResultEvent{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		RawPayload:        string(body),
	}

	// Metadata only accompanies successful payments; items arrive in
	// arbitrary order
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			event.Amount = decimalFromValue(item.Value)
		case "MpesaReceiptNumber":
			event.ReceiptNumber = stringFromValue(item.Value)
		case "PhoneNumber":
			event.PhoneNumber = stringFromValue(item.Value)
		case "TransactionDate":
			if t, err := time.Parse(callbackTimestampLayout, stringFromValue(item.Value)); err == nil {
				event.TransactionTime = t
			}
		}
	}

	topic := eventbus.TopicPaymentSucceeded
	if !event.Succeeded() {
		topic = eventbus.TopicPaymentFailed
	}

	if err := h.bus.Publish(c.Request.Context(), topic, event); err != nil {
		h.logger.Error("Payment callback processing failed, logged for reconciliation",
			"checkout_request_id", cb.CheckoutRequestID,
			"result_code", cb.ResultCode,
			"error", err,
		)
	}
}

// ReversalResult handles the asynchronous reversal outcome notification
func (h *CallbackHandler) ReversalResult(c *gin.Context) {
	body := h.readAndArchive(c, kindReversalResult)
	defer acknowledge(c)

	var payload reversalCallbackBody
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Error("Unparseable reversal callback", "error", err)
		return
	}

	result := payload.Result
	if result.OriginatorConversationID == "" {
		h.logger.Error("Reversal callback missing originator conversation id")
		return
	}

	event := eventbus.ReversalResultEvent{
		OriginatorConversationID: result.OriginatorConversationID,
		ConversationID:           result.ConversationID,
		ResultCode:               result.ResultCode,
		ResultDesc:               result.ResultDesc,
		TransactionID:            result.TransactionID,
		RawPayload:               string(body),
	}

	topic := eventbus.TopicRefundSucceeded
	if !event.Succeeded() {
		topic = eventbus.TopicRefundFailed
	}

	if err := h.bus.Publish(c.Request.Context(), topic, event); err != nil {
		h.logger.Error("Reversal callback processing failed, logged for reconciliation",
			"originator_conversation_id", result.OriginatorConversationID,
			"result_code", result.ResultCode,
			"error", err,
		)
	}
}

// ReversalTimeout handles the gateway's reversal timeout notification
func (h *CallbackHandler) ReversalTimeout(c *gin.Context) {
	body := h.readAndArchive(c, kindReversalTimeout)
	defer acknowledge(c)

	var payload reversalCallbackBody
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Error("Unparseable reversal timeout callback", "error", err)
		return
	}

	event := eventbus.ReversalTimeoutEvent{
		OriginatorConversationID: payload.Result.OriginatorConversationID,
		ConversationID:           payload.Result.ConversationID,
		RawPayload:               string(body),
	}

	if err := h.bus.Publish(c.Request.Context(), eventbus.TopicRefundTimedOut, event); err != nil {
		h.logger.Error("Reversal timeout processing failed, logged for reconciliation",
			"originator_conversation_id", payload.Result.OriginatorConversationID,
			"error", err,
		)
	}
}

// readAndArchive reads the raw body and archives it best-effort. The archive
// write never blocks acknowledgement; its errors are already logged by the
// archive itself.
func (h *CallbackHandler) readAndArchive(c *gin.Context, kind string) []byte {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read callback body", "kind", kind, "error", err)
		return nil
	}

	if len(body) > 0 {
		_ = h.archive.Save(c.Request.Context(), kind, body)
	}
	return body
}

// acknowledge sends the gateway's expected acceptance response
func acknowledge(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

func stringFromValue(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return decimal.NewFromFloat(value).String()
	default:
		return fmt.Sprintf("%v", value)
	}
}

func decimalFromValue(v interface{}) decimal.Decimal {
	switch value := v.(type) {
	case float64:
		return decimal.NewFromFloat(value)
	case string:
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.Zero
}
