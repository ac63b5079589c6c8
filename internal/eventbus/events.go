package eventbus

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentResultEvent is the normalized form of a gateway payment callback.
// CheckoutRequestID correlates the event back to the contribution that
// initiated the payment.
type PaymentResultEvent struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            decimal.Decimal
	ReceiptNumber     string
	PhoneNumber       string
	TransactionTime   time.Time
	RawPayload        string
}

// Succeeded reports whether the gateway marked the payment successful
func (e PaymentResultEvent) Succeeded() bool {
	return e.ResultCode == 0
}

// ReversalResultEvent is the normalized form of a gateway reversal callback.
// OriginatorConversationID correlates back to the refund transaction that
// initiated the reversal.
type ReversalResultEvent struct {
	OriginatorConversationID string
	ConversationID           string
	ResultCode               int
	ResultDesc               string
	TransactionID            string
	RawPayload               string
}

// Succeeded reports whether the gateway marked the reversal successful
func (e ReversalResultEvent) Succeeded() bool {
	return e.ResultCode == 0
}

// ReversalTimeoutEvent signals that the gateway timed out a reversal. The
// outcome is ambiguous and requires manual reconciliation; no automatic retry.
type ReversalTimeoutEvent struct {
	OriginatorConversationID string
	ConversationID           string
	RawPayload               string
}
