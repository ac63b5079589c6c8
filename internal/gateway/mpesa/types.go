package mpesa

// Error codes the client synthesizes for the uniform result shape. Gateway
// business rejections keep the gateway's own codes; transport and payload
// problems collapse to ErrCodeUnreachable so callers never branch on
// transport exceptions.
const (
	ErrCodeUnreachable = "GATEWAY_UNREACHABLE"
)

// Result is the uniform outcome shape for payment and reversal initiation.
// Exactly one of Success or ErrorCode/ErrorMessage is meaningful.
type Result struct {
	Success                  bool
	CheckoutRequestID        string // Correlates the later payment callback
	MerchantRequestID        string
	OriginatorConversationID string // Correlates the later reversal callback
	ConversationID           string
	ResponseDescription      string
	ErrorCode                string
	ErrorMessage             string
}

// Unreachable reports whether the failure was transport-level rather than a
// gateway business rejection
func (r Result) Unreachable() bool {
	return !r.Success && r.ErrorCode == ErrCodeUnreachable
}

// StatusOutcome classifies a status query result
type StatusOutcome string

const (
	StatusOutcomePaid       StatusOutcome = "PAID"
	StatusOutcomeFailed     StatusOutcome = "FAILED"
	StatusOutcomeProcessing StatusOutcome = "PROCESSING"
	// StatusOutcomeUnknown means polling attempts were exhausted without a
	// terminal answer. Never reinterpreted as success or failure.
	StatusOutcomeUnknown StatusOutcome = "UNKNOWN"
)

// StatusResult is the outcome of a status query or bounded poll
type StatusResult struct {
	Outcome    StatusOutcome
	ResultCode int
	ResultDesc string
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"` // Seconds, sent as a string
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type reversalRequest struct {
	Initiator              string `json:"Initiator"`
	SecurityCredential     string `json:"SecurityCredential"`
	CommandID              string `json:"CommandID"`
	TransactionID          string `json:"TransactionID"`
	Amount                 string `json:"Amount"`
	ReceiverParty          string `json:"ReceiverParty"`
	ReceiverIdentifierType string `json:"RecieverIdentifierType"` // The gateway's own field name is misspelled
	ResultURL              string `json:"ResultURL"`
	QueueTimeOutURL        string `json:"QueueTimeOutURL"`
	Remarks                string `json:"Remarks"`
	Occasion               string `json:"Occasion,omitempty"`
}

type reversalResponse struct {
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ConversationID           string `json:"ConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

type statusQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type statusQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

type gatewayError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}
