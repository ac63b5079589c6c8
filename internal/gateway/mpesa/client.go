// Package mpesa implements the mobile-money gateway protocol: OAuth token
// management, payment initiation (STK push), transaction reversal and status
// queries. The client holds no business state; every method returns a uniform
// result shape so the orchestrator never handles transport errors directly.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pamojafund/payment-ledger/internal/config"
	"github.com/shopspring/decimal"
)

const (
	authPath        = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath     = "/mpesa/stkpush/v1/processrequest"
	stkQueryPath    = "/mpesa/stkpushquery/v1/query"
	reversalPath    = "/mpesa/reversal/v1/request"
	timestampLayout = "20060102150405"

	// Gateway codes for a query answered before the payment resolved
	resultCodeProcessing    = 1037
	errorCodeBeingProcessed = "500.001.1001"

	maxRemarksLength = 100
)

// ErrSandboxCredentialInProduction is returned by NewClient when only the
// sandbox placeholder reversal credential is configured in production.
// Reversals would silently fail against the live gateway, so startup refuses
// instead of warn-and-proceed.
var ErrSandboxCredentialInProduction = errors.New("sandbox security credential configured in production")

// Client talks to the mobile-money gateway
type Client struct {
	cfg        config.GatewayConfig
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a gateway client. env is the application environment;
// production deployments must supply a properly encrypted security credential.
func NewClient(logger *slog.Logger, cfg config.GatewayConfig, env string) (*Client, error) {
	if env == "production" && cfg.SandboxCredential {
		return nil, ErrSandboxCredentialInProduction
	}
	if cfg.SandboxCredential {
		logger.Warn("Gateway client running with sandbox security credential; reversals will only work against the sandbox")
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		now:        time.Now,
	}, nil
}

// InitiatePayment starts an STK-push payment for the given amount and phone
// number. reference is the merchant-side account reference shown to the
// payer. On success the returned CheckoutRequestID correlates the later
// asynchronous callback.
func (c *Client) InitiatePayment(ctx context.Context, amount decimal.Decimal, phoneNumber, reference string) Result {
	phone, err := NormalizePhone(phoneNumber, c.cfg.CountryCode)
	if err != nil {
		return Result{ErrorCode: "INVALID_PHONE", ErrorMessage: err.Error()}
	}

	// The gateway only accepts whole units. Fractional amounts are rounded
	// per the gateway contract; the rounding is logged because it desyncs
	// the ledger's 2-decimal amount from what the gateway actually moves.
	rounded := amount.Round(0)
	if !rounded.Equal(amount) {
		c.logger.Warn("Rounding fractional amount for gateway",
			"amount", amount.String(),
			"sent", rounded.String(),
			"reference", reference,
		)
	}

	timestamp := c.now().Format(timestampLayout)
	payload := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            rounded.String(),
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackBaseURL + "/callbacks/payment",
		AccountReference:  reference,
		TransactionDesc:   "Contribution " + reference,
	}

	var resp stkPushResponse
	if errResult := c.post(ctx, stkPushPath, payload, &resp); errResult != nil {
		return *errResult
	}

	if resp.ResponseCode != "0" {
		return Result{
			ErrorCode:    resp.ResponseCode,
			ErrorMessage: resp.ResponseDescription,
		}
	}

	return Result{
		Success:             true,
		CheckoutRequestID:   resp.CheckoutRequestID,
		MerchantRequestID:   resp.MerchantRequestID,
		ResponseDescription: resp.ResponseDescription,
	}
}

// InitiateReversal requests a refund of a previously confirmed payment. The
// returned OriginatorConversationID correlates the later reversal callback;
// the reversal itself completes asynchronously.
func (c *Client) InitiateReversal(ctx context.Context, originalTransactionID string, amount decimal.Decimal, reason string) Result {
	rounded := amount.Round(0)
	if !rounded.Equal(amount) {
		c.logger.Warn("Rounding fractional amount for reversal",
			"amount", amount.String(),
			"sent", rounded.String(),
			"transaction_id", originalTransactionID,
		)
	}

	remarks := reason
	if len(remarks) > maxRemarksLength {
		remarks = remarks[:maxRemarksLength]
	}

	payload := reversalRequest{
		Initiator:              c.cfg.InitiatorName,
		SecurityCredential:     c.cfg.SecurityCredential,
		CommandID:              "TransactionReversal",
		TransactionID:          originalTransactionID,
		Amount:                 rounded.String(),
		ReceiverParty:          c.cfg.ShortCode,
		ReceiverIdentifierType: "11",
		ResultURL:              c.cfg.CallbackBaseURL + "/callbacks/reversal",
		QueueTimeOutURL:        c.cfg.CallbackBaseURL + "/callbacks/reversal/timeout",
		Remarks:                remarks,
	}

	var resp reversalResponse
	if errResult := c.post(ctx, reversalPath, payload, &resp); errResult != nil {
		return *errResult
	}

	if resp.ResponseCode != "0" {
		return Result{
			ErrorCode:    resp.ResponseCode,
			ErrorMessage: resp.ResponseDescription,
		}
	}

	return Result{
		Success:                  true,
		OriginatorConversationID: resp.OriginatorConversationID,
		ConversationID:           resp.ConversationID,
		ResponseDescription:      resp.ResponseDescription,
	}
}

// QueryStatus asks the gateway for the current state of a checkout. A
// "still being processed" answer maps to StatusOutcomeProcessing; callers
// needing a terminal answer should use PollStatus.
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) StatusResult {
	timestamp := c.now().Format(timestampLayout)
	payload := statusQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	var resp statusQueryResponse
	if errResult := c.post(ctx, stkQueryPath, payload, &resp); errResult != nil {
		if errResult.ErrorCode == errorCodeBeingProcessed {
			return StatusResult{Outcome: StatusOutcomeProcessing, ResultDesc: errResult.ErrorMessage}
		}
		return StatusResult{Outcome: StatusOutcomeUnknown, ResultDesc: errResult.ErrorMessage}
	}

	resultCode, err := strconv.Atoi(resp.ResultCode)
	if err != nil {
		c.logger.Error("Unparseable result code from status query", "result_code", resp.ResultCode)
		return StatusResult{Outcome: StatusOutcomeUnknown, ResultDesc: resp.ResultDesc}
	}

	switch resultCode {
	case 0:
		return StatusResult{Outcome: StatusOutcomePaid, ResultCode: resultCode, ResultDesc: resp.ResultDesc}
	case resultCodeProcessing:
		return StatusResult{Outcome: StatusOutcomeProcessing, ResultCode: resultCode, ResultDesc: resp.ResultDesc}
	default:
		return StatusResult{Outcome: StatusOutcomeFailed, ResultCode: resultCode, ResultDesc: resp.ResultDesc}
	}
}

// PollStatus queries with a fixed attempt count and fixed delay until a
// terminal outcome. Exhausting the attempts returns StatusOutcomeUnknown;
// the caller must not reinterpret that as success or failure.
func (c *Client) PollStatus(ctx context.Context, checkoutRequestID string) StatusResult {
	var last StatusResult
	for attempt := 1; attempt <= c.cfg.StatusPollAttempts; attempt++ {
		last = c.QueryStatus(ctx, checkoutRequestID)
		if last.Outcome == StatusOutcomePaid || last.Outcome == StatusOutcomeFailed {
			return last
		}

		c.logger.Debug("Status not terminal, polling again",
			"checkout_request_id", checkoutRequestID,
			"attempt", attempt,
			"outcome", string(last.Outcome),
		)

		if attempt < c.cfg.StatusPollAttempts {
			select {
			case <-ctx.Done():
				return StatusResult{Outcome: StatusOutcomeUnknown, ResultDesc: ctx.Err().Error()}
			case <-time.After(c.cfg.StatusPollDelay):
			}
		}
	}

	return StatusResult{Outcome: StatusOutcomeUnknown, ResultDesc: last.ResultDesc}
}

// password derives the time-based request password from the shared secret
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.PassKey + timestamp))
}

// accessToken returns a cached bearer token, refreshing it when it is within
// the safety margin of expiry
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry.Add(-c.cfg.TokenSafetyMargin)) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+authPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build auth request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read auth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth request rejected: status %d", resp.StatusCode)
	}

	var auth authResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}

	expiresIn, err := strconv.Atoi(auth.ExpiresIn)
	if err != nil || expiresIn <= 0 {
		expiresIn = 3600
	}

	c.token = auth.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(expiresIn) * time.Second)
	c.logger.Debug("Refreshed gateway access token", "expires_in", expiresIn)

	return c.token, nil
}

// post sends an authenticated JSON request and decodes the response into out.
// Any transport or unexpected-payload error is converted to the uniform
// failure shape; gateway-reported errors keep the gateway's code.
func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) *Result {
	token, err := c.accessToken(ctx)
	if err != nil {
		c.logger.Error("Failed to obtain gateway access token", "error", err)
		return &Result{ErrorCode: ErrCodeUnreachable, ErrorMessage: err.Error()}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &Result{ErrorCode: ErrCodeUnreachable, ErrorMessage: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return &Result{ErrorCode: ErrCodeUnreachable, ErrorMessage: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gateway request failed", "path", path, "error", err)
		return &Result{ErrorCode: ErrCodeUnreachable, ErrorMessage: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Result{ErrorCode: ErrCodeUnreachable, ErrorMessage: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		var gwErr gatewayError
		if json.Unmarshal(respBody, &gwErr) == nil && gwErr.ErrorCode != "" {
			c.logger.Warn("Gateway rejected request",
				"path", path,
				"error_code", gwErr.ErrorCode,
				"error_message", gwErr.ErrorMessage,
			)
			return &Result{ErrorCode: gwErr.ErrorCode, ErrorMessage: gwErr.ErrorMessage}
		}
		c.logger.Error("Unexpected gateway response", "path", path, "status", resp.StatusCode)
		return &Result{ErrorCode: ErrCodeUnreachable, ErrorMessage: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		c.logger.Error("Failed to decode gateway response", "path", path, "error", err)
		return &Result{ErrorCode: ErrCodeUnreachable, ErrorMessage: err.Error()}
	}

	return nil
}
