package service

import (
	"errors"
	"fmt"

	"github.com/pamojafund/payment-ledger/internal/domain/contribution"
)

// ErrGatewayUnavailable indicates the gateway could not be reached at the
// transport level. The contribution is left unchanged so the payment can be
// retried once the gateway recovers.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// GatewayRejectedError indicates the gateway synchronously rejected an
// initiation request. For payments the contribution has already been
// transitioned to FAILED and is carried in the error so callers can show the
// terminal state.
type GatewayRejectedError struct {
	Code         string
	Message      string
	Contribution *contribution.Contribution
}

func (e GatewayRejectedError) Error() string {
	return fmt.Sprintf("gateway rejected request: %s (%s)", e.Message, e.Code)
}

// Is implements the errors.Is interface for GatewayRejectedError
func (e GatewayRejectedError) Is(target error) bool {
	_, ok := target.(GatewayRejectedError)
	return ok
}
