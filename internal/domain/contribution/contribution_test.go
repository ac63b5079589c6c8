package contribution

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"WholeAmount", "100", false},
		{"TwoDecimals", "100.50", false},
		{"OneDecimal", "0.5", false},
		{"SmallestValid", "0.01", false},
		{"Zero", "0", true},
		{"Negative", "-10.00", true},
		{"ThreeDecimals", "10.001", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)

			err = ValidateAmount(amount)
			if tt.wantErr {
				assert.Error(t, err)
				var validationErr ValidationError
				assert.ErrorAs(t, err, &validationErr)
				assert.Equal(t, "amount", validationErr.Field)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_RejectsInvalidAmount(t *testing.T) {
	_, err := New(uuid.New(), uuid.New(), decimal.RequireFromString("-5"), "")
	assert.Error(t, err)

	c, err := New(uuid.New(), uuid.New(), decimal.RequireFromString("25.50"), "first pledge")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, c.PaymentStatus)
	assert.Equal(t, "first pledge", c.Notes)
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Nil(t, c.PaidAt)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusRefunded, false},
		{StatusFailed, StatusPaid, true},
		{StatusFailed, StatusRefunded, false},
		{StatusFailed, StatusPending, false},
		{StatusPaid, StatusRefunded, true},
		{StatusPaid, StatusFailed, true},
		{StatusPaid, StatusPending, true},
		{StatusRefunded, StatusPaid, false},
		{StatusRefunded, StatusPending, false},
		{StatusRefunded, StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestLedgerDelta(t *testing.T) {
	amount := decimal.RequireFromString("100.00")

	tests := []struct {
		from Status
		to   Status
		want string
	}{
		{StatusPending, StatusPaid, "100"},
		{StatusFailed, StatusPaid, "100"},
		{StatusPaid, StatusRefunded, "-100"},
		{StatusPaid, StatusFailed, "-100"},
		{StatusPaid, StatusPending, "-100"},
		{StatusPending, StatusFailed, "0"},
		{StatusFailed, StatusPending, "0"},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			delta := LedgerDelta(tt.from, tt.to, amount)
			assert.True(t, delta.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", delta.String(), tt.want)
		})
	}
}

func TestApplyStatus_PaidAtInvariant(t *testing.T) {
	c, err := New(uuid.New(), uuid.New(), decimal.RequireFromString("50.00"), "")
	require.NoError(t, err)

	now := time.Now()
	c.ApplyStatus(StatusPaid, "", now)
	require.NotNil(t, c.PaidAt)
	assert.Equal(t, now, *c.PaidAt)
	assert.Equal(t, StatusPaid, c.PaymentStatus)

	// Rolling back to FAILED clears paid_at
	c.ApplyStatus(StatusFailed, "reversed by admin", now.Add(time.Minute))
	assert.Nil(t, c.PaidAt)
	assert.Equal(t, "reversed by admin", c.FailureReason)

	// Re-entering PAID sets it again and clears the failure reason
	later := now.Add(2 * time.Minute)
	c.ApplyStatus(StatusPaid, "", later)
	require.NotNil(t, c.PaidAt)
	assert.Equal(t, later, *c.PaidAt)
	assert.Empty(t, c.FailureReason)
}

func TestApplyStatus_PaidAtSurvivesRefund(t *testing.T) {
	c, err := New(uuid.New(), uuid.New(), decimal.RequireFromString("50.00"), "")
	require.NoError(t, err)

	paidAt := time.Now()
	c.ApplyStatus(StatusPaid, "", paidAt)
	require.NotNil(t, c.PaidAt)

	// A refund records that the money once arrived; paid_at stays
	c.ApplyStatus(StatusRefunded, "", paidAt.Add(time.Hour))
	assert.Equal(t, StatusRefunded, c.PaymentStatus)
	require.NotNil(t, c.PaidAt)
	assert.Equal(t, paidAt, *c.PaidAt)
}

func TestApplyStatus_PaidAtClearedOnRollback(t *testing.T) {
	for _, to := range []Status{StatusPending, StatusFailed} {
		t.Run("PAID_to_"+string(to), func(t *testing.T) {
			c, err := New(uuid.New(), uuid.New(), decimal.RequireFromString("75.00"), "")
			require.NoError(t, err)

			now := time.Now()
			c.ApplyStatus(StatusPaid, "", now)
			require.NotNil(t, c.PaidAt)

			c.ApplyStatus(to, "", now.Add(time.Minute))
			assert.Equal(t, to, c.PaymentStatus)
			assert.Nil(t, c.PaidAt)
		})
	}
}

func TestConflictError_Message(t *testing.T) {
	plain := ConflictError{From: StatusPending, To: StatusRefunded}
	assert.Contains(t, plain.Error(), "PENDING")
	assert.Contains(t, plain.Error(), "REFUNDED")

	withReason := ConflictError{From: StatusPaid, To: StatusRefunded, Reason: "no confirmed payment transaction to reverse"}
	assert.Contains(t, withReason.Error(), "no confirmed payment transaction")
}

func TestErrContributionNotFound_Is(t *testing.T) {
	id := uuid.New()
	err := ErrContributionNotFound{ContributionID: id}

	assert.ErrorIs(t, err, ErrContributionNotFound{})
	assert.ErrorIs(t, err, ErrContributionNotFound{ContributionID: id})
	assert.NotErrorIs(t, err, ErrContributionNotFound{ContributionID: uuid.New()})
}
