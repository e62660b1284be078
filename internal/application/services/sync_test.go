package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/phonepe"
)

func statusFor(state string) func(ctx context.Context, merchantOrderID string) (*phonepe.StatusResponse, error) {
	return func(ctx context.Context, merchantOrderID string) (*phonepe.StatusResponse, error) {
		return &phonepe.StatusResponse{
			State:         state,
			OrderID:       "OMO-" + merchantOrderID,
			TransactionID: "T" + merchantOrderID,
			Raw:           []byte(`{"state":"` + state + `"}`),
		}, nil
	}
}

func TestAutoCheck_CompletedSettlesPayment(t *testing.T) {
	f := newFixture()
	result := initiatedPayment(t, f)
	f.psp.OrderStatusFn = statusFor("COMPLETED")

	require.NoError(t, f.service.AutoCheck(context.Background(), result.PaymentID))

	p := f.payments.get(result.PaymentID)
	assert.Equal(t, domain.StatusSuccess, p.Status)
	assert.NotEmpty(t, p.PspStatusPayload)
	assert.Equal(t, domain.AppointmentConfirmed, f.appointments.get(123).Status)
}

func TestAutoCheck_PendingUnseenIsNoOp(t *testing.T) {
	f := newFixture()
	result := initiatedPayment(t, f)
	// Default fakePSP answers ErrPendingUnseen.

	require.NoError(t, f.service.AutoCheck(context.Background(), result.PaymentID))

	p := f.payments.get(result.PaymentID)
	assert.Equal(t, domain.StatusInitiated, p.Status)
}

func TestAutoCheck_SkipsTerminalPayment(t *testing.T) {
	f := newFixture()
	result := initiatedPayment(t, f)
	f.psp.VerifyCallbackFn = callbackFor(result.MerchantTransactionID, "COMPLETED")
	require.NoError(t, f.service.HandleCallback(context.Background(), []byte(`{}`), ""))

	called := false
	f.psp.OrderStatusFn = func(ctx context.Context, merchantOrderID string) (*phonepe.StatusResponse, error) {
		called = true
		return statusFor("FAILED")(ctx, merchantOrderID)
	}

	require.NoError(t, f.service.AutoCheck(context.Background(), result.PaymentID))
	assert.False(t, called, "terminal payments must not be polled")
}

func TestManualSync_ReportsTransition(t *testing.T) {
	f := newFixture()
	result := initiatedPayment(t, f)
	f.psp.OrderStatusFn = statusFor("COMPLETED")

	sync, err := f.service.ManualSync(context.Background(), result.PaymentID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusInitiated, sync.OldState)
	assert.Equal(t, domain.StatusSuccess, sync.NewState)
	assert.Equal(t, "COMPLETED", sync.UpstreamState)
	assert.True(t, sync.Changed)
}

func TestManualSync_TerminalIsIdempotent(t *testing.T) {
	f := newFixture()
	result := initiatedPayment(t, f)
	f.psp.OrderStatusFn = statusFor("COMPLETED")

	_, err := f.service.ManualSync(context.Background(), result.PaymentID)
	require.NoError(t, err)

	f.psp.OrderStatusFn = statusFor("FAILED")
	sync, err := f.service.ManualSync(context.Background(), result.PaymentID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, sync.OldState)
	assert.Equal(t, domain.StatusSuccess, sync.NewState)
	assert.False(t, sync.Changed)
}

func TestCheckStatus_TerminalAnswersFromCache(t *testing.T) {
	f := newFixture()
	result := initiatedPayment(t, f)
	f.psp.OrderStatusFn = statusFor("COMPLETED")
	_, err := f.service.ManualSync(context.Background(), result.PaymentID)
	require.NoError(t, err)

	called := false
	f.psp.OrderStatusFn = func(ctx context.Context, merchantOrderID string) (*phonepe.StatusResponse, error) {
		called = true
		return statusFor("COMPLETED")(ctx, merchantOrderID)
	}

	view, err := f.service.CheckStatus(context.Background(), result.PaymentID, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, view.Status)
	assert.Nil(t, view.PaymentURL)
	assert.False(t, called)
}

func TestCheckStatus_ReadThroughSettlesInFlight(t *testing.T) {
	f := newFixture()
	result := initiatedPayment(t, f)
	f.psp.OrderStatusFn = statusFor("COMPLETED")

	view, err := f.service.CheckStatus(context.Background(), result.PaymentID, 7)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, view.Status)
	assert.Equal(t, domain.StatusSuccess, f.payments.get(result.PaymentID).Status)
}

func TestCheckStatus_ForbiddenForOtherUser(t *testing.T) {
	f := newFixture()
	result := initiatedPayment(t, f)

	_, err := f.service.CheckStatus(context.Background(), result.PaymentID, 99)
	require.Error(t, err)
}

func TestMapUpstreamState(t *testing.T) {
	cases := []struct {
		upstream string
		want     domain.PaymentStatus
	}{
		{"COMPLETED", domain.StatusSuccess},
		{"SUCCESS", domain.StatusSuccess},
		{"completed", domain.StatusSuccess},
		{"PENDING", domain.StatusProcessing},
		{"PROCESSING", domain.StatusProcessing},
		{"CANCELLED", domain.StatusCancelled},
		{"CANCELED", domain.StatusCancelled},
		{"EXPIRED", domain.StatusExpired},
		{"FAILED", domain.StatusFailed},
		{"FAILURE", domain.StatusFailed},
		{" failed ", domain.StatusFailed},
		{"SOMETHING_ELSE", domain.StatusFailed},
		{"", domain.StatusFailed},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, MapUpstreamState(tc.upstream), "upstream %q", tc.upstream)
	}
}
