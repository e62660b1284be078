package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/phonepe"
)

func initiatedPayment(t *testing.T, f *fixture) *InitiateResult {
	t.Helper()
	f.appointments.put(pendingVirtualAppointment(123, 7))
	result, err := f.service.Initiate(context.Background(), InitiateCommand{
		UserID:        7,
		AppointmentID: 123,
	})
	require.NoError(t, err)
	return result
}

func callbackFor(merchantTxnID, state string) func(body []byte, authorization string) (*phonepe.CallbackEvent, error) {
	return func(body []byte, authorization string) (*phonepe.CallbackEvent, error) {
		return &phonepe.CallbackEvent{
			MerchantOrderID: merchantTxnID,
			State:           state,
			TransactionID:   "T" + merchantTxnID,
			Raw:             []byte(`{"state":"` + state + `"}`),
		}, nil
	}
}

func TestHandleCallback_CompletedConfirmsAppointment(t *testing.T) {
	f := newFixture()
	result := initiatedPayment(t, f)
	f.psp.VerifyCallbackFn = callbackFor(result.MerchantTransactionID, "COMPLETED")

	err := f.service.HandleCallback(context.Background(), []byte(`{}`), "")
	require.NoError(t, err)

	p := f.payments.get(result.PaymentID)
	assert.Equal(t, domain.StatusSuccess, p.Status)
	require.NotNil(t, p.CompletedAt)
	assert.Nil(t, p.FailedAt)
	require.NotNil(t, p.GatewayTransactionID)
	assert.NotEmpty(t, p.PspCallbackPayload)

	a := f.appointments.get(123)
	assert.Equal(t, domain.AppointmentConfirmed, a.Status)
	assert.Equal(t, domain.AppointmentPaymentSuccess, a.PaymentStatus)
	require.NotNil(t, a.PaymentID)
	assert.Equal(t, result.PaymentID, *a.PaymentID)
	require.NotNil(t, a.ConfirmedAt)
}

func TestHandleCallback_FailedMarksAppointmentFailed(t *testing.T) {
	f := newFixture()
	result := initiatedPayment(t, f)
	f.psp.VerifyCallbackFn = callbackFor(result.MerchantTransactionID, "FAILED")

	err := f.service.HandleCallback(context.Background(), []byte(`{}`), "")
	require.NoError(t, err)

	p := f.payments.get(result.PaymentID)
	assert.Equal(t, domain.StatusFailed, p.Status)
	require.NotNil(t, p.FailedAt)
	require.NotNil(t, p.FailureReason)

	a := f.appointments.get(123)
	assert.Equal(t, domain.AppointmentPending, a.Status)
	assert.Equal(t, domain.AppointmentPaymentFailed, a.PaymentStatus)
}

func TestHandleCallback_PendingKeepsPaymentOpen(t *testing.T) {
	f := newFixture()
	result := initiatedPayment(t, f)
	f.psp.VerifyCallbackFn = callbackFor(result.MerchantTransactionID, "PENDING")

	err := f.service.HandleCallback(context.Background(), []byte(`{}`), "")
	require.NoError(t, err)

	p := f.payments.get(result.PaymentID)
	assert.Equal(t, domain.StatusProcessing, p.Status)

	a := f.appointments.get(123)
	assert.Equal(t, domain.AppointmentPaymentInitiated, a.PaymentStatus)
}

func TestHandleCallback_InvalidSignatureRejected(t *testing.T) {
	f := newFixture()
	initiatedPayment(t, f)

	err := f.service.HandleCallback(context.Background(), []byte(`{}`), "garbage")
	assert.ErrorIs(t, err, phonepe.ErrInvalidSignature)
}

func TestHandleCallback_UnknownMerchantTxn(t *testing.T) {
	f := newFixture()
	f.psp.VerifyCallbackFn = callbackFor("TXN_9_9_9", "COMPLETED")

	err := f.service.HandleCallback(context.Background(), []byte(`{}`), "")
	require.Error(t, err)
}

func TestHandleCallback_ReplayAfterSuccessIsNoOp(t *testing.T) {
	f := newFixture()
	result := initiatedPayment(t, f)
	f.psp.VerifyCallbackFn = callbackFor(result.MerchantTransactionID, "COMPLETED")

	require.NoError(t, f.service.HandleCallback(context.Background(), []byte(`{}`), ""))
	first := f.payments.get(result.PaymentID)
	require.NotNil(t, first.CompletedAt)

	// Second delivery: the winning state and completedAt must not move.
	f.psp.VerifyCallbackFn = callbackFor(result.MerchantTransactionID, "FAILED")
	require.NoError(t, f.service.HandleCallback(context.Background(), []byte(`{}`), ""))

	second := f.payments.get(result.PaymentID)
	assert.Equal(t, domain.StatusSuccess, second.Status)
	assert.Equal(t, first.CompletedAt, second.CompletedAt)
	assert.Nil(t, second.FailedAt)
}

func TestHandleCallback_TerminalFailureReleasesRedeemUsage(t *testing.T) {
	f := newFixture()
	f.appointments.put(pendingVirtualAppointment(123, 7))
	f.redeems.putCode(domain.RedeemCode{
		ID:            1,
		Code:          "SAVE50",
		DiscountType:  domain.DiscountAmount,
		DiscountValue: decimal.NewFromInt(50),
		IsActive:      true,
		ApplicableFor: domain.ApplicableAll,
	})

	result, err := f.service.Initiate(context.Background(), InitiateCommand{
		UserID:        7,
		AppointmentID: 123,
		RedeemCode:    "SAVE50",
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.redeems.codes["SAVE50"].UsageCount)

	f.psp.VerifyCallbackFn = callbackFor(result.MerchantTransactionID, "CANCELLED")
	require.NoError(t, f.service.HandleCallback(context.Background(), []byte(`{}`), ""))

	p := f.payments.get(result.PaymentID)
	assert.Equal(t, domain.StatusCancelled, p.Status)
	assert.Equal(t, domain.UsageCancelled, f.redeems.usages[0].Status)
	assert.Equal(t, 0, f.redeems.codes["SAVE50"].UsageCount)
}
