package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
)

func discountFixture() (*DiscountService, *fakeRedeemRepo) {
	redeems := newFakeRedeemRepo()
	svc := NewDiscountService(redeems)
	return svc, redeems
}

func TestDiscount_PreviewDoesNotPersist(t *testing.T) {
	svc, redeems := discountFixture()
	redeems.putCode(domain.RedeemCode{
		ID:            1,
		Code:          "FLAT100",
		DiscountType:  domain.DiscountAmount,
		DiscountValue: decimal.NewFromInt(100),
		IsActive:      true,
		ApplicableFor: domain.ApplicableVirtual,
	})

	result, err := svc.Preview(context.Background(), " flat100 ", decimal.NewFromInt(500), 7)
	require.NoError(t, err)

	assert.True(t, result.DiscountAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, result.FinalAmount.Equal(decimal.NewFromInt(400)))
	assert.Nil(t, result.Usage)
	assert.Empty(t, redeems.usages)
	assert.Equal(t, 0, redeems.codes["FLAT100"].UsageCount)
}

func TestDiscount_ApplyRecordsUsageAndBumpsCounter(t *testing.T) {
	svc, redeems := discountFixture()
	redeems.putCode(domain.RedeemCode{
		ID:            1,
		Code:          "FLAT100",
		DiscountType:  domain.DiscountAmount,
		DiscountValue: decimal.NewFromInt(100),
		IsActive:      true,
		ApplicableFor: domain.ApplicableAll,
	})

	result, err := svc.Apply(context.Background(), "FLAT100", decimal.NewFromInt(500), 7, 123)
	require.NoError(t, err)

	require.NotNil(t, result.Usage)
	assert.Equal(t, domain.UsageApplied, result.Usage.Status)
	assert.Equal(t, int64(123), result.Usage.AppointmentID)
	assert.Equal(t, 1, redeems.codes["FLAT100"].UsageCount)
}

func TestDiscount_AmountCodeNeverExceedsOrder(t *testing.T) {
	svc, redeems := discountFixture()
	redeems.putCode(domain.RedeemCode{
		ID:            1,
		Code:          "FLAT1000",
		DiscountType:  domain.DiscountAmount,
		DiscountValue: decimal.NewFromInt(1000),
		IsActive:      true,
		ApplicableFor: domain.ApplicableAll,
	})

	result, err := svc.Preview(context.Background(), "FLAT1000", decimal.NewFromInt(500), 7)
	require.NoError(t, err)

	assert.True(t, result.DiscountAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, result.FinalAmount.IsZero())
}

func TestDiscount_MinOrderBoundaryAccepted(t *testing.T) {
	svc, redeems := discountFixture()
	min := decimal.NewFromInt(500)
	redeems.putCode(domain.RedeemCode{
		ID:             1,
		Code:           "MIN500",
		DiscountType:   domain.DiscountPercentage,
		DiscountValue:  decimal.NewFromInt(10),
		MinOrderAmount: &min,
		IsActive:       true,
		ApplicableFor:  domain.ApplicableAll,
	})

	_, err := svc.Preview(context.Background(), "MIN500", decimal.NewFromInt(500), 7)
	require.NoError(t, err)

	_, err = svc.Preview(context.Background(), "MIN500", decimal.NewFromFloat(499.99), 7)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeBelowMinimum))
}

func TestDiscount_ExpiryBoundaryRejected(t *testing.T) {
	svc, redeems := discountFixture()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	until := now
	redeems.putCode(domain.RedeemCode{
		ID:            1,
		Code:          "EXPIRES",
		DiscountType:  domain.DiscountAmount,
		DiscountValue: decimal.NewFromInt(50),
		ValidFrom:     now.Add(-24 * time.Hour),
		ValidUntil:    &until,
		IsActive:      true,
		ApplicableFor: domain.ApplicableAll,
	})

	_, err := svc.Preview(context.Background(), "EXPIRES", decimal.NewFromInt(500), 7)
	require.Error(t, err, "validUntil equal to now is already expired")

	svc.now = func() time.Time { return now.Add(-time.Second) }
	_, err = svc.Preview(context.Background(), "EXPIRES", decimal.NewFromInt(500), 7)
	require.NoError(t, err)
}

func TestDiscount_UnknownCodeInvalid(t *testing.T) {
	svc, _ := discountFixture()

	_, err := svc.Preview(context.Background(), "NOPE", decimal.NewFromInt(500), 7)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidCode))
}

func TestDiscount_GlobalUsageLimitExhausted(t *testing.T) {
	svc, redeems := discountFixture()
	limit := 3
	redeems.putCode(domain.RedeemCode{
		ID:            1,
		Code:          "CAPPED",
		DiscountType:  domain.DiscountAmount,
		DiscountValue: decimal.NewFromInt(50),
		IsActive:      true,
		ApplicableFor: domain.ApplicableAll,
		UsageLimit:    &limit,
		UsageCount:    3,
	})

	_, err := svc.Preview(context.Background(), "CAPPED", decimal.NewFromInt(500), 7)
	require.Error(t, err)
}
