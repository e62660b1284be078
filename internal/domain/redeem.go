package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType selects how a redeem code's value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountAmount     DiscountType = "amount"
)

// Applicability scopes which order kinds a code may discount.
type Applicability string

const (
	ApplicableAll     Applicability = "all"
	ApplicableVirtual Applicability = "virtual_appointment"
)

// RedeemCode is a discount voucher with temporal and usage gates.
type RedeemCode struct {
	ID                int64
	Code              string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	MinOrderAmount    *decimal.Decimal
	ValidFrom         time.Time
	ValidUntil        *time.Time
	IsActive          bool
	ApplicableFor     Applicability
	UsageLimit        *int
	UsageCount        int
	UserUsageLimit    *int
}

// NormalizeCode uppercases and trims a user-supplied redeem code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateAt checks the active, temporal and global usage gates. The
// returned error carries the precise reason the code is unusable.
func (c *RedeemCode) ValidateAt(now time.Time) error {
	if !c.IsActive {
		return NewCodeNotValidError(fmt.Sprintf("redeem code %s is no longer active", c.Code))
	}
	if now.Before(c.ValidFrom) {
		return NewCodeNotValidError(fmt.Sprintf("redeem code %s is not valid yet", c.Code))
	}
	// validUntil == now is already past the boundary.
	if c.ValidUntil != nil && !now.Before(*c.ValidUntil) {
		return NewCodeNotValidError(fmt.Sprintf("redeem code %s has expired", c.Code))
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return NewCodeNotValidError(fmt.Sprintf("redeem code %s has reached its usage limit", c.Code))
	}
	return nil
}

// CheckMinOrder enforces the minimum-order gate; the boundary amount is accepted.
func (c *RedeemCode) CheckMinOrder(orderAmount decimal.Decimal) error {
	if c.MinOrderAmount != nil && orderAmount.LessThan(*c.MinOrderAmount) {
		return NewBelowMinimumError(*c.MinOrderAmount)
	}
	return nil
}

// DiscountFor computes the deterministic discount for an order amount,
// rounded half-up to two decimals. Percentage codes are capped by
// MaxDiscountAmount; amount codes never exceed the order itself.
func (c *RedeemCode) DiscountFor(orderAmount decimal.Decimal) decimal.Decimal {
	var raw decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		raw = orderAmount.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
		if c.MaxDiscountAmount != nil && raw.GreaterThan(*c.MaxDiscountAmount) {
			raw = *c.MaxDiscountAmount
		}
	case DiscountAmount:
		raw = c.DiscountValue
		if raw.GreaterThan(orderAmount) {
			raw = orderAmount
		}
	}
	return raw.Round(2)
}

// UsageStatus tracks the lifecycle of one code application.
type UsageStatus string

const (
	UsageApplied   UsageStatus = "applied"
	UsageCancelled UsageStatus = "cancelled"
	UsageRefunded  UsageStatus = "refunded"
)

// RedeemCodeUsage records one application of a code to an appointment.
// Unique on (user, code, appointment); PaymentID links after order creation.
type RedeemCodeUsage struct {
	ID             int64
	UserID         int64
	RedeemCodeID   int64
	AppointmentID  int64
	OriginalAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	Status         UsageStatus
	PaymentID      *uuid.UUID
	CreatedAt      time.Time
}
