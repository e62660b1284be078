package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
)

// InitiateCommand starts a payment attempt for a virtual appointment.
type InitiateCommand struct {
	UserID        int64
	AppointmentID int64
	Method        domain.PaymentMethod
	RedeemCode    string

	IPAddress  string
	DeviceInfo string
}

// AppliedCode summarizes the discount the payer received.
type AppliedCode struct {
	Code           string          `json:"code"`
	DiscountType   string          `json:"discountType"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// InitiateResult is returned to the payer after order creation.
type InitiateResult struct {
	PaymentID             uuid.UUID       `json:"paymentId"`
	PaymentURL            string          `json:"paymentUrl"`
	OriginalAmount        decimal.Decimal `json:"originalAmount"`
	DiscountAmount        decimal.Decimal `json:"discountAmount"`
	FinalAmount           decimal.Decimal `json:"finalAmount"`
	Currency              string          `json:"currency"`
	MerchantTransactionID string          `json:"merchantTransactionId"`
	RedeemCode            *AppliedCode    `json:"redeemCode,omitempty"`

	// Replayed is set when an in-flight payment already existed and its
	// original URL was returned unchanged.
	Replayed bool `json:"replayed,omitempty"`
}

// SyncResult is the diagnostic envelope of a manual sync.
type SyncResult struct {
	PaymentID     uuid.UUID            `json:"paymentId"`
	OldState      domain.PaymentStatus `json:"oldState"`
	NewState      domain.PaymentStatus `json:"newState"`
	UpstreamState string               `json:"upstreamState,omitempty"`
	Changed       bool                 `json:"changed"`
}

// StatusView is the read-through payment status a user polls.
type StatusView struct {
	PaymentID             uuid.UUID            `json:"paymentId"`
	MerchantTransactionID string               `json:"merchantTransactionId"`
	Status                domain.PaymentStatus `json:"status"`
	Amount                decimal.Decimal      `json:"amount"`
	Currency              string               `json:"currency"`
	PaymentURL            *string              `json:"paymentUrl,omitempty"`
	FailureReason         *string              `json:"failureReason,omitempty"`
}
