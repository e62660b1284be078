package postgres

import (
	"time"

	"github.com/google/uuid"
)

// PaymentModel mirrors the payments table. NUMERIC columns travel as
// strings and are converted to decimals in the mappers.
type PaymentModel struct {
	ID                    uuid.UUID
	UserID                int64
	AppointmentID         int64
	MerchantTransactionID string
	Amount                string
	Currency              string
	Method                string
	Status                string
	PspOrderID            *string
	PspCallbackPayload    []byte
	PspStatusPayload      []byte
	GatewayTransactionID  *string
	PaymentURL            *string
	CreatedAt             time.Time
	InitiatedAt           *time.Time
	CompletedAt           *time.Time
	FailedAt              *time.Time
	FailureReason         *string
	FailureCode           *string
	RefundAmount          *string
	RefundReason          *string
	RefundedAt            *time.Time
	IPAddress             *string
	DeviceInfo            *string
}

// AppointmentModel mirrors the payment-relevant appointment columns.
type AppointmentModel struct {
	ID            int64
	UserID        int64
	Type          string
	Status        string
	PaymentStatus string
	PaymentID     *uuid.UUID
	PaymentAmount *string
	ConfirmedAt   *time.Time
}

// PriceModel mirrors the prices catalog table.
type PriceModel struct {
	ID          int64
	ServiceName string
	Price       string
	IsActive    bool
}

// RedeemCodeModel mirrors the redeem_codes table.
type RedeemCodeModel struct {
	ID                int64
	Code              string
	DiscountType      string
	DiscountValue     string
	MaxDiscountAmount *string
	MinOrderAmount    *string
	ValidFrom         time.Time
	ValidUntil        *time.Time
	IsActive          bool
	ApplicableFor     string
	UsageLimit        *int
	UsageCount        int
	UserUsageLimit    *int
}

// UsageModel mirrors the redeem_code_usages table.
type UsageModel struct {
	ID             int64
	UserID         int64
	RedeemCodeID   int64
	AppointmentID  int64
	OriginalAmount string
	DiscountAmount string
	FinalAmount    string
	Status         string
	PaymentID      *uuid.UUID
	CreatedAt      time.Time
}

// JobModel mirrors the payment_jobs queue table.
type JobModel struct {
	ID          int64
	PaymentID   uuid.UUID
	RunAt       time.Time
	Attempts    int
	MaxAttempts int
	Status      string
	LastError   *string
	CreatedAt   time.Time
}
