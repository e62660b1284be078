// Package domain encodes the payment entity, its state machine and the
// redeem-code discount rules.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current state of a payment in its lifecycle
type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusInitiated  PaymentStatus = "initiated"
	StatusProcessing PaymentStatus = "processing"
	StatusSuccess    PaymentStatus = "success"
	StatusFailed     PaymentStatus = "failed"
	StatusCancelled  PaymentStatus = "cancelled"
	StatusRefunded   PaymentStatus = "refunded"
	StatusExpired    PaymentStatus = "expired"
)

// PaymentMethod is the instrument the payer chose at initiation.
type PaymentMethod string

const (
	MethodPhonePe    PaymentMethod = "phonepe"
	MethodUPI        PaymentMethod = "upi"
	MethodCard       PaymentMethod = "card"
	MethodNetBanking PaymentMethod = "netbanking"
	MethodWallet     PaymentMethod = "wallet"
)

// ValidMethod reports whether m is one of the accepted payment methods.
func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodPhonePe, MethodUPI, MethodCard, MethodNetBanking, MethodWallet:
		return true
	}
	return false
}

// Payment is one payment attempt against an appointment.
type Payment struct {
	ID                    uuid.UUID
	UserID                int64
	AppointmentID         int64
	MerchantTransactionID string

	Amount   decimal.Decimal
	Currency string
	Method   PaymentMethod
	Status   PaymentStatus

	PspOrderID           *string
	PspCallbackPayload   []byte
	PspStatusPayload     []byte
	GatewayTransactionID *string
	PaymentURL           *string

	CreatedAt   time.Time
	InitiatedAt *time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time

	FailureReason *string
	FailureCode   *string

	RefundAmount *decimal.Decimal
	RefundReason *string
	RefundedAt   *time.Time

	IPAddress  *string
	DeviceInfo *string
}

// NewPayment creates a payment row in the initiated state. The merchant
// transaction id must already be unique per attempt.
func NewPayment(userID, appointmentID int64, merchantTxnID string, amount decimal.Decimal, method PaymentMethod) (*Payment, error) {
	if userID <= 0 {
		return nil, NewMissingRequiredFieldError("user id")
	}
	if appointmentID <= 0 {
		return nil, NewMissingRequiredFieldError("appointment id")
	}
	if merchantTxnID == "" {
		return nil, NewMissingRequiredFieldError("merchant transaction id")
	}
	if !amount.IsPositive() {
		return nil, NewInvalidAmountError(amount)
	}
	if !ValidMethod(method) {
		return nil, NewInvalidMethodError(string(method))
	}

	now := time.Now()
	return &Payment{
		ID:                    uuid.New(),
		UserID:                userID,
		AppointmentID:         appointmentID,
		MerchantTransactionID: merchantTxnID,
		Amount:                amount.Round(2),
		Currency:              "INR",
		Method:                method,
		Status:                StatusInitiated,
		CreatedAt:             now,
		InitiatedAt:           &now,
	}, nil
}

// IsTerminal reports whether the payment can no longer change state,
// refund bookkeeping aside.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case StatusSuccess, StatusFailed, StatusCancelled, StatusRefunded, StatusExpired:
		return true
	default:
		return false
	}
}

// IsActive reports whether the payment still occupies its appointment:
// either in flight or already succeeded.
func (p *Payment) IsActive() bool {
	switch p.Status {
	case StatusPending, StatusInitiated, StatusProcessing, StatusSuccess:
		return true
	default:
		return false
	}
}

// CanTransitionTo validates a state move against the machine:
//
//   - pending | initiated → processing, success, failed, cancelled, expired
//   - processing          → success, failed, cancelled, expired
//   - success             → refunded
//
// Failed, cancelled, expired and refunded are absorbing.
func (p *Payment) CanTransitionTo(target PaymentStatus) error {
	switch p.Status {
	case StatusPending, StatusInitiated:
		return p.allow(target, StatusProcessing, StatusSuccess, StatusFailed, StatusCancelled, StatusExpired)
	case StatusProcessing:
		return p.allow(target, StatusSuccess, StatusFailed, StatusCancelled, StatusExpired)
	case StatusSuccess:
		return p.allow(target, StatusRefunded)
	}
	return NewInvalidTransitionError(p.Status, target)
}

func (p *Payment) allow(target PaymentStatus, allowed ...PaymentStatus) error {
	for _, a := range allowed {
		if target == a {
			return nil
		}
	}
	return NewInvalidTransitionError(p.Status, target)
}

// MarkProcessing records that the PSP has seen the payment but not settled it.
func (p *Payment) MarkProcessing() error {
	if err := p.CanTransitionTo(StatusProcessing); err != nil {
		return err
	}
	p.Status = StatusProcessing
	return nil
}

// MarkSuccess finalizes the payment. The amount is fixed from this point on.
func (p *Payment) MarkSuccess(gatewayTxnID *string, at time.Time) error {
	if err := p.CanTransitionTo(StatusSuccess); err != nil {
		return err
	}
	p.Status = StatusSuccess
	p.CompletedAt = &at
	p.FailedAt = nil
	if gatewayTxnID != nil && *gatewayTxnID != "" {
		p.GatewayTransactionID = gatewayTxnID
	}
	return nil
}

// MarkFailed moves the payment into one of the terminal failure states.
func (p *Payment) MarkFailed(target PaymentStatus, reason, code string, at time.Time) error {
	switch target {
	case StatusFailed, StatusCancelled, StatusExpired:
	default:
		return NewInvalidTransitionError(p.Status, target)
	}
	if err := p.CanTransitionTo(target); err != nil {
		return err
	}
	if reason == "" {
		reason = "payment " + string(target)
	}
	p.Status = target
	p.FailedAt = &at
	p.FailureReason = &reason
	if code != "" {
		p.FailureCode = &code
	}
	return nil
}

// MarkRefunded records refund bookkeeping on a successful payment.
func (p *Payment) MarkRefunded(amount decimal.Decimal, reason string, at time.Time) error {
	if err := p.CanTransitionTo(StatusRefunded); err != nil {
		return err
	}
	if amount.GreaterThan(p.Amount) {
		return NewInvalidAmountError(amount)
	}
	p.Status = StatusRefunded
	p.RefundAmount = &amount
	p.RefundReason = &reason
	p.RefundedAt = &at
	return nil
}
