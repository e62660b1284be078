package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AppointmentStatus mirrors the clinic scheduling lifecycle. Only the
// payment-relevant transitions are driven from this package.
type AppointmentStatus string

const (
	AppointmentPending             AppointmentStatus = "pending"
	AppointmentConfirmed           AppointmentStatus = "confirmed"
	AppointmentCompleted           AppointmentStatus = "completed"
	AppointmentCanceled            AppointmentStatus = "canceled"
	AppointmentRejected            AppointmentStatus = "rejected"
	AppointmentRescheduleRequested AppointmentStatus = "reschedule_requested"
)

// AppointmentPaymentStatus is the coarse payment view stored on the
// appointment row itself.
type AppointmentPaymentStatus string

const (
	AppointmentPaymentPending   AppointmentPaymentStatus = "pending"
	AppointmentPaymentInitiated AppointmentPaymentStatus = "initiated"
	AppointmentPaymentSuccess   AppointmentPaymentStatus = "success"
	AppointmentPaymentFailed    AppointmentPaymentStatus = "failed"
	AppointmentPaymentRefunded  AppointmentPaymentStatus = "refunded"
)

// AppointmentType distinguishes in-person from video consultations. The
// payment flow only serves virtual appointments.
type AppointmentType string

const (
	AppointmentPhysical AppointmentType = "physical"
	AppointmentVirtual  AppointmentType = "virtual"
)

// Appointment carries the payment-relevant attributes of an appointment.
// The full entity is owned by the scheduling subsystem.
type Appointment struct {
	ID            int64
	UserID        int64
	Type          AppointmentType
	Status        AppointmentStatus
	PaymentStatus AppointmentPaymentStatus
	PaymentID     *uuid.UUID
	PaymentAmount *decimal.Decimal
	ConfirmedAt   *time.Time
}

// ApplyPaymentOutcome folds a payment state change into the appointment. A
// successful payment confirms a still-pending appointment; a failed one
// only downgrades the payment view.
func (a *Appointment) ApplyPaymentOutcome(p *Payment, at time.Time) {
	a.PaymentID = &p.ID
	amount := p.Amount
	a.PaymentAmount = &amount

	switch p.Status {
	case StatusSuccess:
		a.PaymentStatus = AppointmentPaymentSuccess
		if a.Status == AppointmentPending {
			a.Status = AppointmentConfirmed
			a.ConfirmedAt = &at
		}
	case StatusProcessing:
		a.PaymentStatus = AppointmentPaymentInitiated
	case StatusRefunded:
		a.PaymentStatus = AppointmentPaymentRefunded
	case StatusFailed, StatusCancelled, StatusExpired:
		a.PaymentStatus = AppointmentPaymentFailed
	default:
		a.PaymentStatus = AppointmentPaymentInitiated
	}
}

// Price is one row of the service price catalog.
type Price struct {
	ID          int64
	ServiceName string
	Amount      decimal.Decimal
	IsActive    bool
}

// VirtualAppointmentService is the catalog key for the virtual consultation fee.
const VirtualAppointmentService = "Virtual Appointment"
