package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/phonepe"
)

// PSPClient is the port for the PhonePe infrastructure.
type PSPClient interface {
	CreateOrder(ctx context.Context, req phonepe.OrderRequest) (*phonepe.OrderResponse, error)
	OrderStatus(ctx context.Context, merchantOrderID string) (*phonepe.StatusResponse, error)
	VerifyCallback(body []byte, authorization string) (*phonepe.CallbackEvent, error)
	MerchantTransactionID(userID, appointmentID int64) string
}

// Page bounds a listing query.
type Page struct {
	Limit  int
	Offset int
}

// PaymentFilter narrows a user's payment history.
type PaymentFilter struct {
	Status *domain.PaymentStatus
	Page   Page
}

// AdminPaymentFilter narrows the admin listing.
type AdminPaymentFilter struct {
	Status      *domain.PaymentStatus
	Method      *domain.PaymentMethod
	UserID      *int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        Page
}

// RevenueStats aggregates settled revenue over a completedAt range.
type RevenueStats struct {
	TotalRevenue      decimal.Decimal
	TotalTransactions int64
}

// StateAggregate is a per-status count and rupee total.
type StateAggregate struct {
	Status domain.PaymentStatus
	Count  int64
	Total  decimal.Decimal
}

// MethodAggregate is a per-method count.
type MethodAggregate struct {
	Method domain.PaymentMethod
	Count  int64
}

// PendingPayment joins a pending appointment with its non-successful payment, if any.
type PendingPayment struct {
	UserID        int64
	AppointmentID int64
	PaymentID     *uuid.UUID
	PaymentStatus *domain.PaymentStatus
	Amount        *decimal.Decimal
}

// PaymentRepository is the port for payment persistence.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	Update(ctx context.Context, p *domain.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	FindByMerchantTxnID(ctx context.Context, merchantTxnID string) (*domain.Payment, error)
	FindActiveForAppointment(ctx context.Context, appointmentID int64) (*domain.Payment, error)
	ListByUser(ctx context.Context, userID int64, f PaymentFilter) ([]*domain.Payment, error)
	ListAdmin(ctx context.Context, f AdminPaymentFilter) ([]*domain.Payment, error)
	SumRevenue(ctx context.Context, from, to time.Time) (RevenueStats, error)
	AggregateByState(ctx context.Context, from, to time.Time) ([]StateAggregate, error)
	AggregateByMethod(ctx context.Context, from, to time.Time) ([]MethodAggregate, error)
	PendingByUser(ctx context.Context, userID *int64) ([]PendingPayment, error)
}

// AppointmentRepository exposes the payment-relevant slice of appointments.
type AppointmentRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Appointment, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error)
	Update(ctx context.Context, a *domain.Appointment) error
}

// PriceRepository reads the service price catalog.
type PriceRepository interface {
	FindByService(ctx context.Context, serviceName string) (*domain.Price, error)
}

// RedeemRepository persists codes and their usages. UsageCount mutations
// are atomic SQL increments, never read-modify-write.
type RedeemRepository interface {
	FindByCode(ctx context.Context, code string, scopes []domain.Applicability) (*domain.RedeemCode, error)
	CountUsages(ctx context.Context, userID, codeID int64) (int, error)
	CreateUsage(ctx context.Context, u *domain.RedeemCodeUsage) error
	LinkUsageToPayment(ctx context.Context, usageID int64, paymentID uuid.UUID) error
	IncrementUsageCount(ctx context.Context, codeID int64) error
	FindUsageForPayment(ctx context.Context, paymentID uuid.UUID) (*domain.RedeemCodeUsage, error)
	CancelUsage(ctx context.Context, usageID int64) error
	CancelUsageForPayment(ctx context.Context, paymentID uuid.UUID) error
}

// JobRepository is the durable delayed-poll queue.
type JobRepository interface {
	Enqueue(ctx context.Context, paymentID uuid.UUID, runAt time.Time) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*domain.PaymentJob, error)
	MarkDone(ctx context.Context, jobID int64) error
	MarkFailed(ctx context.Context, jobID int64, lastError string, retryAt *time.Time) error
}

// Repositories bundles the repositories a transaction spans. The
// coordinator hands out a transaction-bound bundle; outside a transaction
// the bundle operates on the pool directly.
type Repositories struct {
	Payments     PaymentRepository
	Appointments AppointmentRepository
	Redeems      RedeemRepository
	Jobs         JobRepository
}

// TransactionCoordinator runs fn inside a single database transaction.
type TransactionCoordinator interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// PaymentEvent is published after a committed state change.
type PaymentEvent struct {
	PaymentID             string    `json:"payment_id"`
	MerchantTransactionID string    `json:"merchant_transaction_id"`
	AppointmentID         int64     `json:"appointment_id"`
	UserID                int64     `json:"user_id"`
	State                 string    `json:"state"`
	PreviousState         string    `json:"previous_state"`
	Timestamp             time.Time `json:"timestamp"`
}

// EventPublisher fans committed state changes out to the rest of the
// platform. Publishing is best-effort; failures never roll back payments.
type EventPublisher interface {
	Publish(ctx context.Context, ev PaymentEvent) error
}
