package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
)

// StatsView bundles the admin revenue and distribution aggregates over a
// createdAt/completedAt range.
type StatsView struct {
	Revenue  application.RevenueStats      `json:"revenue"`
	ByState  []application.StateAggregate  `json:"byState"`
	ByMethod []application.MethodAggregate `json:"byMethod"`
}

// History lists a user's own payments, newest first.
func (s *PaymentService) History(ctx context.Context, userID int64, f application.PaymentFilter) ([]*domain.Payment, error) {
	return s.repos.Payments.ListByUser(ctx, userID, f)
}

// Details loads one payment, restricted to its owner.
func (s *PaymentService) Details(ctx context.Context, paymentID uuid.UUID, userID int64) (*domain.Payment, error) {
	payment, err := s.repos.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, application.NewNotFoundError("payment not found")
	}
	if payment.UserID != userID {
		return nil, application.NewForbiddenError("payment belongs to another user")
	}
	return payment, nil
}

// Pending lists pending appointments joined with their latest
// non-successful payment attempt. A nil userID spans all users for
// staff chasing unpaid bookings; patients pass their own id.
func (s *PaymentService) Pending(ctx context.Context, userID *int64) ([]application.PendingPayment, error) {
	return s.repos.Payments.PendingByUser(ctx, userID)
}

// AdminList is the cross-user listing with state, method, user and
// created-range filters.
func (s *PaymentService) AdminList(ctx context.Context, f application.AdminPaymentFilter) ([]*domain.Payment, error) {
	return s.repos.Payments.ListAdmin(ctx, f)
}

// AdminStats aggregates revenue over settled payments plus per-state and
// per-method distributions for the given range.
func (s *PaymentService) AdminStats(ctx context.Context, from, to time.Time) (*StatsView, error) {
	revenue, err := s.repos.Payments.SumRevenue(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byState, err := s.repos.Payments.AggregateByState(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byMethod, err := s.repos.Payments.AggregateByMethod(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &StatsView{
		Revenue:  revenue,
		ByState:  byState,
		ByMethod: byMethod,
	}, nil
}

// Methods enumerates the payment instruments the initiate endpoint accepts.
func (s *PaymentService) Methods() []domain.PaymentMethod {
	return []domain.PaymentMethod{
		domain.MethodPhonePe,
		domain.MethodUPI,
		domain.MethodCard,
		domain.MethodNetBanking,
		domain.MethodWallet,
	}
}

// PreviewDiscount exposes the discount engine's dry run for the code
// check endpoint. The order amount is the current virtual appointment
// price.
func (s *PaymentService) PreviewDiscount(ctx context.Context, code string, userID int64) (*DiscountResult, error) {
	price, err := s.prices.FindByService(ctx, domain.VirtualAppointmentService)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	if price == nil || !price.IsActive {
		return nil, application.NewMisconfiguredError("virtual appointment pricing is not configured")
	}
	return s.discounts.Preview(ctx, code, price.Amount, userID)
}
