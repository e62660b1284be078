// Package services holds the payment orchestration: initiation, callback
// and poll convergence, manual sync and the reporting queries.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
)

const defaultReconcileDelay = 120 * time.Second

// PaymentService coordinates payments for virtual appointments. All state
// changes run inside a single database transaction; the callback, the
// scheduled poll and manual syncs race safely because terminal states
// absorb every later transition.
type PaymentService struct {
	tx        application.TransactionCoordinator
	repos     application.Repositories
	prices    application.PriceRepository
	psp       application.PSPClient
	discounts *DiscountService
	events    application.EventPublisher

	reconcileDelay time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewPaymentService wires the orchestrator. events may be nil to disable
// publishing; repos must be pool-bound (the coordinator supplies the
// transaction-bound set per call).
func NewPaymentService(
	tx application.TransactionCoordinator,
	repos application.Repositories,
	prices application.PriceRepository,
	psp application.PSPClient,
	discounts *DiscountService,
	events application.EventPublisher,
	reconcileDelay time.Duration,
	logger *slog.Logger,
) *PaymentService {
	if reconcileDelay <= 0 {
		reconcileDelay = defaultReconcileDelay
	}
	return &PaymentService{
		tx:             tx,
		repos:          repos,
		prices:         prices,
		psp:            psp,
		discounts:      discounts,
		events:         events,
		reconcileDelay: reconcileDelay,
		logger:         logger,
		now:            time.Now,
	}
}

// publish emits a state-change event after commit. Failures are logged
// and swallowed; eventing never affects payment outcomes.
func (s *PaymentService) publish(ctx context.Context, ev application.PaymentEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("payment event publish failed",
			"payment_id", ev.PaymentID,
			"state", ev.State,
			"error", err)
	}
}
