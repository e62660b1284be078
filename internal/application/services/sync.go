package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/phonepe"
)

// AutoCheck is the reconciler's poll: fetch upstream status for a still
// in-flight payment and settle it under the same rules as a callback. A
// 404-class answer means the PSP has not seen the order; the reconciler
// is not authoritative there and leaves the payment untouched.
func (s *PaymentService) AutoCheck(ctx context.Context, paymentID uuid.UUID) error {
	payment, err := s.repos.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return application.NewNotFoundError("payment not found")
	}
	if payment.IsTerminal() {
		return nil
	}

	status, err := s.psp.OrderStatus(ctx, payment.MerchantTransactionID)
	if err != nil {
		if errors.Is(err, phonepe.ErrPendingUnseen) {
			s.logger.Info("payment not yet visible upstream",
				"payment_id", payment.ID,
				"merchant_transaction_id", payment.MerchantTransactionID)
			return nil
		}
		return err
	}

	_, err = s.settle(ctx, payment.ID, observationFromStatus(status))
	return err
}

// ManualSync forces a status fetch and returns a diagnostic envelope.
// Unlike AutoCheck it runs even for terminal payments; the absorbing
// rule makes the settle a no-op, so repeated syncs are safe.
func (s *PaymentService) ManualSync(ctx context.Context, paymentID uuid.UUID) (*SyncResult, error) {
	payment, err := s.repos.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, application.NewNotFoundError("payment not found")
	}

	status, err := s.psp.OrderStatus(ctx, payment.MerchantTransactionID)
	if err != nil {
		if errors.Is(err, phonepe.ErrPendingUnseen) {
			return &SyncResult{
				PaymentID: payment.ID,
				OldState:  payment.Status,
				NewState:  payment.Status,
				Changed:   false,
			}, nil
		}
		return nil, err
	}

	out, err := s.settle(ctx, payment.ID, observationFromStatus(status))
	if err != nil {
		return nil, err
	}
	return &SyncResult{
		PaymentID:     out.Payment.ID,
		OldState:      out.OldState,
		NewState:      out.Payment.Status,
		UpstreamState: status.State,
		Changed:       out.Changed,
	}, nil
}

// CheckStatus is the user-facing read-through: terminal payments answer
// from the database, in-flight ones consult the PSP once and settle
// before answering.
func (s *PaymentService) CheckStatus(ctx context.Context, paymentID uuid.UUID, userID int64) (*StatusView, error) {
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

	if payment.IsTerminal() {
		return statusView(payment), nil
	}

	status, err := s.psp.OrderStatus(ctx, payment.MerchantTransactionID)
	if err != nil {
		if errors.Is(err, phonepe.ErrPendingUnseen) {
			return statusView(payment), nil
		}
		return nil, err
	}

	out, err := s.settle(ctx, payment.ID, observationFromStatus(status))
	if err != nil {
		return nil, err
	}
	return statusView(out.Payment), nil
}

func observationFromStatus(status *phonepe.StatusResponse) upstreamObservation {
	return upstreamObservation{
		State:         status.State,
		Code:          status.Code,
		Message:       status.Message,
		TransactionID: status.TransactionID,
		Raw:           status.Raw,
	}
}

func statusView(p *domain.Payment) *StatusView {
	view := &StatusView{
		PaymentID:             p.ID,
		MerchantTransactionID: p.MerchantTransactionID,
		Status:                p.Status,
		Amount:                p.Amount,
		Currency:              p.Currency,
		FailureReason:         p.FailureReason,
	}
	if !p.IsTerminal() {
		view.PaymentURL = p.PaymentURL
	}
	return view
}
