package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
)

// upstreamObservation is one PSP report about a payment, whether it
// arrived via callback, scheduled poll or user-triggered status check.
type upstreamObservation struct {
	State         string
	Code          string
	Message       string
	TransactionID string
	Raw           []byte

	// FromCallback selects which opaque payload column the snapshot
	// lands in.
	FromCallback bool
}

// settleOutcome describes what a settle attempt actually did.
type settleOutcome struct {
	Payment  *domain.Payment
	OldState domain.PaymentStatus
	Changed  bool
}

// settle folds an upstream observation into a payment. The row is
// re-read FOR UPDATE inside the transaction; if another writer already
// drove it terminal this is a no-op, which is what makes concurrent
// callback and poll deliveries converge. Payment, appointment and
// redeem-code usage all commit or roll back together.
func (s *PaymentService) settle(ctx context.Context, paymentID uuid.UUID, obs upstreamObservation) (*settleOutcome, error) {
	var out settleOutcome

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos application.Repositories) error {
		row, err := repos.Payments.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if row == nil {
			return application.NewNotFoundError("payment not found")
		}

		out.Payment = row
		out.OldState = row.Status

		if row.IsTerminal() {
			// Lost the race; the winner's state stands.
			return nil
		}

		if obs.FromCallback {
			row.PspCallbackPayload = obs.Raw
		} else if len(obs.Raw) > 0 {
			row.PspStatusPayload = obs.Raw
		}

		now := s.now()
		target := MapUpstreamState(obs.State)
		switch target {
		case domain.StatusSuccess:
			txnID := obs.TransactionID
			if err := row.MarkSuccess(&txnID, now); err != nil {
				return err
			}
		case domain.StatusProcessing:
			if row.Status != domain.StatusProcessing {
				if err := row.MarkProcessing(); err != nil {
					return err
				}
			}
		default:
			reason := obs.Message
			if reason == "" {
				reason = "payment " + string(target) + " at provider"
			}
			if err := row.MarkFailed(target, reason, obs.Code, now); err != nil {
				return err
			}
		}

		if err := repos.Payments.Update(ctx, row); err != nil {
			return err
		}

		appointment, err := repos.Appointments.FindByIDForUpdate(ctx, row.AppointmentID)
		if err != nil {
			return err
		}
		if appointment != nil {
			appointment.ApplyPaymentOutcome(row, now)
			if err := repos.Appointments.Update(ctx, appointment); err != nil {
				return err
			}
		}

		switch row.Status {
		case domain.StatusFailed, domain.StatusCancelled, domain.StatusExpired:
			if err := repos.Redeems.CancelUsageForPayment(ctx, row.ID); err != nil {
				return err
			}
		}

		out.Changed = row.Status != out.OldState
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Changed {
		s.logger.Info("payment state changed",
			"payment_id", out.Payment.ID,
			"from", out.OldState,
			"to", out.Payment.Status,
			"upstream_state", obs.State)
		s.publish(ctx, application.PaymentEvent{
			PaymentID:             out.Payment.ID.String(),
			MerchantTransactionID: out.Payment.MerchantTransactionID,
			AppointmentID:         out.Payment.AppointmentID,
			UserID:                out.Payment.UserID,
			State:                 string(out.Payment.Status),
			PreviousState:         string(out.OldState),
			Timestamp:             s.now(),
		})
	}

	return &out, nil
}
