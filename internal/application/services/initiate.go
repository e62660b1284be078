package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/phonepe"
)

// Initiate starts a payment for a pending virtual appointment. Calling it
// again while an attempt is in flight replays the original payment URL.
func (s *PaymentService) Initiate(ctx context.Context, cmd InitiateCommand) (*InitiateResult, error) {
	return s.start(ctx, cmd)
}

// Complete is the retry entry point: the same orchestration as Initiate.
// A prior terminal-failed attempt is simply left behind and a fresh
// Payment row opened; a prior success is still a conflict.
func (s *PaymentService) Complete(ctx context.Context, cmd InitiateCommand) (*InitiateResult, error) {
	return s.start(ctx, cmd)
}

func (s *PaymentService) start(ctx context.Context, cmd InitiateCommand) (*InitiateResult, error) {
	if cmd.AppointmentID <= 0 {
		return nil, application.NewBadRequestError("appointmentId is required", nil)
	}
	method := cmd.Method
	if method == "" {
		method = domain.MethodPhonePe
	}
	if !domain.ValidMethod(method) {
		return nil, application.NewBadRequestError(
			fmt.Sprintf("unsupported payment method: %s", cmd.Method), nil)
	}

	appointment, err := s.repos.Appointments.FindByID(ctx, cmd.AppointmentID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	if appointment == nil {
		return nil, application.NewNotFoundError(fmt.Sprintf("appointment %d not found", cmd.AppointmentID))
	}
	if appointment.UserID != cmd.UserID {
		return nil, application.NewForbiddenError("appointment belongs to another user")
	}
	if appointment.Type != domain.AppointmentVirtual {
		return nil, application.NewBadRequestError("payments are only accepted for virtual appointments", nil)
	}
	if appointment.Status != domain.AppointmentPending {
		return nil, application.NewBadRequestError(
			fmt.Sprintf("appointment is %s, expected pending", appointment.Status), nil)
	}

	price, err := s.prices.FindByService(ctx, domain.VirtualAppointmentService)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	if price == nil || !price.IsActive {
		return nil, application.NewMisconfiguredError("virtual appointment pricing is not configured")
	}

	existing, err := s.repos.Payments.FindActiveForAppointment(ctx, cmd.AppointmentID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	if existing != nil {
		if existing.Status == domain.StatusSuccess {
			return nil, application.NewAlreadyPaidError(cmd.AppointmentID)
		}
		// In-flight attempt: replay its URL unchanged.
		return s.replayResult(ctx, existing), nil
	}

	orderAmount := price.Amount
	var discount *DiscountResult
	if cmd.RedeemCode != "" {
		discount, err = s.discounts.Apply(ctx, cmd.RedeemCode, orderAmount, cmd.UserID, cmd.AppointmentID)
		if err != nil {
			return nil, err
		}
	}

	finalAmount := orderAmount.Round(2)
	if discount != nil {
		finalAmount = discount.FinalAmount
	}

	merchantTxnID := s.psp.MerchantTransactionID(cmd.UserID, cmd.AppointmentID)
	payment, err := domain.NewPayment(cmd.UserID, cmd.AppointmentID, merchantTxnID, finalAmount, method)
	if err != nil {
		return nil, err
	}
	if cmd.IPAddress != "" {
		ip := cmd.IPAddress
		payment.IPAddress = &ip
	}
	if cmd.DeviceInfo != "" {
		device := cmd.DeviceInfo
		payment.DeviceInfo = &device
	}

	if err := s.repos.Payments.Create(ctx, payment); err != nil {
		// The active-per-appointment index rejects the insert when a
		// concurrent initiate won the race after our existence check.
		if errors.Is(err, application.ErrDuplicateActivePayment) {
			return s.recoverLostInitiate(ctx, cmd, discount)
		}
		return nil, application.NewInternalError(err)
	}
	if discount != nil && discount.Usage != nil {
		if err := s.repos.Redeems.LinkUsageToPayment(ctx, discount.Usage.ID, payment.ID); err != nil {
			return nil, application.NewInternalError(err)
		}
	}

	order, orderErr := s.psp.CreateOrder(ctx, phonepe.OrderRequest{
		MerchantOrderID: merchantTxnID,
		AmountPaise:     phonepe.Paise(finalAmount),
		Message:         "Virtual appointment consultation fee",
		UDF1:            fmt.Sprintf("user:%d", cmd.UserID),
		UDF2:            fmt.Sprintf("appointment:%d", cmd.AppointmentID),
	})
	if orderErr != nil {
		s.failInitiation(ctx, payment, orderErr)
		return nil, application.NewInitiationFailedError(orderErr)
	}

	payment.PspOrderID = &order.OrderID
	payment.PaymentURL = &order.RedirectURL
	if snapshot, err := json.Marshal(order); err == nil {
		payment.PspStatusPayload = snapshot
	}
	if err := s.repos.Payments.Update(ctx, payment); err != nil {
		return nil, application.NewInternalError(err)
	}

	if err := s.repos.Jobs.Enqueue(ctx, payment.ID, s.now().Add(s.reconcileDelay)); err != nil {
		// The delayed poll is a safety net; the callback path still works.
		s.logger.Warn("failed to enqueue reconcile job",
			"payment_id", payment.ID,
			"error", err)
	}

	s.logger.Info("payment initiated",
		"payment_id", payment.ID,
		"appointment_id", cmd.AppointmentID,
		"merchant_transaction_id", merchantTxnID,
		"amount", finalAmount.StringFixed(2),
		"method", method)

	result := &InitiateResult{
		PaymentID:             payment.ID,
		PaymentURL:            order.RedirectURL,
		OriginalAmount:        orderAmount.Round(2),
		DiscountAmount:        orderAmount.Round(2).Sub(finalAmount),
		FinalAmount:           finalAmount,
		Currency:              payment.Currency,
		MerchantTransactionID: merchantTxnID,
	}
	if discount != nil {
		result.RedeemCode = &AppliedCode{
			Code:           discount.Code.Code,
			DiscountType:   string(discount.Code.DiscountType),
			DiscountAmount: discount.DiscountAmount,
		}
	}
	return result, nil
}

// failInitiation moves a freshly created payment to failed after the PSP
// rejected order creation, releasing the redeem-code usage in the same
// transaction.
func (s *PaymentService) failInitiation(ctx context.Context, payment *domain.Payment, cause error) {
	reason := cause.Error()
	code := ""
	if oe, ok := phonepe.IsOrderError(cause); ok {
		reason = oe.Message
		code = oe.Code
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos application.Repositories) error {
		row, err := repos.Payments.FindByIDForUpdate(ctx, payment.ID)
		if err != nil {
			return err
		}
		if row == nil || row.IsTerminal() {
			return nil
		}
		if err := row.MarkFailed(domain.StatusFailed, reason, code, s.now()); err != nil {
			return err
		}
		if err := repos.Payments.Update(ctx, row); err != nil {
			return err
		}
		if err := repos.Redeems.CancelUsageForPayment(ctx, row.ID); err != nil {
			return err
		}
		payment.Status = row.Status
		return nil
	})
	if err != nil {
		s.logger.Error("failed to record initiation failure",
			"payment_id", payment.ID,
			"error", err)
	}
}

// recoverLostInitiate runs after our insert lost the race to a concurrent
// attempt: the usage applied for this attempt never got a payment, so it is
// released, and the winner's attempt is replayed instead.
func (s *PaymentService) recoverLostInitiate(ctx context.Context, cmd InitiateCommand, discount *DiscountResult) (*InitiateResult, error) {
	if discount != nil && discount.Usage != nil {
		if err := s.repos.Redeems.CancelUsage(ctx, discount.Usage.ID); err != nil {
			s.logger.Warn("failed to release redeem usage after losing initiate race",
				"usage_id", discount.Usage.ID,
				"error", err)
		}
	}

	winner, err := s.repos.Payments.FindActiveForAppointment(ctx, cmd.AppointmentID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	if winner == nil {
		// The winner settled or failed between the insert and this read;
		// let the client retry onto a clean slate.
		return nil, application.NewInternalError(application.ErrDuplicateActivePayment)
	}
	if winner.Status == domain.StatusSuccess {
		return nil, application.NewAlreadyPaidError(cmd.AppointmentID)
	}
	return s.replayResult(ctx, winner), nil
}

// replayResult answers a repeat initiate with the in-flight attempt and its
// original amount breakdown, read back from the linked redeem usage.
func (s *PaymentService) replayResult(ctx context.Context, p *domain.Payment) *InitiateResult {
	result := &InitiateResult{
		PaymentID:             p.ID,
		OriginalAmount:        p.Amount,
		DiscountAmount:        decimal.Zero,
		FinalAmount:           p.Amount,
		Currency:              p.Currency,
		MerchantTransactionID: p.MerchantTransactionID,
		Replayed:              true,
	}
	if p.PaymentURL != nil {
		result.PaymentURL = *p.PaymentURL
	}

	usage, err := s.repos.Redeems.FindUsageForPayment(ctx, p.ID)
	if err != nil {
		s.logger.Warn("failed to load redeem usage for replay",
			"payment_id", p.ID,
			"error", err)
		return result
	}
	if usage != nil && usage.Status == domain.UsageApplied {
		result.OriginalAmount = usage.OriginalAmount
		result.DiscountAmount = usage.DiscountAmount
		result.FinalAmount = usage.FinalAmount
	}
	return result
}
