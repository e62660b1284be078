package services

import (
	"context"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
)

// HandleCallback processes a PSP server-to-server notification. The
// returned error is non-nil only for a bad signature or an unknown
// merchant transaction; any internal failure after authentication is
// logged and swallowed so the HTTP layer can acknowledge with 200 and
// stop the PSP from retrying. The reconciler picks up whatever a failed
// callback left behind.
func (s *PaymentService) HandleCallback(ctx context.Context, body []byte, authorization string) error {
	event, err := s.psp.VerifyCallback(body, authorization)
	if err != nil {
		return err
	}
	if event.MerchantOrderID == "" {
		return application.NewBadRequestError("callback is missing the merchant order id", nil)
	}

	payment, err := s.repos.Payments.FindByMerchantTxnID(ctx, event.MerchantOrderID)
	if err != nil {
		s.logger.Error("callback payment lookup failed",
			"merchant_transaction_id", event.MerchantOrderID,
			"error", err)
		return nil
	}
	if payment == nil {
		return application.NewNotFoundError("no payment for merchant transaction " + event.MerchantOrderID)
	}

	if payment.IsTerminal() {
		// Already settled by an earlier callback or poll.
		s.logger.Info("callback for settled payment ignored",
			"payment_id", payment.ID,
			"state", payment.Status)
		return nil
	}

	_, err = s.settle(ctx, payment.ID, upstreamObservation{
		State:         event.State,
		Code:          event.Code,
		TransactionID: event.TransactionID,
		Raw:           event.Raw,
		FromCallback:  true,
	})
	if err != nil {
		s.logger.Error("callback processing failed",
			"payment_id", payment.ID,
			"upstream_state", event.State,
			"error", err)
	}
	return nil
}
