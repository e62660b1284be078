package rest

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
)

// PaymentView is the wire shape of a payment record.
type PaymentView struct {
	ID                    uuid.UUID        `json:"id"`
	UserID                int64            `json:"userId"`
	AppointmentID         int64            `json:"appointmentId"`
	MerchantTransactionID string           `json:"merchantTransactionId"`
	Amount                decimal.Decimal  `json:"amount"`
	Currency              string           `json:"currency"`
	Method                string           `json:"method"`
	Status                string           `json:"status"`
	GatewayTransactionID  *string          `json:"gatewayTransactionId,omitempty"`
	PaymentURL            *string          `json:"paymentUrl,omitempty"`
	CreatedAt             time.Time        `json:"createdAt"`
	InitiatedAt           *time.Time       `json:"initiatedAt,omitempty"`
	CompletedAt           *time.Time       `json:"completedAt,omitempty"`
	FailedAt              *time.Time       `json:"failedAt,omitempty"`
	FailureReason         *string          `json:"failureReason,omitempty"`
	FailureCode           *string          `json:"failureCode,omitempty"`
	RefundAmount          *decimal.Decimal `json:"refundAmount,omitempty"`
	RefundReason          *string          `json:"refundReason,omitempty"`
	RefundedAt            *time.Time       `json:"refundedAt,omitempty"`
}

func toPaymentView(p *domain.Payment) PaymentView {
	return PaymentView{
		ID:                    p.ID,
		UserID:                p.UserID,
		AppointmentID:         p.AppointmentID,
		MerchantTransactionID: p.MerchantTransactionID,
		Amount:                p.Amount,
		Currency:              p.Currency,
		Method:                string(p.Method),
		Status:                string(p.Status),
		GatewayTransactionID:  p.GatewayTransactionID,
		PaymentURL:            p.PaymentURL,
		CreatedAt:             p.CreatedAt,
		InitiatedAt:           p.InitiatedAt,
		CompletedAt:           p.CompletedAt,
		FailedAt:              p.FailedAt,
		FailureReason:         p.FailureReason,
		FailureCode:           p.FailureCode,
		RefundAmount:          p.RefundAmount,
		RefundReason:          p.RefundReason,
		RefundedAt:            p.RefundedAt,
	}
}

func toPaymentViews(payments []*domain.Payment) []PaymentView {
	views := make([]PaymentView, len(payments))
	for i, p := range payments {
		views[i] = toPaymentView(p)
	}
	return views
}

// PendingView is the wire shape of a pending appointment join row.
type PendingView struct {
	UserID        int64            `json:"userId"`
	AppointmentID int64            `json:"appointmentId"`
	PaymentID     *uuid.UUID       `json:"paymentId,omitempty"`
	PaymentStatus *string          `json:"paymentStatus,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
}

func toPendingViews(rows []application.PendingPayment) []PendingView {
	views := make([]PendingView, len(rows))
	for i, row := range rows {
		views[i] = PendingView{
			UserID:        row.UserID,
			AppointmentID: row.AppointmentID,
			PaymentID:     row.PaymentID,
			Amount:        row.Amount,
		}
		if row.PaymentStatus != nil {
			s := string(*row.PaymentStatus)
			views[i].PaymentStatus = &s
		}
	}
	return views
}
