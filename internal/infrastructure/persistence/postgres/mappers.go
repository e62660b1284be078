package postgres

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
)

// toDomainPayment maps a db model to the domain entity.
func toDomainPayment(m PaymentModel) (*domain.Payment, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse payment amount %q: %w", m.Amount, err)
	}
	refund, err := optionalDecimal(m.RefundAmount)
	if err != nil {
		return nil, fmt.Errorf("parse refund amount: %w", err)
	}

	return &domain.Payment{
		ID:                    m.ID,
		UserID:                m.UserID,
		AppointmentID:         m.AppointmentID,
		MerchantTransactionID: m.MerchantTransactionID,
		Amount:                amount,
		Currency:              m.Currency,
		Method:                domain.PaymentMethod(m.Method),
		Status:                domain.PaymentStatus(m.Status),
		PspOrderID:            m.PspOrderID,
		PspCallbackPayload:    m.PspCallbackPayload,
		PspStatusPayload:      m.PspStatusPayload,
		GatewayTransactionID:  m.GatewayTransactionID,
		PaymentURL:            m.PaymentURL,
		CreatedAt:             m.CreatedAt,
		InitiatedAt:           m.InitiatedAt,
		CompletedAt:           m.CompletedAt,
		FailedAt:              m.FailedAt,
		FailureReason:         m.FailureReason,
		FailureCode:           m.FailureCode,
		RefundAmount:          refund,
		RefundReason:          m.RefundReason,
		RefundedAt:            m.RefundedAt,
		IPAddress:             m.IPAddress,
		DeviceInfo:            m.DeviceInfo,
	}, nil
}

// toPaymentModel maps the domain entity to its db model.
func toPaymentModel(p *domain.Payment) *PaymentModel {
	return &PaymentModel{
		ID:                    p.ID,
		UserID:                p.UserID,
		AppointmentID:         p.AppointmentID,
		MerchantTransactionID: p.MerchantTransactionID,
		Amount:                p.Amount.StringFixed(2),
		Currency:              p.Currency,
		Method:                string(p.Method),
		Status:                string(p.Status),
		PspOrderID:            p.PspOrderID,
		PspCallbackPayload:    p.PspCallbackPayload,
		PspStatusPayload:      p.PspStatusPayload,
		GatewayTransactionID:  p.GatewayTransactionID,
		PaymentURL:            p.PaymentURL,
		CreatedAt:             p.CreatedAt,
		InitiatedAt:           p.InitiatedAt,
		CompletedAt:           p.CompletedAt,
		FailedAt:              p.FailedAt,
		FailureReason:         p.FailureReason,
		FailureCode:           p.FailureCode,
		RefundAmount:          decimalString(p.RefundAmount),
		RefundReason:          p.RefundReason,
		RefundedAt:            p.RefundedAt,
		IPAddress:             p.IPAddress,
		DeviceInfo:            p.DeviceInfo,
	}
}

func toDomainAppointment(m AppointmentModel) (*domain.Appointment, error) {
	amount, err := optionalDecimal(m.PaymentAmount)
	if err != nil {
		return nil, fmt.Errorf("parse appointment payment amount: %w", err)
	}
	return &domain.Appointment{
		ID:            m.ID,
		UserID:        m.UserID,
		Type:          domain.AppointmentType(m.Type),
		Status:        domain.AppointmentStatus(m.Status),
		PaymentStatus: domain.AppointmentPaymentStatus(m.PaymentStatus),
		PaymentID:     m.PaymentID,
		PaymentAmount: amount,
		ConfirmedAt:   m.ConfirmedAt,
	}, nil
}

func toDomainPrice(m PriceModel) (*domain.Price, error) {
	amount, err := decimal.NewFromString(m.Price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", m.Price, err)
	}
	return &domain.Price{
		ID:          m.ID,
		ServiceName: m.ServiceName,
		Amount:      amount,
		IsActive:    m.IsActive,
	}, nil
}

func toDomainRedeemCode(m RedeemCodeModel) (*domain.RedeemCode, error) {
	value, err := decimal.NewFromString(m.DiscountValue)
	if err != nil {
		return nil, fmt.Errorf("parse discount value %q: %w", m.DiscountValue, err)
	}
	maxDiscount, err := optionalDecimal(m.MaxDiscountAmount)
	if err != nil {
		return nil, fmt.Errorf("parse max discount: %w", err)
	}
	minOrder, err := optionalDecimal(m.MinOrderAmount)
	if err != nil {
		return nil, fmt.Errorf("parse min order: %w", err)
	}
	return &domain.RedeemCode{
		ID:                m.ID,
		Code:              m.Code,
		DiscountType:      domain.DiscountType(m.DiscountType),
		DiscountValue:     value,
		MaxDiscountAmount: maxDiscount,
		MinOrderAmount:    minOrder,
		ValidFrom:         m.ValidFrom,
		ValidUntil:        m.ValidUntil,
		IsActive:          m.IsActive,
		ApplicableFor:     domain.Applicability(m.ApplicableFor),
		UsageLimit:        m.UsageLimit,
		UsageCount:        m.UsageCount,
		UserUsageLimit:    m.UserUsageLimit,
	}, nil
}

func toDomainUsage(m UsageModel) (*domain.RedeemCodeUsage, error) {
	original, err := decimal.NewFromString(m.OriginalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse original amount %q: %w", m.OriginalAmount, err)
	}
	discount, err := decimal.NewFromString(m.DiscountAmount)
	if err != nil {
		return nil, fmt.Errorf("parse discount amount %q: %w", m.DiscountAmount, err)
	}
	final, err := decimal.NewFromString(m.FinalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse final amount %q: %w", m.FinalAmount, err)
	}
	return &domain.RedeemCodeUsage{
		ID:             m.ID,
		UserID:         m.UserID,
		RedeemCodeID:   m.RedeemCodeID,
		AppointmentID:  m.AppointmentID,
		OriginalAmount: original,
		DiscountAmount: discount,
		FinalAmount:    final,
		Status:         domain.UsageStatus(m.Status),
		PaymentID:      m.PaymentID,
		CreatedAt:      m.CreatedAt,
	}, nil
}

func toDomainJob(m JobModel) *domain.PaymentJob {
	return &domain.PaymentJob{
		ID:          m.ID,
		PaymentID:   m.PaymentID,
		RunAt:       m.RunAt,
		Attempts:    m.Attempts,
		MaxAttempts: m.MaxAttempts,
		Status:      domain.JobStatus(m.Status),
		LastError:   m.LastError,
		CreatedAt:   m.CreatedAt,
	}
}

func optionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}
