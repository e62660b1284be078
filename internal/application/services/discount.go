package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
)

// DiscountService validates redeem codes and computes discounts for
// virtual-appointment orders.
type DiscountService struct {
	redeems application.RedeemRepository
	now     func() time.Time
}

func NewDiscountService(redeems application.RedeemRepository) *DiscountService {
	return &DiscountService{
		redeems: redeems,
		now:     time.Now,
	}
}

// DiscountResult is the outcome of applying or previewing a code.
type DiscountResult struct {
	Code           *domain.RedeemCode
	Usage          *domain.RedeemCodeUsage
	OriginalAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
}

var virtualScopes = []domain.Applicability{domain.ApplicableAll, domain.ApplicableVirtual}

// Apply runs the full gate chain, computes the discount, records the usage
// intent and bumps the code's usage counter. The usage row is linked to a
// payment later, once order creation succeeds.
func (s *DiscountService) Apply(ctx context.Context, code string, orderAmount decimal.Decimal, userID, appointmentID int64) (*DiscountResult, error) {
	result, rc, err := s.evaluate(ctx, code, orderAmount, userID)
	if err != nil {
		return nil, err
	}

	usage := &domain.RedeemCodeUsage{
		UserID:         userID,
		RedeemCodeID:   rc.ID,
		AppointmentID:  appointmentID,
		OriginalAmount: result.OriginalAmount,
		DiscountAmount: result.DiscountAmount,
		FinalAmount:    result.FinalAmount,
		Status:         domain.UsageApplied,
	}
	if err := s.redeems.CreateUsage(ctx, usage); err != nil {
		return nil, err
	}
	if err := s.redeems.IncrementUsageCount(ctx, rc.ID); err != nil {
		return nil, err
	}

	result.Usage = usage
	return result, nil
}

// Preview runs the same computation without persisting anything; it backs
// the read-only code check endpoint.
func (s *DiscountService) Preview(ctx context.Context, code string, orderAmount decimal.Decimal, userID int64) (*DiscountResult, error) {
	result, _, err := s.evaluate(ctx, code, orderAmount, userID)
	return result, err
}

func (s *DiscountService) evaluate(ctx context.Context, code string, orderAmount decimal.Decimal, userID int64) (*DiscountResult, *domain.RedeemCode, error) {
	normalized := domain.NormalizeCode(code)
	if normalized == "" {
		return nil, nil, domain.NewInvalidCodeError(code)
	}
	if !orderAmount.IsPositive() {
		return nil, nil, domain.NewInvalidAmountError(orderAmount)
	}

	rc, err := s.redeems.FindByCode(ctx, normalized, virtualScopes)
	if err != nil {
		return nil, nil, err
	}
	if rc == nil {
		return nil, nil, domain.NewInvalidCodeError(normalized)
	}

	if err := rc.ValidateAt(s.now()); err != nil {
		return nil, nil, err
	}

	if rc.UserUsageLimit != nil {
		used, err := s.redeems.CountUsages(ctx, userID, rc.ID)
		if err != nil {
			return nil, nil, err
		}
		if used >= *rc.UserUsageLimit {
			return nil, nil, domain.NewUserLimitExceededError(rc.Code)
		}
	}

	if err := rc.CheckMinOrder(orderAmount); err != nil {
		return nil, nil, err
	}

	discount := rc.DiscountFor(orderAmount)
	return &DiscountResult{
		Code:           rc,
		OriginalAmount: orderAmount.Round(2),
		DiscountAmount: discount,
		FinalAmount:    orderAmount.Round(2).Sub(discount),
	}, rc, nil
}
