package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/persistence"
)

// RedeemRepository persists discount codes and their usages. Counter
// updates are atomic SQL increments so concurrent redemptions never
// read-modify-write.
type RedeemRepository struct {
	q persistence.Executor
}

func NewRedeemRepository(db *persistence.DB) *RedeemRepository {
	return &RedeemRepository{q: db.Pool}
}

func (r *RedeemRepository) FindByCode(ctx context.Context, code string, scopes []domain.Applicability) (*domain.RedeemCode, error) {
	query := `
		SELECT id, code, discount_type, discount_value::text,
		       max_discount_amount::text, min_order_amount::text,
		       valid_from, valid_until, is_active, applicable_for,
		       usage_limit, usage_count, user_usage_limit
		FROM redeem_codes
		WHERE code = $1 AND applicable_for = ANY($2)
	`

	scopeStrings := make([]string, len(scopes))
	for i, s := range scopes {
		scopeStrings[i] = string(s)
	}

	var m RedeemCodeModel
	err := r.q.QueryRow(ctx, query, code, scopeStrings).Scan(
		&m.ID, &m.Code, &m.DiscountType, &m.DiscountValue,
		&m.MaxDiscountAmount, &m.MinOrderAmount,
		&m.ValidFrom, &m.ValidUntil, &m.IsActive, &m.ApplicableFor,
		&m.UsageLimit, &m.UsageCount, &m.UserUsageLimit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan redeem code: %w", err)
	}
	return toDomainRedeemCode(m)
}

// CountUsages counts a user's non-cancelled applications of a code.
func (r *RedeemRepository) CountUsages(ctx context.Context, userID, codeID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM redeem_code_usages
		WHERE user_id = $1 AND redeem_code_id = $2 AND status <> 'cancelled'
	`

	var count int
	if err := r.q.QueryRow(ctx, query, userID, codeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count redeem usages: %w", err)
	}
	return count, nil
}

func (r *RedeemRepository) CreateUsage(ctx context.Context, u *domain.RedeemCodeUsage) error {
	query := `
		INSERT INTO redeem_code_usages (
			user_id, redeem_code_id, appointment_id,
			original_amount, discount_amount, final_amount,
			status, payment_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		u.UserID, u.RedeemCodeID, u.AppointmentID,
		u.OriginalAmount.StringFixed(2),
		u.DiscountAmount.StringFixed(2),
		u.FinalAmount.StringFixed(2),
		string(u.Status),
		u.PaymentID,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return domain.NewCodeNotValidError("redeem code already applied to this appointment")
		}
		return fmt.Errorf("failed to create redeem usage: %w", err)
	}
	return nil
}

func (r *RedeemRepository) LinkUsageToPayment(ctx context.Context, usageID int64, paymentID uuid.UUID) error {
	query := `UPDATE redeem_code_usages SET payment_id = $1 WHERE id = $2`

	result, err := r.q.Exec(ctx, query, paymentID, usageID)
	if err != nil {
		return fmt.Errorf("failed to link redeem usage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("redeem usage %d not found", usageID)
	}
	return nil
}

func (r *RedeemRepository) IncrementUsageCount(ctx context.Context, codeID int64) error {
	query := `UPDATE redeem_codes SET usage_count = usage_count + 1 WHERE id = $1`

	if _, err := r.q.Exec(ctx, query, codeID); err != nil {
		return fmt.Errorf("failed to increment usage count: %w", err)
	}
	return nil
}

// FindUsageForPayment loads the usage row linked to a payment attempt.
func (r *RedeemRepository) FindUsageForPayment(ctx context.Context, paymentID uuid.UUID) (*domain.RedeemCodeUsage, error) {
	query := `
		SELECT id, user_id, redeem_code_id, appointment_id,
		       original_amount::text, discount_amount::text, final_amount::text,
		       status, payment_id, created_at
		FROM redeem_code_usages
		WHERE payment_id = $1
	`

	var m UsageModel
	err := r.q.QueryRow(ctx, query, paymentID).Scan(
		&m.ID, &m.UserID, &m.RedeemCodeID, &m.AppointmentID,
		&m.OriginalAmount, &m.DiscountAmount, &m.FinalAmount,
		&m.Status, &m.PaymentID, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan redeem usage: %w", err)
	}
	return toDomainUsage(m)
}

// CancelUsage releases a usage row that never got a payment attached,
// which happens when the payment insert itself loses a race.
func (r *RedeemRepository) CancelUsage(ctx context.Context, usageID int64) error {
	cancel := `
		UPDATE redeem_code_usages
		SET status = 'cancelled'
		WHERE id = $1 AND status = 'applied'
		RETURNING redeem_code_id
	`

	var codeID int64
	err := r.q.QueryRow(ctx, cancel, usageID).Scan(&codeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to cancel redeem usage: %w", err)
	}
	return r.releaseUsageCount(ctx, codeID)
}

// CancelUsageForPayment releases the usage attached to a payment that
// reached a terminal failure: the row moves to cancelled and the code's
// usage_count is handed back, both in the caller's transaction.
func (r *RedeemRepository) CancelUsageForPayment(ctx context.Context, paymentID uuid.UUID) error {
	cancel := `
		UPDATE redeem_code_usages
		SET status = 'cancelled'
		WHERE payment_id = $1 AND status = 'applied'
		RETURNING redeem_code_id
	`

	var codeID int64
	err := r.q.QueryRow(ctx, cancel, paymentID).Scan(&codeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to cancel redeem usage: %w", err)
	}
	return r.releaseUsageCount(ctx, codeID)
}

func (r *RedeemRepository) releaseUsageCount(ctx context.Context, codeID int64) error {
	release := `
		UPDATE redeem_codes
		SET usage_count = GREATEST(usage_count - 1, 0)
		WHERE id = $1
	`
	if _, err := r.q.Exec(ctx, release, codeID); err != nil {
		return fmt.Errorf("failed to release usage count: %w", err)
	}
	return nil
}
