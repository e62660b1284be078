// Package postgres implements the application repositories with raw SQL
// over pgx. Repositories run on the pool by default; the transaction
// coordinator hands out copies bound to a single pgx.Tx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/persistence"
)

const paymentColumns = `
	id, user_id, appointment_id, merchant_transaction_id,
	amount::text, currency, method, status,
	psp_order_id, psp_callback_payload, psp_status_payload,
	gateway_transaction_id, payment_url,
	created_at, initiated_at, completed_at, failed_at,
	failure_reason, failure_code,
	refund_amount::text, refund_reason, refunded_at,
	ip_address, device_info`

type PaymentRepository struct {
	q persistence.Executor
}

func NewPaymentRepository(db *persistence.DB) *PaymentRepository {
	return &PaymentRepository{q: db.Pool}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, user_id, appointment_id, merchant_transaction_id,
			amount, currency, method, status,
			psp_order_id, psp_callback_payload, psp_status_payload,
			gateway_transaction_id, payment_url,
			created_at, initiated_at, completed_at, failed_at,
			failure_reason, failure_code,
			refund_amount, refund_reason, refunded_at,
			ip_address, device_info
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
	`

	m := toPaymentModel(payment)
	_, err := r.q.Exec(ctx, query,
		m.ID, m.UserID, m.AppointmentID, m.MerchantTransactionID,
		m.Amount, m.Currency, m.Method, m.Status,
		m.PspOrderID, m.PspCallbackPayload, m.PspStatusPayload,
		m.GatewayTransactionID, m.PaymentURL,
		m.CreatedAt, m.InitiatedAt, m.CompletedAt, m.FailedAt,
		m.FailureReason, m.FailureCode,
		m.RefundAmount, m.RefundReason, m.RefundedAt,
		m.IPAddress, m.DeviceInfo,
	)
	if err != nil {
		// Both unique constraints on payments (active-per-appointment,
		// merchant txn id) mean a concurrent attempt won the insert.
		if persistence.IsUniqueViolation(err) {
			return application.ErrDuplicateActivePayment
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1,
			psp_order_id = $2, psp_callback_payload = $3, psp_status_payload = $4,
			gateway_transaction_id = $5, payment_url = $6,
			completed_at = $7, failed_at = $8,
			failure_reason = $9, failure_code = $10,
			refund_amount = $11, refund_reason = $12, refunded_at = $13
		WHERE id = $14
	`

	m := toPaymentModel(payment)
	result, err := r.q.Exec(ctx, query,
		m.Status,
		m.PspOrderID, m.PspCallbackPayload, m.PspStatusPayload,
		m.GatewayTransactionID, m.PaymentURL,
		m.CompletedAt, m.FailedAt,
		m.FailureReason, m.FailureCode,
		m.RefundAmount, m.RefundReason, m.RefundedAt,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s not found", payment.ID)
	}
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPayment(r.q.QueryRow(ctx, query, id))
}

// FindByIDForUpdate retrieves a payment with a row-level lock. Only
// meaningful inside a transaction.
func (r *PaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	return scanPayment(r.q.QueryRow(ctx, query, id))
}

func (r *PaymentRepository) FindByMerchantTxnID(ctx context.Context, merchantTxnID string) (*domain.Payment, error) {
	query := `SELECT` + paymentColumns + ` FROM payments WHERE merchant_transaction_id = $1`
	return scanPayment(r.q.QueryRow(ctx, query, merchantTxnID))
}

// FindActiveForAppointment returns the payment currently occupying the
// appointment, if any: in flight or succeeded. At most one exists.
func (r *PaymentRepository) FindActiveForAppointment(ctx context.Context, appointmentID int64) (*domain.Payment, error) {
	query := `SELECT` + paymentColumns + `
		FROM payments
		WHERE appointment_id = $1
		  AND status IN ('pending', 'initiated', 'processing', 'success')
		ORDER BY created_at DESC
		LIMIT 1`
	return scanPayment(r.q.QueryRow(ctx, query, appointmentID))
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64, f application.PaymentFilter) ([]*domain.Payment, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT` + paymentColumns + ` FROM payments WHERE user_id = $1`)
	args := []any{userID}

	if f.Status != nil {
		args = append(args, string(*f.Status))
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	sb.WriteString(" ORDER BY created_at DESC")
	appendPage(&sb, &args, f.Page)

	return r.list(ctx, sb.String(), args)
}

func (r *PaymentRepository) ListAdmin(ctx context.Context, f application.AdminPaymentFilter) ([]*domain.Payment, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT` + paymentColumns + ` FROM payments WHERE 1=1`)
	var args []any

	if f.Status != nil {
		args = append(args, string(*f.Status))
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if f.Method != nil {
		args = append(args, string(*f.Method))
		fmt.Fprintf(&sb, " AND method = $%d", len(args))
	}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		fmt.Fprintf(&sb, " AND user_id = $%d", len(args))
	}
	if f.CreatedFrom != nil {
		args = append(args, *f.CreatedFrom)
		fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
	}
	if f.CreatedTo != nil {
		args = append(args, *f.CreatedTo)
		fmt.Fprintf(&sb, " AND created_at < $%d", len(args))
	}
	sb.WriteString(" ORDER BY created_at DESC")
	appendPage(&sb, &args, f.Page)

	return r.list(ctx, sb.String(), args)
}

func (r *PaymentRepository) SumRevenue(ctx context.Context, from, to time.Time) (application.RevenueStats, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::text, COUNT(*)
		FROM payments
		WHERE status = 'success' AND completed_at >= $1 AND completed_at < $2
	`

	var total string
	var stats application.RevenueStats
	if err := r.q.QueryRow(ctx, query, from, to).Scan(&total, &stats.TotalTransactions); err != nil {
		return stats, fmt.Errorf("sum revenue: %w", err)
	}
	revenue, err := decimal.NewFromString(total)
	if err != nil {
		return stats, fmt.Errorf("parse revenue total %q: %w", total, err)
	}
	stats.TotalRevenue = revenue
	return stats, nil
}

func (r *PaymentRepository) AggregateByState(ctx context.Context, from, to time.Time) ([]application.StateAggregate, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0)::text
		FROM payments
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY status
		ORDER BY status
	`

	rows, err := r.q.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate by state: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (application.StateAggregate, error) {
		var agg application.StateAggregate
		var status, total string
		if err := row.Scan(&status, &agg.Count, &total); err != nil {
			return agg, err
		}
		agg.Status = domain.PaymentStatus(status)
		agg.Total, err = decimal.NewFromString(total)
		return agg, err
	})
}

func (r *PaymentRepository) AggregateByMethod(ctx context.Context, from, to time.Time) ([]application.MethodAggregate, error) {
	query := `
		SELECT method, COUNT(*)
		FROM payments
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY method
		ORDER BY method
	`

	rows, err := r.q.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate by method: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (application.MethodAggregate, error) {
		var agg application.MethodAggregate
		var method string
		err := row.Scan(&method, &agg.Count)
		agg.Method = domain.PaymentMethod(method)
		return agg, err
	})
}

// PendingByUser joins pending virtual appointments with their latest
// non-successful payment attempt, if one exists. A nil userID returns
// all users; a non-nil one scopes the listing to that payer.
func (r *PaymentRepository) PendingByUser(ctx context.Context, userID *int64) ([]application.PendingPayment, error) {
	query := `
		SELECT a.user_id, a.id, p.id, p.status, p.amount::text
		FROM appointments a
		LEFT JOIN LATERAL (
			SELECT id, status, amount
			FROM payments
			WHERE appointment_id = a.id AND status <> 'success'
			ORDER BY created_at DESC
			LIMIT 1
		) p ON TRUE
		WHERE a.type = 'virtual' AND a.status = 'pending'
		  AND ($1::bigint IS NULL OR a.user_id = $1)
		ORDER BY a.id
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query pending payments: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (application.PendingPayment, error) {
		var pp application.PendingPayment
		var status, amount *string
		if err := row.Scan(&pp.UserID, &pp.AppointmentID, &pp.PaymentID, &status, &amount); err != nil {
			return pp, err
		}
		if status != nil {
			s := domain.PaymentStatus(*status)
			pp.PaymentStatus = &s
		}
		pp.Amount, err = optionalDecimal(amount)
		return pp, err
	})
}

func (r *PaymentRepository) list(ctx context.Context, query string, args []any) ([]*domain.Payment, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Payment, error) {
		m, err := scanPaymentModel(row)
		if err != nil {
			return nil, err
		}
		return toDomainPayment(*m)
	})
}

func appendPage(sb *strings.Builder, args *[]any, page application.Page) {
	limit := page.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	*args = append(*args, limit)
	fmt.Fprintf(sb, " LIMIT $%d", len(*args))
	if page.Offset > 0 {
		*args = append(*args, page.Offset)
		fmt.Fprintf(sb, " OFFSET $%d", len(*args))
	}
}

// scanPayment converts a single row into a domain Payment. A missing row
// maps to (nil, nil); callers translate that into their own not-found.
func scanPayment(row pgx.Row) (*domain.Payment, error) {
	m, err := scanPaymentModel(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return toDomainPayment(*m)
}

func scanPaymentModel(row pgx.Row) (*PaymentModel, error) {
	var m PaymentModel
	err := row.Scan(
		&m.ID, &m.UserID, &m.AppointmentID, &m.MerchantTransactionID,
		&m.Amount, &m.Currency, &m.Method, &m.Status,
		&m.PspOrderID, &m.PspCallbackPayload, &m.PspStatusPayload,
		&m.GatewayTransactionID, &m.PaymentURL,
		&m.CreatedAt, &m.InitiatedAt, &m.CompletedAt, &m.FailedAt,
		&m.FailureReason, &m.FailureCode,
		&m.RefundAmount, &m.RefundReason, &m.RefundedAt,
		&m.IPAddress, &m.DeviceInfo,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
