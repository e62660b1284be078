package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/persistence"
)

const appointmentColumns = `
	id, user_id, type, status, payment_status,
	payment_id, payment_amount::text, confirmed_at`

// AppointmentRepository reads and writes the payment-relevant slice of
// the appointments table; the rest of the row belongs to scheduling.
type AppointmentRepository struct {
	q persistence.Executor
}

func NewAppointmentRepository(db *persistence.DB) *AppointmentRepository {
	return &AppointmentRepository{q: db.Pool}
}

func (r *AppointmentRepository) FindByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE id = $1`
	return scanAppointment(r.q.QueryRow(ctx, query, id))
}

func (r *AppointmentRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
	return scanAppointment(r.q.QueryRow(ctx, query, id))
}

func (r *AppointmentRepository) Update(ctx context.Context, a *domain.Appointment) error {
	query := `
		UPDATE appointments
		SET status = $1, payment_status = $2, payment_id = $3,
			payment_amount = $4, confirmed_at = $5
		WHERE id = $6
	`

	result, err := r.q.Exec(ctx, query,
		string(a.Status),
		string(a.PaymentStatus),
		a.PaymentID,
		decimalString(a.PaymentAmount),
		a.ConfirmedAt,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment %d not found", a.ID)
	}
	return nil
}

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var m AppointmentModel
	err := row.Scan(
		&m.ID, &m.UserID, &m.Type, &m.Status, &m.PaymentStatus,
		&m.PaymentID, &m.PaymentAmount, &m.ConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan appointment: %w", err)
	}
	return toDomainAppointment(m)
}
