package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/persistence"
)

// JobRepository is the durable delayed-poll queue backing the reconciler.
type JobRepository struct {
	q persistence.Executor
}

func NewJobRepository(db *persistence.DB) *JobRepository {
	return &JobRepository{q: db.Pool}
}

func (r *JobRepository) Enqueue(ctx context.Context, paymentID uuid.UUID, runAt time.Time) error {
	query := `
		INSERT INTO payment_jobs (payment_id, run_at)
		VALUES ($1, $2)
	`

	if _, err := r.q.Exec(ctx, query, paymentID, runAt); err != nil {
		return fmt.Errorf("failed to enqueue payment job: %w", err)
	}
	return nil
}

// ClaimDue picks due jobs and bumps their attempt counter in one
// statement. SKIP LOCKED keeps concurrent replicas from claiming the
// same batch; a claimed job stays scheduled until marked done or failed.
func (r *JobRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*domain.PaymentJob, error) {
	query := `
		UPDATE payment_jobs
		SET attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM payment_jobs
			WHERE status = 'scheduled' AND run_at <= $1
			ORDER BY run_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, payment_id, run_at, attempts, max_attempts, status, last_error, created_at
	`

	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due jobs: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.PaymentJob, error) {
		var m JobModel
		err := row.Scan(&m.ID, &m.PaymentID, &m.RunAt, &m.Attempts, &m.MaxAttempts,
			&m.Status, &m.LastError, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		return toDomainJob(m), nil
	})
}

func (r *JobRepository) MarkDone(ctx context.Context, jobID int64) error {
	query := `UPDATE payment_jobs SET status = 'done', last_error = NULL WHERE id = $1`

	if _, err := r.q.Exec(ctx, query, jobID); err != nil {
		return fmt.Errorf("mark job done: %w", err)
	}
	return nil
}

// MarkFailed records the failure; a non-nil retryAt reschedules the job,
// nil retires it.
func (r *JobRepository) MarkFailed(ctx context.Context, jobID int64, lastError string, retryAt *time.Time) error {
	if retryAt != nil {
		query := `UPDATE payment_jobs SET last_error = $1, run_at = $2 WHERE id = $3`
		if _, err := r.q.Exec(ctx, query, lastError, *retryAt, jobID); err != nil {
			return fmt.Errorf("reschedule job: %w", err)
		}
		return nil
	}

	query := `UPDATE payment_jobs SET status = 'failed', last_error = $1 WHERE id = $2`
	if _, err := r.q.Exec(ctx, query, lastError, jobID); err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}
