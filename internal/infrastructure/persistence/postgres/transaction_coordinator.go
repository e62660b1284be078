package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/persistence"
)

// TransactionCoordinator runs multi-repository work in one transaction.
type TransactionCoordinator struct {
	pool *pgxpool.Pool
}

func NewTransactionCoordinator(db *persistence.DB) *TransactionCoordinator {
	return &TransactionCoordinator{pool: db.Pool}
}

// WithTransaction executes fn inside a database transaction. The
// repository bundle handed to fn is bound to that transaction, so every
// statement commits or rolls back together.
func (tc *TransactionCoordinator) WithTransaction(
	ctx context.Context,
	fn func(ctx context.Context, repos application.Repositories) error,
) error {
	tx, err := tc.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	repos := application.Repositories{
		Payments:     &PaymentRepository{q: tx},
		Appointments: &AppointmentRepository{q: tx},
		Redeems:      &RedeemRepository{q: tx},
		Jobs:         &JobRepository{q: tx},
	}

	if err := fn(ctx, repos); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// NewRepositories builds the pool-bound bundle used outside transactions.
func NewRepositories(db *persistence.DB) application.Repositories {
	return application.Repositories{
		Payments:     NewPaymentRepository(db),
		Appointments: NewAppointmentRepository(db),
		Redeems:      NewRedeemRepository(db),
		Jobs:         NewJobRepository(db),
	}
}
