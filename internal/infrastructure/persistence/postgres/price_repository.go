package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/persistence"
)

// PriceRepository reads the service price catalog.
type PriceRepository struct {
	q persistence.Executor
}

func NewPriceRepository(db *persistence.DB) *PriceRepository {
	return &PriceRepository{q: db.Pool}
}

func (r *PriceRepository) FindByService(ctx context.Context, serviceName string) (*domain.Price, error) {
	query := `
		SELECT id, service_name, price::text, is_active
		FROM prices
		WHERE service_name = $1
	`

	var m PriceModel
	err := r.q.QueryRow(ctx, query, serviceName).Scan(&m.ID, &m.ServiceName, &m.Price, &m.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan price: %w", err)
	}
	return toDomainPrice(m)
}
