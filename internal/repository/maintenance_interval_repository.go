package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

type maintenanceIntervalRepository struct {
	pool *pgxpool.Pool
}

// NewMaintenanceIntervalRepository instantiates repository.
func NewMaintenanceIntervalRepository(pool *pgxpool.Pool) MaintenanceIntervalRepository {
	return &maintenanceIntervalRepository{pool: pool}
}

func (r *maintenanceIntervalRepository) Create(ctx context.Context, interval domain.MaintenanceInterval) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO maintenance_intervals (id, name, days) VALUES ($1, $2, $3)`,
		interval.ID, interval.Name, interval.Days)
	return mapError("maintenance_interval.create", "maintenance interval", err)
}

func (r *maintenanceIntervalRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.MaintenanceInterval, error) {
	var interval domain.MaintenanceInterval
	err := r.pool.QueryRow(ctx, `SELECT id, name, days FROM maintenance_intervals WHERE id=$1`, id).
		Scan(&interval.ID, &interval.Name, &interval.Days)
	if err != nil {
		return domain.MaintenanceInterval{}, mapError("maintenance_interval.get", "maintenance interval", err)
	}
	return interval, nil
}

func (r *maintenanceIntervalRepository) List(ctx context.Context) ([]domain.MaintenanceInterval, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, days FROM maintenance_intervals ORDER BY days ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MaintenanceInterval
	for rows.Next() {
		var interval domain.MaintenanceInterval
		if err := rows.Scan(&interval.ID, &interval.Name, &interval.Days); err != nil {
			return nil, err
		}
		out = append(out, interval)
	}
	return out, rows.Err()
}
