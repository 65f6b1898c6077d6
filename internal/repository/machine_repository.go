package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

const machineColumns = `id, organization_id, serial_number, brand, model, location, status, api_token,
	last_maintenance_date, next_maintenance_date, maintenance_interval_id, version, created_at, created_by, updated_at, updated_by`

type machineRepository struct {
	pool  *pgxpool.Pool
	clock domain.Clock
}

// NewMachineRepository instantiates repository.
func NewMachineRepository(pool *pgxpool.Pool, clock domain.Clock) MachineRepository {
	return &machineRepository{pool: pool, clock: clock}
}

func (r *machineRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Machine, error) {
	m, err := r.scan(r.pool.QueryRow(ctx, `SELECT `+machineColumns+` FROM machines WHERE id=$1`, id))
	if err != nil {
		return nil, mapError("machine.get", "machine", err)
	}
	return m, nil
}

func (r *machineRepository) ListByOrganization(ctx context.Context, filter MachineFilter) ([]*domain.Machine, error) {
	clauses := []string{"organization_id = $1"}
	args := []any{filter.OrganizationID}
	if len(filter.Statuses) > 0 {
		args = append(args, toStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	args = append(args, NormalizeLimit(filter.Limit), max(filter.Offset, 0))
	query := fmt.Sprintf(`SELECT %s FROM machines WHERE %s ORDER BY serial_number ASC LIMIT $%d OFFSET $%d`,
		machineColumns, strings.Join(clauses, " AND "), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Machine
	for rows.Next() {
		m, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *machineRepository) scan(row rowScanner) (*domain.Machine, error) {
	var s domain.MachineState
	if err := row.Scan(
		&s.ID,
		&s.OrganizationID,
		&s.SerialNumber,
		&s.Brand,
		&s.Model,
		&s.Location,
		&s.Status,
		&s.APIToken,
		&s.LastMaintenanceDate,
		&s.NextMaintenanceDate,
		&s.MaintenanceIntervalID,
		&s.Version,
		&s.Audit.CreatedAt,
		&s.Audit.CreatedBy,
		&s.Audit.UpdatedAt,
		&s.Audit.UpdatedBy,
	); err != nil {
		return nil, err
	}
	return domain.RestoreMachine(s, r.clock)
}

func saveMachine(ctx context.Context, db DBTX, m *domain.Machine) error {
	s := m.State()
	if s.Version == 0 {
		_, err := db.Exec(ctx, `
			INSERT INTO machines (`+machineColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,1,$12,$13,$14,$15)`,
			s.ID, s.OrganizationID, s.SerialNumber, s.Brand, s.Model, s.Location, s.Status, s.APIToken,
			s.LastMaintenanceDate, s.NextMaintenanceDate, s.MaintenanceIntervalID,
			s.Audit.CreatedAt, s.Audit.CreatedBy, s.Audit.UpdatedAt, s.Audit.UpdatedBy,
		)
		return err
	}
	cmd, err := db.Exec(ctx, `
		UPDATE machines SET brand=$3, model=$4, location=$5, status=$6, api_token=$7,
			last_maintenance_date=$8, next_maintenance_date=$9, maintenance_interval_id=$10,
			updated_at=$11, updated_by=$12, version=version+1
		WHERE id=$1 AND version=$2`,
		s.ID, s.Version, s.Brand, s.Model, s.Location, s.Status, s.APIToken,
		s.LastMaintenanceDate, s.NextMaintenanceDate, s.MaintenanceIntervalID,
		s.Audit.UpdatedAt, s.Audit.UpdatedBy,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ConcurrencyConflict("machine.save", fmt.Sprintf("machine %s changed since version %d", s.ID, s.Version), nil)
	}
	return nil
}
