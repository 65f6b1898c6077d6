package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

const organizationColumns = `id, name, email, phone, address, city, postal_code, country, notes, service_status,
	contract_start_date, contract_end_date, api_credential, version, created_at, created_by, updated_at, updated_by`

type organizationRepository struct {
	pool  *pgxpool.Pool
	clock domain.Clock
}

// NewOrganizationRepository instantiates repository.
func NewOrganizationRepository(pool *pgxpool.Pool, clock domain.Clock) OrganizationRepository {
	return &organizationRepository{pool: pool, clock: clock}
}

func (r *organizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id=$1`, id)
	org, err := r.scan(row)
	if err != nil {
		return nil, mapError("organization.get", "organization", err)
	}
	return org, nil
}

func (r *organizationRepository) ListWithFilter(ctx context.Context, filter OrganizationFilter) ([]*domain.Organization, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if len(filter.Statuses) > 0 {
		args = append(args, toStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("service_status = ANY($%d)", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, "%"+strings.TrimSpace(*filter.SearchTerm)+"%")
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	args = append(args, NormalizeLimit(filter.Limit), max(filter.Offset, 0))
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE %s ORDER BY name ASC, id ASC LIMIT $%d OFFSET $%d`,
		organizationColumns, strings.Join(clauses, " AND "), len(args)-1, len(args))
	return r.list(ctx, query, args...)
}

func (r *organizationRepository) ListExpiredContracts(ctx context.Context, now time.Time, limit int) ([]*domain.Organization, error) {
	const query = `SELECT ` + organizationColumns + `
		FROM organizations
		WHERE contract_end_date IS NOT NULL AND contract_end_date < $1 AND service_status <> $2
		ORDER BY contract_end_date ASC
		LIMIT $3`
	return r.list(ctx, query, now.UTC(), string(domain.ServiceStatusExpired), NormalizeLimit(limit))
}

func (r *organizationRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Organization, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Organization
	for rows.Next() {
		org, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

func (r *organizationRepository) scan(row rowScanner) (*domain.Organization, error) {
	var s domain.OrganizationState
	if err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Email,
		&s.Phone,
		&s.Address,
		&s.City,
		&s.PostalCode,
		&s.Country,
		&s.Notes,
		&s.ServiceStatus,
		&s.ContractStartDate,
		&s.ContractEndDate,
		&s.APICredential,
		&s.Version,
		&s.Audit.CreatedAt,
		&s.Audit.CreatedBy,
		&s.Audit.UpdatedAt,
		&s.Audit.UpdatedBy,
	); err != nil {
		return nil, err
	}
	return domain.RestoreOrganization(s, r.clock)
}

func saveOrganization(ctx context.Context, db DBTX, org *domain.Organization) error {
	s := org.State()
	if s.Version == 0 {
		_, err := db.Exec(ctx, `
			INSERT INTO organizations (`+organizationColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,1,$14,$15,$16,$17)`,
			s.ID, s.Name, s.Email, s.Phone, s.Address, s.City, s.PostalCode, s.Country, s.Notes, s.ServiceStatus,
			s.ContractStartDate, s.ContractEndDate, s.APICredential,
			s.Audit.CreatedAt, s.Audit.CreatedBy, s.Audit.UpdatedAt, s.Audit.UpdatedBy,
		)
		return err
	}
	cmd, err := db.Exec(ctx, `
		UPDATE organizations SET name=$3, email=$4, phone=$5, address=$6, city=$7, postal_code=$8, country=$9, notes=$10,
			service_status=$11, contract_start_date=$12, contract_end_date=$13, api_credential=$14,
			updated_at=$15, updated_by=$16, version=version+1
		WHERE id=$1 AND version=$2`,
		s.ID, s.Version, s.Name, s.Email, s.Phone, s.Address, s.City, s.PostalCode, s.Country, s.Notes,
		s.ServiceStatus, s.ContractStartDate, s.ContractEndDate, s.APICredential,
		s.Audit.UpdatedAt, s.Audit.UpdatedBy,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ConcurrencyConflict("organization.save", fmt.Sprintf("organization %s changed since version %d", s.ID, s.Version), nil)
	}
	return nil
}
