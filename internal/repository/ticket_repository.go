package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

const ticketColumns = `id, ticket_number, title, description, organization_id, machine_id, priority, status,
	created_by_user_id, assigned_to_user_id, resolved_at, closed_at, version, created_at, created_by, updated_at, updated_by`

type ticketRepository struct {
	pool  *pgxpool.Pool
	clock domain.Clock
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool, clock domain.Clock) TicketRepository {
	return &ticketRepository{pool: pool, clock: clock}
}

func (r *ticketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number domain.TicketNumber) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_number=$1`
	return r.fetchSingle(ctx, query, number.String())
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := r.scan(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapError("ticket.get", "ticket", err)
	}
	return ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]*domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	if filter.MachineID != nil {
		args = append(args, *filter.MachineID)
		clauses = append(clauses, fmt.Sprintf("machine_id = $%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_user_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, toStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.Priorities) > 0 {
		args = append(args, toStrings(filter.Priorities))
		clauses = append(clauses, fmt.Sprintf("priority = ANY($%d)", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, "%"+strings.TrimSpace(*filter.SearchTerm)+"%")
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d OR ticket_number ILIKE $%d)", len(args), len(args), len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	args = append(args, NormalizeLimit(filter.Limit), max(filter.Offset, 0))
	query := fmt.Sprintf("SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d",
		ticketColumns, strings.Join(clauses, " AND "), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		ticket, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

func (r *ticketRepository) scan(row rowScanner) (*domain.Ticket, error) {
	var (
		s      domain.TicketState
		number string
	)
	if err := row.Scan(
		&s.ID,
		&number,
		&s.Title,
		&s.Description,
		&s.OrganizationID,
		&s.MachineID,
		&s.Priority,
		&s.Status,
		&s.CreatedByUserID,
		&s.AssignedToUserID,
		&s.ResolvedAt,
		&s.ClosedAt,
		&s.Version,
		&s.Audit.CreatedAt,
		&s.Audit.CreatedBy,
		&s.Audit.UpdatedAt,
		&s.Audit.UpdatedBy,
	); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseTicketNumber(number, r.clock)
	if err != nil {
		return nil, fmt.Errorf("ticket %s: stored number %q: %w", s.ID, number, err)
	}
	s.Number = parsed
	return domain.RestoreTicket(s, r.clock), nil
}

func saveTicket(ctx context.Context, db DBTX, t *domain.Ticket) error {
	s := t.State()
	if s.Version == 0 {
		_, err := db.Exec(ctx, `
			INSERT INTO tickets (`+ticketColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,1,$13,$14,$15,$16)`,
			s.ID, s.Number.String(), s.Title, s.Description, s.OrganizationID, s.MachineID, s.Priority, s.Status,
			s.CreatedByUserID, s.AssignedToUserID, s.ResolvedAt, s.ClosedAt,
			s.Audit.CreatedAt, s.Audit.CreatedBy, s.Audit.UpdatedAt, s.Audit.UpdatedBy,
		)
		return err
	}
	cmd, err := db.Exec(ctx, `
		UPDATE tickets SET title=$3, description=$4, priority=$5, status=$6, assigned_to_user_id=$7,
			resolved_at=$8, closed_at=$9, updated_at=$10, updated_by=$11, version=version+1
		WHERE id=$1 AND version=$2`,
		s.ID, s.Version, s.Title, s.Description, s.Priority, s.Status, s.AssignedToUserID,
		s.ResolvedAt, s.ClosedAt, s.Audit.UpdatedAt, s.Audit.UpdatedBy,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ConcurrencyConflict("ticket.save", fmt.Sprintf("ticket %s changed since version %d", s.ID, s.Version), nil)
	}
	return nil
}
