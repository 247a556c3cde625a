package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-service/internal/domain"
)

// ErrVersionConflict is returned when a ticket was modified since it was read.
var ErrVersionConflict = errors.New("ticket version conflict")

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create assigns ID, Version and TicketNumber. The number comes from the
	// owning project's counter, so the project must exist.
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update writes the ticket if its stored version still equals
	// ticket.Version and bumps the version on success.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListByProject(ctx context.Context, projectID int64, limit, offset int) ([]domain.Ticket, error)
	// FindBreachCandidates returns unbreached, unpaused, non-terminal tickets
	// with a due timestamp before now.
	FindBreachCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `
        id, ticket_number, ticket_code, organization_id, project_id, category_id,
        title, description, issue_type, impact, urgency, priority_code, priority, sla_type,
        response_sla_hours, resolution_sla_hours, sla_response_due_at, sla_resolution_due_at,
        sla_response_remaining_seconds, sla_resolution_remaining_seconds,
        sla_paused, sla_breached, sla_breached_at, status, reporter_id,
        request_name, request_contact, client_id, asset_id,
        assignment_type, assigned_user_id, assigned_group_id,
        resolved_at, closed_at, version, created_at, updated_at`

// Create allocates the next project ticket number and inserts the ticket in
// one transaction.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var (
		seq         int64
		projectCode string
	)
	const nextSeq = `
        UPDATE projects SET ticket_seq = ticket_seq + 1
        WHERE id=$1
        RETURNING ticket_seq, project_code`
	if err = tx.QueryRow(ctx, nextSeq, ticket.ProjectID).Scan(&seq, &projectCode); err != nil {
		return err
	}
	ticket.TicketNumber = domain.FormatTicketNumber(projectCode, seq)

	const query = `
        INSERT INTO tickets (ticket_number, ticket_code, organization_id, project_id, category_id,
            title, description, issue_type, impact, urgency, priority_code, priority, sla_type,
            response_sla_hours, resolution_sla_hours, sla_response_due_at, sla_resolution_due_at,
            sla_response_remaining_seconds, sla_resolution_remaining_seconds,
            sla_paused, sla_breached, sla_breached_at, status, reporter_id,
            request_name, request_contact, client_id, asset_id,
            assignment_type, assigned_user_id, assigned_group_id, resolved_at, closed_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,
            $25,$26,$27,$28,$29,$30,$31,$32,$33,1)
        RETURNING id, version, created_at, updated_at`
	err = tx.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.TicketCode,
		ticket.OrganizationID,
		ticket.ProjectID,
		ticket.CategoryID,
		ticket.Title,
		ticket.Description,
		ticket.IssueType,
		nullableString(string(ticket.Impact)),
		nullableString(string(ticket.Urgency)),
		ticket.PriorityCode,
		ticket.Priority,
		ticket.SLAType,
		ticket.SLA.ResponseHours,
		ticket.SLA.ResolutionHours,
		ticket.SLA.Response.DueAt,
		ticket.SLA.Resolution.DueAt,
		ticket.SLA.Response.RemainingSeconds,
		ticket.SLA.Resolution.RemainingSeconds,
		ticket.SLA.Paused,
		ticket.SLA.Breached,
		ticket.SLA.BreachedAt,
		ticket.Status,
		ticket.ReporterID,
		ticket.RequestName,
		ticket.RequestContact,
		ticket.ClientID,
		ticket.AssetID,
		ticket.AssignmentType,
		ticket.AssignedUserID,
		ticket.AssignedGroup,
		ticket.ResolvedAt,
		ticket.ClosedAt,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET category_id=$1, title=$2, description=$3, impact=$4, urgency=$5,
            priority_code=$6, priority=$7, response_sla_hours=$8, resolution_sla_hours=$9,
            sla_response_due_at=$10, sla_resolution_due_at=$11,
            sla_response_remaining_seconds=$12, sla_resolution_remaining_seconds=$13,
            sla_paused=$14, sla_breached=(sla_breached OR $15), sla_breached_at=COALESCE(sla_breached_at, $16),
            status=$17, assignment_type=$18, assigned_user_id=$19, assigned_group_id=$20,
            resolved_at=$21, closed_at=$22, version=version+1, updated_at=NOW()
        WHERE id=$23 AND version=$24
        RETURNING version, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.CategoryID,
		ticket.Title,
		ticket.Description,
		nullableString(string(ticket.Impact)),
		nullableString(string(ticket.Urgency)),
		ticket.PriorityCode,
		ticket.Priority,
		ticket.SLA.ResponseHours,
		ticket.SLA.ResolutionHours,
		ticket.SLA.Response.DueAt,
		ticket.SLA.Resolution.DueAt,
		ticket.SLA.Response.RemainingSeconds,
		ticket.SLA.Resolution.RemainingSeconds,
		ticket.SLA.Paused,
		ticket.SLA.Breached,
		ticket.SLA.BreachedAt,
		ticket.Status,
		ticket.AssignmentType,
		ticket.AssignedUserID,
		ticket.AssignedGroup,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
		ticket.Version,
	).Scan(&ticket.Version, &ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrVersionConflict
		}
		return pgx.ErrNoRows
	}
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListByProject(ctx context.Context, projectID int64, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT` + ticketColumns + ` FROM tickets WHERE project_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) FindBreachCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT` + ticketColumns + `
        FROM tickets
        WHERE sla_breached = FALSE
          AND COALESCE(sla_paused, FALSE) = FALSE
          AND status NOT IN ('CLOSED', 'RESOLVED')
          AND (sla_response_due_at < $1 OR sla_resolution_due_at < $1)
        ORDER BY id ASC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket  domain.Ticket
		impact  *string
		urgency *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.TicketCode,
		&ticket.OrganizationID,
		&ticket.ProjectID,
		&ticket.CategoryID,
		&ticket.Title,
		&ticket.Description,
		&ticket.IssueType,
		&impact,
		&urgency,
		&ticket.PriorityCode,
		&ticket.Priority,
		&ticket.SLAType,
		&ticket.SLA.ResponseHours,
		&ticket.SLA.ResolutionHours,
		&ticket.SLA.Response.DueAt,
		&ticket.SLA.Resolution.DueAt,
		&ticket.SLA.Response.RemainingSeconds,
		&ticket.SLA.Resolution.RemainingSeconds,
		&ticket.SLA.Paused,
		&ticket.SLA.Breached,
		&ticket.SLA.BreachedAt,
		&ticket.Status,
		&ticket.ReporterID,
		&ticket.RequestName,
		&ticket.RequestContact,
		&ticket.ClientID,
		&ticket.AssetID,
		&ticket.AssignmentType,
		&ticket.AssignedUserID,
		&ticket.AssignedGroup,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if impact != nil {
		ticket.Impact = domain.Impact(*impact)
	}
	if urgency != nil {
		ticket.Urgency = domain.Urgency(*urgency)
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func nullableString(val string) *string {
	if val == "" {
		return nil
	}
	return &val
}
