package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-service/internal/domain"
)

// SortOrder selects ascending or descending history listings.
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// TicketHistoryRepository stores audit entries. Entries are append-only.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketHistoryEntry) error
	ListByTicket(ctx context.Context, ticketID int64, order SortOrder) ([]domain.TicketHistoryEntry, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, changed_by, field_name, old_value, new_value, change_description)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.ChangedBy,
		entry.FieldName,
		entry.OldValue,
		entry.NewValue,
		entry.Description,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64, order SortOrder) ([]domain.TicketHistoryEntry, error) {
	query := `
        SELECT id, ticket_id, changed_by, field_name, old_value, new_value, change_description, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	if order == SortDescending {
		query = `
        SELECT id, ticket_id, changed_by, field_name, old_value, new_value, change_description, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at DESC, id DESC`
	}
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistoryEntry
	for rows.Next() {
		var entry domain.TicketHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ChangedBy,
			&entry.FieldName,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Description,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
