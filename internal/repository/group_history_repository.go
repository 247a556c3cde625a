package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-service/internal/domain"
)

// GroupHistoryRepository stores group reassignment events. Entries are append-only.
type GroupHistoryRepository interface {
	Create(ctx context.Context, entry *domain.GroupHistoryEntry) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.GroupHistoryEntry, error)
}

type groupHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewGroupHistoryRepository builds repository.
func NewGroupHistoryRepository(pool *pgxpool.Pool) GroupHistoryRepository {
	return &groupHistoryRepository{pool: pool}
}

func (r *groupHistoryRepository) Create(ctx context.Context, entry *domain.GroupHistoryEntry) error {
	const query = `
        INSERT INTO group_history (ticket_id, from_group_id, to_group_id, changed_by, note)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, changed_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.FromGroupID,
		entry.ToGroupID,
		entry.ChangedBy,
		entry.Note,
	).Scan(&entry.ID, &entry.ChangedAt)
}

func (r *groupHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.GroupHistoryEntry, error) {
	const query = `
        SELECT id, ticket_id, from_group_id, to_group_id, changed_by, note, changed_at
        FROM group_history WHERE ticket_id=$1 ORDER BY changed_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.GroupHistoryEntry
	for rows.Next() {
		var entry domain.GroupHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.FromGroupID,
			&entry.ToGroupID,
			&entry.ChangedBy,
			&entry.Note,
			&entry.ChangedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
