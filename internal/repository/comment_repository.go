package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-service/internal/domain"
)

// CommentRepository manages ticket comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error)
}

// WorkNoteRepository manages internal work notes.
type WorkNoteRepository interface {
	Create(ctx context.Context, note *domain.WorkNote) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.WorkNote, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, author_id, body, type, is_internal)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.Text,
		comment.Type,
		comment.Internal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	const query = `
        SELECT id, ticket_id, author_id, body, type, is_internal, created_at
        FROM ticket_comments WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.Text,
			&comment.Type,
			&comment.Internal,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}

type workNoteRepository struct {
	pool *pgxpool.Pool
}

// NewWorkNoteRepository builds repository.
func NewWorkNoteRepository(pool *pgxpool.Pool) WorkNoteRepository {
	return &workNoteRepository{pool: pool}
}

func (r *workNoteRepository) Create(ctx context.Context, note *domain.WorkNote) error {
	const query = `
        INSERT INTO work_notes (ticket_id, author_id, note)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, note.TicketID, note.AuthorID, note.Note).Scan(&note.ID, &note.CreatedAt)
}

func (r *workNoteRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.WorkNote, error) {
	const query = `
        SELECT id, ticket_id, author_id, note, created_at
        FROM work_notes WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkNote
	for rows.Next() {
		var note domain.WorkNote
		if err := rows.Scan(&note.ID, &note.TicketID, &note.AuthorID, &note.Note, &note.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}
