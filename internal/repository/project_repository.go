package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-service/internal/domain"
)

// ProjectRepository resolves projects.
type ProjectRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Project, error)
}

type projectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository constructs repository.
func NewProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &projectRepository{pool: pool}
}

func (r *projectRepository) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	const query = `
        SELECT id, organization_id, name, project_code, created_at
        FROM projects WHERE id=$1`
	var project domain.Project
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.OrganizationID,
		&project.Name,
		&project.ProjectCode,
		&project.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &project, nil
}
