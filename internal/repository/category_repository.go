package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-service/internal/domain"
)

// CategoryRepository resolves ticket categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository constructs repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	const query = `SELECT id, organization_id, name FROM categories WHERE id=$1`
	var category domain.Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(&category.ID, &category.OrganizationID, &category.Name); err != nil {
		return nil, err
	}
	return &category, nil
}
