package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-service/internal/domain"
)

// GroupRepository resolves support groups.
type GroupRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Group, error)
	ListActiveByOrganizationAndLevel(ctx context.Context, organizationID int64, level domain.GroupLevel) ([]domain.Group, error)
}

type groupRepository struct {
	pool *pgxpool.Pool
}

// NewGroupRepository constructs repository.
func NewGroupRepository(pool *pgxpool.Pool) GroupRepository {
	return &groupRepository{pool: pool}
}

func (r *groupRepository) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	const query = `
        SELECT g.id, g.organization_id, g.name, g.level, g.is_active, g.created_at, g.updated_at,
               COALESCE(ARRAY(SELECT m.user_id FROM support_group_members m WHERE m.group_id = g.id ORDER BY m.user_id), '{}')
        FROM support_groups g WHERE g.id=$1`
	var group domain.Group
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&group.ID,
		&group.OrganizationID,
		&group.Name,
		&group.Level,
		&group.Active,
		&group.CreatedAt,
		&group.UpdatedAt,
		&group.MemberIDs,
	); err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) ListActiveByOrganizationAndLevel(ctx context.Context, organizationID int64, level domain.GroupLevel) ([]domain.Group, error) {
	const query = `
        SELECT id, organization_id, name, level, is_active, created_at, updated_at
        FROM support_groups WHERE organization_id=$1 AND level=$2 AND is_active=TRUE
        ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, organizationID, level)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Group
	for rows.Next() {
		var group domain.Group
		if err := rows.Scan(&group.ID, &group.OrganizationID, &group.Name, &group.Level, &group.Active, &group.CreatedAt, &group.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, group)
	}
	return result, rows.Err()
}
