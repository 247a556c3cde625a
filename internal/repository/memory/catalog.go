package memory

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/issue-service/internal/domain"
)

type projectRepo struct{ s *Store }

func (r *projectRepo) GetByID(_ context.Context, id int64) (*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := p.Project
	return &out, nil
}

type categoryRepo struct{ s *Store }

func (r *categoryRepo) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

type groupRepo struct{ s *Store }

func (r *groupRepo) GetByID(_ context.Context, id int64) (*domain.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	g, ok := r.s.groups[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	g.MemberIDs = append([]int64(nil), g.MemberIDs...)
	return &g, nil
}

func (r *groupRepo) ListActiveByOrganizationAndLevel(_ context.Context, organizationID int64, level domain.GroupLevel) ([]domain.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Group
	for _, g := range r.s.groups {
		if g.OrganizationID == organizationID && g.Level == level && g.Active {
			g.MemberIDs = nil
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
