package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/postgres/queries"
	"github.com/cwrk-planet/liar-service/internal/repository"
)

type ThemeRepo struct {
	q querier
}

func NewThemeRepo(q querier) *ThemeRepo {
	return &ThemeRepo{q: q}
}

// Pick: случайная тема группы, при пустой группе или её отсутствии любая.
func (r *ThemeRepo) Pick(ctx context.Context, group string) (*domain.Theme, error) {
	if group != "" {
		t, err := r.pick(ctx, queries.QueryPickThemeInGroup, group)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	return r.pick(ctx, queries.QueryPickAnyTheme)
}

func (r *ThemeRepo) pick(ctx context.Context, sql string, args ...any) (*domain.Theme, error) {
	var t domain.Theme
	err := r.q.QueryRow(ctx, sql, args...).Scan(&t.ID, &t.Group, &t.WordA, &t.WordB, &t.Active)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &t, nil
}
