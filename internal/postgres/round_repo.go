package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/postgres/queries"
	"github.com/cwrk-planet/liar-service/internal/repository"

	"github.com/jackc/pgx/v5"
)

type RoundRepo struct {
	q querier
}

func NewRoundRepo(q querier) *RoundRepo {
	return &RoundRepo{q: q}
}

func (r *RoundRepo) Create(ctx context.Context, rd *domain.Round) error {
	_, err := r.q.Exec(ctx, queries.QueryCreateRound,
		rd.ID,
		rd.RoomCode,
		rd.Index,
		rd.Phase,
		rd.Pass,
		rd.AccusedID,
		rd.StartedAt,
		rd.EndedAt,
	)
	return mapPgError(err)
}

func (r *RoundRepo) Exists(ctx context.Context, roomCode string, idx int) (bool, error) {
	var one int
	err := r.q.QueryRow(ctx, queries.QueryExistsRound, roomCode, idx).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapPgError(err)
	}
	return true, nil
}

func (r *RoundRepo) Get(ctx context.Context, roomCode string, idx int) (*domain.Round, error) {
	var rd domain.Round
	err := r.q.QueryRow(ctx, queries.QueryGetRound, roomCode, idx).Scan(
		&rd.ID,
		&rd.RoomCode,
		&rd.Index,
		&rd.Phase,
		&rd.Pass,
		&rd.AccusedID,
		&rd.StartedAt,
		&rd.EndedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &rd, nil
}

func (r *RoundRepo) Update(ctx context.Context, rd *domain.Round) error {
	tag, err := r.q.Exec(ctx, queries.QueryUpdateRound,
		rd.ID,
		rd.Phase,
		rd.Pass,
		rd.AccusedID,
		rd.EndedAt,
	)
	if err != nil {
		return mapPgError(err)
	}
	return mustAffect(tag)
}

func (r *RoundRepo) DeleteByRoom(ctx context.Context, roomCode string) error {
	_, err := r.q.Exec(ctx, queries.QueryDeleteRoundsByRoom, roomCode)
	return mapPgError(err)
}

var _ repository.RoundRepository = (*RoundRepo)(nil)
