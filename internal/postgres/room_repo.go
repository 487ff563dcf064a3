package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/postgres/queries"
	"github.com/cwrk-planet/liar-service/internal/repository"
)

type RoomRepo struct {
	q querier
}

func NewRoomRepo(q querier) *RoomRepo {
	return &RoomRepo{q: q}
}

func (r *RoomRepo) Create(ctx context.Context, room *domain.Room) error {
	_, err := r.q.Exec(ctx, queries.QueryCreateRoom,
		room.Code,
		room.Capacity,
		room.RoundLimit,
		room.State,
		room.CurrentRound,
		room.ThemeGroup,
		room.WordA,
		room.WordB,
		room.CreatedAt,
	)
	return mapPgError(err)
}

func (r *RoomRepo) Get(ctx context.Context, code string) (*domain.Room, error) {
	var rm domain.Room
	err := r.q.QueryRow(ctx, queries.QueryGetRoom, code).Scan(
		&rm.Code,
		&rm.Capacity,
		&rm.RoundLimit,
		&rm.State,
		&rm.CurrentRound,
		&rm.ThemeGroup,
		&rm.WordA,
		&rm.WordB,
		&rm.CreatedAt,
		&rm.EndedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &rm, nil
}

func (r *RoomRepo) ExistsActive(ctx context.Context, code string) (bool, error) {
	var one int
	err := r.q.QueryRow(ctx, queries.QueryExistsActiveRoom, code).Scan(&one)
	if err != nil {
		if err = mapPgError(err); errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *RoomRepo) Update(ctx context.Context, room *domain.Room) error {
	tag, err := r.q.Exec(ctx, queries.QueryUpdateRoom,
		room.Code,
		room.Capacity,
		room.RoundLimit,
		room.State,
		room.CurrentRound,
		room.ThemeGroup,
		room.WordA,
		room.WordB,
		room.EndedAt,
	)
	if err != nil {
		return mapPgError(err)
	}
	return mustAffect(tag)
}

func (r *RoomRepo) Delete(ctx context.Context, code string) error {
	_, err := r.q.Exec(ctx, queries.QueryDeleteRoom, code)
	return mapPgError(err)
}
