package postgres

import (
	"context"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/postgres/queries"

	"github.com/jackc/pgx/v5"
)

type ParticipantRepo struct {
	db txBeginner
}

func NewParticipantRepo(db txBeginner) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(
		&p.ID,
		&p.RoomCode,
		&p.Nickname,
		&p.IsHost,
		&p.Role,
		&p.Alive,
		&p.OrderNo,
		&p.Word,
		&p.JoinedAt,
		&p.LeftAt,
	)
	return p, err
}

func (r *ParticipantRepo) Add(ctx context.Context, p *domain.Participant) error {
	_, err := r.db.Exec(ctx, queries.QueryAddParticipant,
		p.ID,
		p.RoomCode,
		p.Nickname,
		p.IsHost,
		p.Role,
		p.Alive,
		p.OrderNo,
		p.Word,
		p.JoinedAt,
		p.LeftAt,
	)
	return mapPgError(err)
}

func (r *ParticipantRepo) Get(ctx context.Context, id string) (*domain.Participant, error) {
	p, err := scanParticipant(r.db.QueryRow(ctx, queries.QueryGetParticipant, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return &p, nil
}

func (r *ParticipantRepo) ListActive(ctx context.Context, roomCode string) ([]domain.Participant, error) {
	rows, err := r.db.Query(ctx, queries.QueryListActiveParticipants, roomCode)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	list := make([]domain.Participant, 0, domain.DefaultCapacity)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *ParticipantRepo) Update(ctx context.Context, p *domain.Participant) error {
	return updateParticipant(ctx, r.db, p)
}

// UpdateMany: роли и слова раздаются одной транзакцией.
func (r *ParticipantRepo) UpdateMany(ctx context.Context, ps []domain.Participant) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := range ps {
		if err := updateParticipant(ctx, tx, &ps[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func updateParticipant(ctx context.Context, q querier, p *domain.Participant) error {
	tag, err := q.Exec(ctx, queries.QueryUpdateParticipant,
		p.ID,
		p.Nickname,
		p.IsHost,
		p.Role,
		p.Alive,
		p.OrderNo,
		p.Word,
		p.LeftAt,
	)
	if err != nil {
		return mapPgError(err)
	}
	return mustAffect(tag)
}

func (r *ParticipantRepo) DeleteByRoom(ctx context.Context, roomCode string) error {
	_, err := r.db.Exec(ctx, queries.QueryDeleteParticipantsByRoom, roomCode)
	return mapPgError(err)
}
