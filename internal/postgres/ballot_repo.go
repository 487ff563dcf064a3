package postgres

import (
	"context"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/postgres/queries"
	"github.com/cwrk-planet/liar-service/internal/repository"
)

type BallotRepo struct {
	q querier
}

func NewBallotRepo(q querier) *BallotRepo {
	return &BallotRepo{q: q}
}

// Insert опирается на уникальный индекс (round_id, voter_id, is_final).
func (r *BallotRepo) Insert(ctx context.Context, b *domain.Ballot) error {
	tag, err := r.q.Exec(ctx, queries.QueryInsertBallot,
		b.ID,
		b.RoundID,
		b.VoterID,
		b.TargetID,
		b.Final,
		b.Decision,
		b.CreatedAt,
	)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrAlreadyExists
	}
	return nil
}

func (r *BallotRepo) ListByRound(ctx context.Context, roundID string, final bool) ([]domain.Ballot, error) {
	rows, err := r.q.Query(ctx, queries.QueryListBallots, roundID, final)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var list []domain.Ballot
	for rows.Next() {
		var b domain.Ballot
		if err := rows.Scan(&b.ID, &b.RoundID, &b.VoterID, &b.TargetID, &b.Final, &b.Decision, &b.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func (r *BallotRepo) Count(ctx context.Context, roundID string, final bool) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, queries.QueryCountBallots, roundID, final).Scan(&n)
	return n, mapPgError(err)
}
