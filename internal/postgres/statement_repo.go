package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/postgres/queries"

	"github.com/jackc/pgx/v5"
)

type StatementRepo struct {
	q querier
}

func NewStatementRepo(q querier) *StatementRepo {
	return &StatementRepo{q: q}
}

func (r *StatementRepo) Insert(ctx context.Context, s *domain.Statement) error {
	_, err := r.q.Exec(ctx, queries.QueryInsertStatement,
		s.ID,
		s.RoundID,
		s.ParticipantID,
		s.Kind,
		s.Pass,
		s.Text,
		s.Summary,
		s.CreatedAt,
	)
	return mapPgError(err)
}

func (r *StatementRepo) ListByRound(ctx context.Context, roundID string) ([]domain.Statement, error) {
	rows, err := r.q.Query(ctx, queries.QueryListStatements, roundID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var list []domain.Statement
	for rows.Next() {
		var s domain.Statement
		if err := rows.Scan(&s.ID, &s.RoundID, &s.ParticipantID, &s.Kind, &s.Pass, &s.Text, &s.Summary, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *StatementRepo) Exists(ctx context.Context, roundID, participantID string, kind domain.StatementKind, pass int) (bool, error) {
	var one int
	err := r.q.QueryRow(ctx, queries.QueryExistsStatement, roundID, participantID, kind, pass).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapPgError(err)
	}
	return true, nil
}

func (r *StatementRepo) Count(ctx context.Context, roundID string, kind domain.StatementKind, pass int) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, queries.QueryCountStatements, roundID, kind, pass).Scan(&n)
	return n, mapPgError(err)
}
