package postgres

import (
	"context"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/postgres/queries"
)

type AuditRepo struct {
	q querier
}

func NewAuditRepo(q querier) *AuditRepo {
	return &AuditRepo{q: q}
}

func (r *AuditRepo) Append(ctx context.Context, e domain.AuditEntry) error {
	_, err := r.q.Exec(ctx, queries.QueryAppendAudit,
		e.ID,
		e.RoomCode,
		e.ParticipantID,
		e.Action,
		e.Payload,
		e.At,
	)
	return mapPgError(err)
}
