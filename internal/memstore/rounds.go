package memstore

import (
	"context"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/repository"
)

type RoundRepo struct{ db *DB }

func (r *RoundRepo) Create(_ context.Context, round *domain.Round) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.roundByIndex(round.RoomCode, round.Index); ok {
		return repository.ErrAlreadyExists
	}
	r.db.rounds[round.ID] = cloneRound(*round)
	return nil
}

func (r *RoundRepo) Exists(_ context.Context, roomCode string, idx int) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	_, ok := r.db.roundByIndex(roomCode, idx)
	return ok, nil
}

func (r *RoundRepo) Get(_ context.Context, roomCode string, idx int) (*domain.Round, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	round, ok := r.db.roundByIndex(roomCode, idx)
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneRound(round)
	return &out, nil
}

func (r *RoundRepo) Update(_ context.Context, round *domain.Round) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.rounds[round.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.rounds[round.ID] = cloneRound(*round)
	return nil
}

func (r *RoundRepo) DeleteByRoom(_ context.Context, roomCode string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, round := range r.db.rounds {
		if round.RoomCode != roomCode {
			continue
		}
		delete(r.db.ballots, id)
		delete(r.db.statements, id)
		delete(r.db.rounds, id)
	}
	return nil
}

type BallotRepo struct{ db *DB }

// Insert проверяет уникальность и вставляет под одной блокировкой.
func (r *BallotRepo) Insert(_ context.Context, b *domain.Ballot) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.ballots[b.RoundID] {
		if existing.VoterID == b.VoterID && existing.Final == b.Final {
			return repository.ErrAlreadyExists
		}
	}
	r.db.ballots[b.RoundID] = append(r.db.ballots[b.RoundID], *b)
	return nil
}

func (r *BallotRepo) ListByRound(_ context.Context, roundID string, final bool) ([]domain.Ballot, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]domain.Ballot, 0, len(r.db.ballots[roundID]))
	for _, b := range r.db.ballots[roundID] {
		if b.Final == final {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *BallotRepo) Count(ctx context.Context, roundID string, final bool) (int, error) {
	list, err := r.ListByRound(ctx, roundID, final)
	return len(list), err
}

type StatementRepo struct{ db *DB }

func (r *StatementRepo) Insert(_ context.Context, s *domain.Statement) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.statements[s.RoundID] = append(r.db.statements[s.RoundID], *s)
	return nil
}

func (r *StatementRepo) ListByRound(_ context.Context, roundID string) ([]domain.Statement, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return append([]domain.Statement(nil), r.db.statements[roundID]...), nil
}

func (r *StatementRepo) Exists(_ context.Context, roundID, participantID string, kind domain.StatementKind, pass int) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, s := range r.db.statements[roundID] {
		if s.ParticipantID == participantID && s.Kind == kind && s.Pass == pass {
			return true, nil
		}
	}
	return false, nil
}

func (r *StatementRepo) Count(_ context.Context, roundID string, kind domain.StatementKind, pass int) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	n := 0
	for _, s := range r.db.statements[roundID] {
		if s.Kind == kind && s.Pass == pass {
			n++
		}
	}
	return n, nil
}
