package memstore

import (
	"context"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/repository"
)

type ParticipantRepo struct{ db *DB }

func (r *ParticipantRepo) Add(_ context.Context, p *domain.Participant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.participants[p.ID]; ok {
		return repository.ErrAlreadyExists
	}
	r.db.seq++
	r.db.participants[p.ID] = participantRow{p: cloneParticipant(*p), seq: r.db.seq}
	return nil
}

func (r *ParticipantRepo) Get(_ context.Context, id string) (*domain.Participant, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	row, ok := r.db.participants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p := cloneParticipant(row.p)
	return &p, nil
}

func (r *ParticipantRepo) ListActive(_ context.Context, roomCode string) ([]domain.Participant, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.db.sortedParticipants(roomCode, true), nil
}

func (r *ParticipantRepo) Update(_ context.Context, p *domain.Participant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.update(*p)
}

func (r *ParticipantRepo) UpdateMany(_ context.Context, ps []domain.Participant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, p := range ps {
		if _, ok := r.db.participants[p.ID]; !ok {
			return repository.ErrNotFound
		}
	}
	for _, p := range ps {
		_ = r.update(p)
	}
	return nil
}

func (r *ParticipantRepo) update(p domain.Participant) error {
	row, ok := r.db.participants[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	row.p = cloneParticipant(p)
	r.db.participants[p.ID] = row
	return nil
}

func (r *ParticipantRepo) DeleteByRoom(_ context.Context, roomCode string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, row := range r.db.participants {
		if row.p.RoomCode == roomCode {
			delete(r.db.participants, id)
		}
	}
	return nil
}
