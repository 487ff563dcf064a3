package memstore

import (
	"context"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/repository"
)

type RoomRepo struct{ db *DB }

func (r *RoomRepo) Create(_ context.Context, room *domain.Room) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.rooms[room.Code]; ok {
		return repository.ErrAlreadyExists
	}
	r.db.rooms[room.Code] = cloneRoom(*room)
	return nil
}

func (r *RoomRepo) Get(_ context.Context, code string) (*domain.Room, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	room, ok := r.db.rooms[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneRoom(room)
	return &out, nil
}

func (r *RoomRepo) ExistsActive(_ context.Context, code string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	room, ok := r.db.rooms[code]
	return ok && room.State != domain.RoomEnded, nil
}

func (r *RoomRepo) Update(_ context.Context, room *domain.Room) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.rooms[room.Code]; !ok {
		return repository.ErrNotFound
	}
	r.db.rooms[room.Code] = cloneRoom(*room)
	return nil
}

func (r *RoomRepo) Delete(_ context.Context, code string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	delete(r.db.rooms, code)
	return nil
}
