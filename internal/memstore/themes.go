package memstore

import (
	"context"
	"math/rand/v2"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/repository"
)

// DefaultThemes используется, если темы не засеяны.
var DefaultThemes = []domain.Theme{
	{ID: 1, Group: "food", WordA: "pizza", WordB: "burger", Active: true},
	{ID: 2, Group: "food", WordA: "sushi", WordB: "kimbap", Active: true},
	{ID: 3, Group: "animals", WordA: "tiger", WordB: "lion", Active: true},
	{ID: 4, Group: "places", WordA: "beach", WordB: "pool", Active: true},
	{ID: 5, Group: "objects", WordA: "pencil", WordB: "pen", Active: true},
}

type ThemeSource struct{ db *DB }

func (s *ThemeSource) Pick(_ context.Context, group string) (*domain.Theme, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	all := s.db.themes
	if len(all) == 0 {
		all = DefaultThemes
	}

	candidates := make([]domain.Theme, 0, len(all))
	for _, t := range all {
		if t.Active && (group == "" || t.Group == group) {
			candidates = append(candidates, t)
		}
	}
	// группа не нашлась: берём любую тему
	if len(candidates) == 0 {
		candidates = append(candidates, all...)
	}
	if len(candidates) == 0 {
		return nil, repository.ErrNotFound
	}
	t := candidates[rand.IntN(len(candidates))]
	return &t, nil
}

type AuditRepo struct{ db *DB }

func (r *AuditRepo) Append(_ context.Context, e domain.AuditEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.audit = append(r.db.audit, e)
	return nil
}

// Entries returns a copy of the recorded audit trail.
func (r *AuditRepo) Entries() []domain.AuditEntry {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return append([]domain.AuditEntry(nil), r.db.audit...)
}
