package game

import (
	"time"

	"github.com/cwrk-planet/liar-service/internal/domain"
)

var transitions = map[domain.Phase][]domain.Phase{
	domain.PhaseReady:                {domain.PhaseDescribing},
	domain.PhaseDescribing:           {domain.PhaseDescComplete},
	domain.PhaseDescComplete:         {domain.PhaseDescribing, domain.PhaseVoting},
	domain.PhaseVoting:               {domain.PhaseFinalDefense, domain.PhaseEnded},
	domain.PhaseFinalDefense:         {domain.PhaseFinalDefenseComplete},
	domain.PhaseFinalDefenseComplete: {domain.PhaseFinalVoting},
	domain.PhaseFinalVoting:          {domain.PhaseEnded},
}

func CanTransition(from, to domain.Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Require проверяет текущую фазу раунда.
func Require(r *domain.Round, want domain.Phase) error {
	if r.Phase != want {
		return domain.ErrPhaseMismatch
	}
	return nil
}

// Advance переводит раунд в следующую фазу, если переход разрешён.
func Advance(r *domain.Round, to domain.Phase, now time.Time) error {
	if !CanTransition(r.Phase, to) {
		return domain.ErrPhaseMismatch
	}
	if r.Phase == domain.PhaseDescComplete && to == domain.PhaseDescribing {
		r.Pass++
	}
	r.Phase = to
	if to == domain.PhaseEnded {
		t := now
		r.EndedAt = &t
	}
	return nil
}

func NewRound(id, roomCode string, idx int, now time.Time) *domain.Round {
	return &domain.Round{
		ID:        id,
		RoomCode:  roomCode,
		Index:     idx,
		Phase:     domain.PhaseReady,
		Pass:      1,
		StartedAt: now,
	}
}
