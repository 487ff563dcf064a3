package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/liar-service/internal/domain"
)

func TestAdvance_HappyPath(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRound("r1", "ROOM0001", 1, now)
	require.Equal(t, domain.PhaseReady, r.Phase)

	path := []domain.Phase{
		domain.PhaseDescribing,
		domain.PhaseDescComplete,
		domain.PhaseDescribing,
		domain.PhaseDescComplete,
		domain.PhaseVoting,
		domain.PhaseFinalDefense,
		domain.PhaseFinalDefenseComplete,
		domain.PhaseFinalVoting,
		domain.PhaseEnded,
	}
	for _, p := range path {
		require.NoError(t, Advance(r, p, now), "to %s", p)
	}
	assert.Equal(t, 2, r.Pass)
	require.NotNil(t, r.EndedAt)
	assert.Equal(t, now, *r.EndedAt)
}

func TestAdvance_Rejects(t *testing.T) {
	tests := []struct {
		from, to domain.Phase
	}{
		{domain.PhaseReady, domain.PhaseVoting},
		{domain.PhaseDescribing, domain.PhaseVoting},
		{domain.PhaseVoting, domain.PhaseFinalVoting},
		{domain.PhaseFinalDefense, domain.PhaseFinalVoting},
		{domain.PhaseEnded, domain.PhaseReady},
		{domain.PhaseEnded, domain.PhaseDescribing},
	}
	for _, tt := range tests {
		r := &domain.Round{Phase: tt.from}
		err := Advance(r, tt.to, time.Now())
		assert.ErrorIs(t, err, domain.ErrPhaseMismatch, "%s -> %s", tt.from, tt.to)
		assert.Equal(t, tt.from, r.Phase)
	}
}

func TestVotingMayEndRound(t *testing.T) {
	assert.True(t, CanTransition(domain.PhaseVoting, domain.PhaseEnded))
	assert.True(t, CanTransition(domain.PhaseVoting, domain.PhaseFinalDefense))
	assert.False(t, CanTransition(domain.PhaseFinalDefenseComplete, domain.PhaseEnded))
}

func TestRequire(t *testing.T) {
	r := &domain.Round{Phase: domain.PhaseVoting}
	assert.NoError(t, Require(r, domain.PhaseVoting))
	assert.ErrorIs(t, Require(r, domain.PhaseDescribing), domain.ErrPhaseMismatch)
}
