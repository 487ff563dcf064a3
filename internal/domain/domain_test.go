package domain

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	short := "red fruit, grows on trees"
	assert.Equal(t, short, Summarize(short))

	exact := strings.Repeat("a", 50)
	assert.Equal(t, exact, Summarize(exact))

	long := strings.Repeat("b", 51)
	got := Summarize(long)
	assert.Equal(t, strings.Repeat("b", 47)+"...", got)
	assert.Len(t, []rune(got), 50)
}

func TestSummarize_Runes(t *testing.T) {
	long := strings.Repeat("사", 60)
	got := Summarize(long)
	assert.Equal(t, strings.Repeat("사", 47)+"...", got)
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("service.CastBallot: %w", ErrAlreadyVoted)

	assert.True(t, IsRule(err))
	assert.False(t, IsPhase(err))
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.Equal(t, KindNotFound, KindOf(ErrRoomNotFound))
	assert.Equal(t, KindAuthorization, KindOf(ErrNotHost))
	assert.Equal(t, KindUnknown, KindOf(fmt.Errorf("boom")))
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("ELIMINATE")
	assert.NoError(t, err)
	assert.Equal(t, DecisionEliminate, d)

	_, err = ParseDecision("maybe")
	assert.ErrorIs(t, err, ErrInvalidDecision)
}

func TestAliveOf(t *testing.T) {
	ps := []Participant{
		{ID: "a", Alive: true},
		{ID: "b", Alive: false},
		{ID: "c", Alive: true},
	}
	now := ps[0].JoinedAt
	ps[2].LeftAt = &now

	alive := AliveOf(ps)
	assert.Len(t, alive, 1)
	assert.Equal(t, "a", alive[0].ID)
}
