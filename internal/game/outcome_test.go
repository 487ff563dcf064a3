package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/liar-service/internal/domain"
)

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateRoomCode()
		require.NoError(t, err)
		assert.Len(t, code, RoomCodeLength)
		assert.True(t, ValidRoomCode(code), code)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(RoomCodeChars, c))
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestValidRoomCode(t *testing.T) {
	assert.False(t, ValidRoomCode("abc"))
	assert.False(t, ValidRoomCode("abcdefgh"))
	assert.True(t, ValidRoomCode("AB12CD34"))
}

func TestDecide(t *testing.T) {
	room := &domain.Room{CurrentRound: 1, RoundLimit: 3}
	liar := &domain.Participant{Role: domain.RoleLiar}
	citizen := &domain.Participant{Role: domain.RoleCitizen}

	assert.Equal(t, WinnerCitizens, Decide(room, liar, 2))
	assert.Equal(t, WinnerLiar, Decide(room, citizen, 2))
	assert.Equal(t, WinnerNone, Decide(room, citizen, 3))
	assert.Equal(t, WinnerNone, Decide(room, nil, 4))

	last := &domain.Room{CurrentRound: 3, RoundLimit: 3}
	assert.Equal(t, WinnerLiar, Decide(last, nil, 4))
	assert.Equal(t, WinnerCitizens, Decide(last, liar, 3))
}

func TestBuildGameEnd(t *testing.T) {
	room := &domain.Room{CurrentRound: 2, RoundLimit: 3}
	ps := []domain.Participant{
		{ID: "1", Nickname: "ann", Role: domain.RoleCitizen},
		{ID: "2", Nickname: "bob", Role: domain.RoleLiar},
		{ID: "3", Nickname: "cat", Role: domain.RoleCitizen},
	}

	summary, personal := BuildGameEnd(room, ps, WinnerCitizens)
	assert.Equal(t, "2", summary.LiarID)
	assert.Equal(t, "bob", summary.LiarName)
	assert.Equal(t, 2, summary.TotalRounds)
	assert.Equal(t, 3, summary.MaxRounds)
	assert.Len(t, summary.Players, 3)
	assert.Empty(t, summary.Reason)

	require.Len(t, personal, 3)
	assert.Equal(t, "mission_failed", personal["2"].Reason)
	assert.Equal(t, "citizens_victory", personal["1"].Reason)
	assert.Contains(t, personal["3"].Message, "bob")

	_, personal = BuildGameEnd(&domain.Room{CurrentRound: 3, RoundLimit: 3}, ps, WinnerLiar)
	assert.Equal(t, "mission_success", personal["2"].Reason)
	assert.Contains(t, personal["2"].Message, "to the end")
	assert.Equal(t, "citizens_defeat", personal["1"].Reason)
	assert.Contains(t, personal["1"].Message, "stayed hidden")
}
