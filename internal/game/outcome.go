package game

import (
	"fmt"

	"github.com/cwrk-planet/liar-service/internal/domain"
)

type Winner string

const (
	WinnerNone     Winner = ""
	WinnerCitizens Winner = "CITIZENS"
	WinnerLiar     Winner = "LIAR"
)

// Decide решает судьбу игры после завершения раунда.
// eliminated == nil: в раунде никто не выбыл.
func Decide(room *domain.Room, eliminated *domain.Participant, aliveAfter int) Winner {
	if eliminated != nil {
		if eliminated.Role == domain.RoleLiar {
			return WinnerCitizens
		}
		if aliveAfter < domain.MinPlayers {
			return WinnerLiar
		}
	}
	if room.LimitReached() {
		return WinnerLiar
	}
	return WinnerNone
}

type PlayerReveal struct {
	ID       string      `json:"playerId"`
	Nickname string      `json:"nickname"`
	Role     domain.Role `json:"role"`
}

type GameEnd struct {
	Winner      Winner         `json:"winner"`
	LiarID      string         `json:"liarId,omitempty"`
	LiarName    string         `json:"liarName"`
	TotalRounds int            `json:"totalRounds"`
	MaxRounds   int            `json:"maxRounds"`
	Players     []PlayerReveal `json:"players"`
	Reason      string         `json:"reason,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// BuildGameEnd собирает общий итог и персональные версии для каждого участника.
func BuildGameEnd(room *domain.Room, players []domain.Participant, winner Winner) (GameEnd, map[string]GameEnd) {
	base := GameEnd{
		Winner:      winner,
		LiarName:    "Unknown",
		TotalRounds: room.CurrentRound,
		MaxRounds:   room.RoundLimit,
		Players:     make([]PlayerReveal, 0, len(players)),
	}
	for _, p := range players {
		if p.Role == domain.RoleLiar {
			base.LiarID = p.ID
			base.LiarName = p.Nickname
		}
		base.Players = append(base.Players, PlayerReveal{ID: p.ID, Nickname: p.Nickname, Role: p.Role})
	}

	personal := make(map[string]GameEnd, len(players))
	for _, p := range players {
		msg := base
		msg.Reason, msg.Message = framing(p.Role, winner, room.LimitReached(), base.LiarName)
		personal[p.ID] = msg
	}
	return base, personal
}

func framing(role domain.Role, winner Winner, limitReached bool, liarName string) (reason, message string) {
	if role == domain.RoleLiar {
		if winner == WinnerLiar {
			if limitReached {
				return "mission_success", "Mission accomplished! You kept your identity hidden to the end."
			}
			return "mission_success", "Mission accomplished! Too few citizens remain to stop you."
		}
		return "mission_failed", "Mission failed. Your identity was discovered."
	}

	if winner == WinnerCitizens {
		return "citizens_victory", fmt.Sprintf("Citizens win! You found the liar %s.", liarName)
	}
	if limitReached {
		return "citizens_defeat", fmt.Sprintf("Citizens lose. The liar %s stayed hidden to the end.", liarName)
	}
	return "citizens_defeat", fmt.Sprintf("Citizens lose. The liar %s won.", liarName)
}
