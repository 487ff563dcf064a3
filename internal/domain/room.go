package domain

import "time"

type RoomState string

const (
	RoomLobby   RoomState = "LOBBY"
	RoomInRound RoomState = "IN_ROUND"
	RoomEnded   RoomState = "ENDED"
)

const (
	MinPlayers = 3

	DefaultCapacity   = 8
	MaxCapacity       = 10
	DefaultRoundLimit = 3
	MaxRoundLimit     = 10
)

type Room struct {
	Code         string     `db:"code"`
	Capacity     int        `db:"capacity"`
	RoundLimit   int        `db:"round_limit"`
	State        RoomState  `db:"state"`
	CurrentRound int        `db:"current_round"` // 0: раунд не идёт
	ThemeGroup   string     `db:"theme_group"`
	WordA        string     `db:"word_a"`
	WordB        string     `db:"word_b"`
	CreatedAt    time.Time  `db:"created_at"`
	EndedAt      *time.Time `db:"ended_at"`
}

func (r *Room) LimitReached() bool {
	return r.CurrentRound >= r.RoundLimit
}

type Theme struct {
	ID     int64  `db:"id"`
	Group  string `db:"theme_group"`
	WordA  string `db:"word_a"`
	WordB  string `db:"word_b"`
	Active bool   `db:"active"`
}
