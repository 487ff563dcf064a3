package domain

import "time"

type Role string

const (
	RoleCitizen Role = "CITIZEN"
	RoleLiar    Role = "LIAR"
)

type Participant struct {
	ID       string     `db:"id"`
	RoomCode string     `db:"room_code"`
	Nickname string     `db:"nickname"`
	IsHost   bool       `db:"is_host"`
	Role     Role       `db:"role"`
	Alive    bool       `db:"alive"`
	OrderNo  int        `db:"order_no"`
	Word     *string    `db:"word"`
	JoinedAt time.Time  `db:"joined_at"`
	LeftAt   *time.Time `db:"left_at"`
}

func (p *Participant) Active() bool {
	return p.LeftAt == nil
}

// ResetForLobby возвращает участника в нейтральное состояние лобби.
func (p *Participant) ResetForLobby() {
	p.Role = RoleCitizen
	p.Alive = true
	p.Word = nil
}

// AliveOf: активные и живые участники, порядок сохраняется.
func AliveOf(ps []Participant) []Participant {
	out := make([]Participant, 0, len(ps))
	for _, p := range ps {
		if p.Active() && p.Alive {
			out = append(out, p)
		}
	}
	return out
}

func FindParticipant(ps []Participant, id string) (*Participant, bool) {
	for i := range ps {
		if ps[i].ID == id {
			return &ps[i], true
		}
	}
	return nil, false
}
