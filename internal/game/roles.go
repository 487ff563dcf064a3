package game

import (
	"math/rand/v2"

	"github.com/cwrk-planet/liar-service/internal/domain"
)

// Rand is the subset of *rand.Rand the assigner needs.
type Rand interface {
	Shuffle(n int, swap func(i, j int))
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }
func (globalRand) IntN(n int) int                     { return rand.IntN(n) }

// DefaultRand использует глобальный источник math/rand/v2, безопасен для горутин.
var DefaultRand Rand = globalRand{}

type Assignment struct {
	LiarID string
	Word   string
	Order  []string // id в порядке выступления, начиная с первого
}

// AssignRoles раздаёт роли живым участникам на новый раунд.
// Порядок выступлений перемешивается отдельно, чтобы не выдавать лжеца.
func AssignRoles(rng Rand, alive []domain.Participant, wordA, wordB string) (Assignment, []domain.Participant, error) {
	if len(alive) == 0 {
		return Assignment{}, nil, domain.ErrNotEnoughPlayers
	}
	if rng == nil {
		rng = DefaultRand
	}

	out := make([]domain.Participant, len(alive))
	copy(out, alive)

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	word := wordA
	if rng.IntN(2) == 1 {
		word = wordB
	}

	liar := idx[0]
	for i := range out {
		if i == liar {
			out[i].Role = domain.RoleLiar
			out[i].Word = nil
			continue
		}
		w := word
		out[i].Role = domain.RoleCitizen
		out[i].Word = &w
	}

	rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	order := make([]string, len(idx))
	for pos, i := range idx {
		out[i].OrderNo = pos + 1
		order[pos] = out[i].ID
	}

	return Assignment{
		LiarID: out[liar].ID,
		Word:   word,
		Order:  order,
	}, out, nil
}
