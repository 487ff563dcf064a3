package game

import (
	"sort"

	"github.com/cwrk-planet/liar-service/internal/domain"
)

type AccusationKind string

const (
	AccusedByMajority  AccusationKind = "majority"
	AccusedByPlurality AccusationKind = "plurality"
	NotAccused         AccusationKind = "none"
)

// Вывод для VOTE_RESULT.outcome
const (
	OutcomeAccused    = "accused"
	OutcomeNoMajority = "no_majority"
	OutcomeNoVotes    = "no_votes"
	OutcomeEliminated = "eliminated"
	OutcomeSurvived   = "survived"
)

type TargetCount struct {
	TargetID string `json:"playerId"`
	Votes    int    `json:"voteCount"`
}

type Accusation struct {
	Kind      AccusationKind
	TargetID  string
	Votes     int
	Threshold int
	Tie       bool
	Counts    []TargetCount // по убыванию голосов, затем по id
}

func (a Accusation) Accused() bool { return a.Kind != NotAccused }

func (a Accusation) Outcome() string {
	switch {
	case a.Accused():
		return OutcomeAccused
	case len(a.Counts) == 0:
		return OutcomeNoVotes
	default:
		return OutcomeNoMajority
	}
}

// TallyAccusation считает первичное голосование по числу живых N.
// Порог большинства floor(N/2)+1; иначе единоличный лидер с >= 2 голосами.
func TallyAccusation(ballots []domain.Ballot, aliveCount int) Accusation {
	res := Accusation{
		Kind:      NotAccused,
		Threshold: aliveCount/2 + 1,
		Counts:    CountTargets(ballots),
	}
	if len(res.Counts) == 0 {
		return res
	}

	top := res.Counts[0]
	leaders := 1
	for _, c := range res.Counts[1:] {
		if c.Votes != top.Votes {
			break
		}
		leaders++
	}
	res.Tie = leaders > 1

	// ничья на вершине не даёт обвинения ни по большинству, ни по относительному большинству
	if res.Tie {
		return res
	}

	switch {
	case top.Votes >= res.Threshold:
		res.Kind = AccusedByMajority
	case top.Votes >= 2:
		res.Kind = AccusedByPlurality
	default:
		return res
	}
	res.TargetID = top.TargetID
	res.Votes = top.Votes
	return res
}

// CountTargets groups non-final ballots by target.
func CountTargets(ballots []domain.Ballot) []TargetCount {
	counts := make(map[string]int)
	for _, b := range ballots {
		if b.Final {
			continue
		}
		counts[b.TargetID]++
	}

	out := make([]TargetCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, TargetCount{TargetID: id, Votes: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Votes != out[j].Votes {
			return out[i].Votes > out[j].Votes
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out
}

type Judgment struct {
	Eliminate  int
	Survive    int
	Eliminated bool
}

func (j Judgment) Outcome() string {
	if j.Eliminated {
		return OutcomeEliminated
	}
	return OutcomeSurvived
}

// TallyJudgment: простое большинство поданных голосов, ничья в пользу обвиняемого.
func TallyJudgment(ballots []domain.Ballot) Judgment {
	var j Judgment
	for _, b := range ballots {
		if !b.Final {
			continue
		}
		if b.Decision == domain.DecisionEliminate {
			j.Eliminate++
		} else {
			j.Survive++
		}
	}
	j.Eliminated = j.Eliminate > j.Survive
	return j
}
