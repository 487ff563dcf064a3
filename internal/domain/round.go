package domain

import "time"

type Phase string

const (
	PhaseReady                Phase = "READY"
	PhaseDescribing           Phase = "DESCRIBING"
	PhaseDescComplete         Phase = "DESC_COMPLETE"
	PhaseVoting               Phase = "VOTING"
	PhaseFinalDefense         Phase = "FINAL_DEFENSE"
	PhaseFinalDefenseComplete Phase = "FINAL_DEFENSE_COMPLETE"
	PhaseFinalVoting          Phase = "FINAL_VOTING"
	PhaseEnded                Phase = "ENDED"
)

type Round struct {
	ID        string     `db:"id"`
	RoomCode  string     `db:"room_code"`
	Index     int        `db:"idx"`
	Phase     Phase      `db:"phase"`
	Pass      int        `db:"pass"` // проход описаний, растёт при allow-more
	AccusedID *string    `db:"accused_id"`
	StartedAt time.Time  `db:"started_at"`
	EndedAt   *time.Time `db:"ended_at"`
}

type Decision string

const (
	DecisionSurvive   Decision = "SURVIVE"
	DecisionEliminate Decision = "ELIMINATE"
)

func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionSurvive, DecisionEliminate:
		return Decision(s), nil
	default:
		return "", ErrInvalidDecision
	}
}

type Ballot struct {
	ID        string    `db:"id"`
	RoundID   string    `db:"round_id"`
	VoterID   string    `db:"voter_id"`
	TargetID  string    `db:"target_id"`
	Final     bool      `db:"is_final"`
	Decision  Decision  `db:"decision"`
	CreatedAt time.Time `db:"created_at"`
}

type StatementKind string

const (
	StatementDescription StatementKind = "DESCRIPTION"
	StatementDefense     StatementKind = "DEFENSE"
)

type Statement struct {
	ID            string        `db:"id"`
	RoundID       string        `db:"round_id"`
	ParticipantID string        `db:"participant_id"`
	Kind          StatementKind `db:"kind"`
	Pass          int           `db:"pass"`
	Text          string        `db:"text"`
	Summary       string        `db:"summary"`
	CreatedAt     time.Time     `db:"created_at"`
}

const summaryLimit = 50

// Summarize обрезает текст до 50 символов (47 + "...").
func Summarize(text string) string {
	r := []rune(text)
	if len(r) <= summaryLimit {
		return text
	}
	return string(r[:summaryLimit-3]) + "..."
}
