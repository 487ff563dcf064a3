package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cwrk-planet/liar-service/internal/audit"
	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/game"
	"github.com/cwrk-planet/liar-service/internal/idgen"
	"github.com/cwrk-planet/liar-service/internal/repository"
)

type roundState struct {
	Round     int          `json:"round"`
	Phase     domain.Phase `json:"phase"`
	Pass      int          `json:"pass"`
	AccusedID *string      `json:"accusedId,omitempty"`
	Order     []string     `json:"order,omitempty"`
}

func (s *GameService) emitRound(ctx context.Context, r *domain.Round, order []string) {
	s.invalidate(ctx, r.RoomCode)
	s.emit(ctx, r.RoomCode, domain.EventRoundState, nil, roundState{
		Round:     r.Index,
		Phase:     r.Phase,
		Pass:      r.Pass,
		AccusedID: r.AccusedID,
		Order:     order,
	})
}

// StartGame запускает первый раунд. Только хост, минимум три участника.
func (s *GameService) StartGame(ctx context.Context, code, hostID string) error {
	return s.do(ctx, code, func(ctx context.Context) error {
		room, err := s.room(ctx, code)
		if err != nil {
			return err
		}
		host, err := s.host(ctx, code, hostID)
		if err != nil {
			return err
		}
		if room.State != domain.RoomLobby {
			return domain.ErrRoomNotInLobby
		}
		players, err := s.active(ctx, code)
		if err != nil {
			return err
		}
		if len(players) < domain.MinPlayers {
			return domain.ErrNotEnoughPlayers
		}

		for i := range players {
			players[i].ResetForLobby()
		}
		room.State = domain.RoomInRound
		room.CurrentRound = 1

		round, order, err := s.beginRound(ctx, room, players, 1)
		if err != nil {
			return err
		}
		if err := s.saveRoom(ctx, room); err != nil {
			return err
		}

		snap, err := s.publicSnapshot(ctx, room)
		if err != nil {
			return err
		}
		s.emit(ctx, code, domain.EventGameStarted, host, snap)
		s.emitRound(ctx, round, order)
		s.sendRoles(ctx, room, 1)
		s.record(ctx, code, host.ID, audit.ActionGameStarted, map[string]int{"players": len(players)})
		return nil
	})
}

// beginRound раздаёт роли живым и создаёт раунд idx в фазе READY.
// Возвращает созданный раунд и порядок выступлений.
func (s *GameService) beginRound(ctx context.Context, room *domain.Room, players []domain.Participant, idx int) (*domain.Round, []string, error) {
	alive := domain.AliveOf(players)
	if len(alive) < domain.MinPlayers {
		return nil, nil, domain.ErrNotEnoughPlayers
	}
	assignment, assigned, err := game.AssignRoles(s.rng, alive, room.WordA, room.WordB)
	if err != nil {
		return nil, nil, err
	}

	// выбывшие тоже сохраняются: у них сбрасываются порядок и слово прошлого раунда
	byID := make(map[string]domain.Participant, len(assigned))
	for _, p := range assigned {
		byID[p.ID] = p
	}
	for i := range players {
		if p, ok := byID[players[i].ID]; ok {
			players[i] = p
		} else {
			players[i].OrderNo = 0
			players[i].Word = nil
		}
	}
	if err := s.store.Participants.UpdateMany(ctx, players); err != nil {
		return nil, nil, fmt.Errorf("participants.UpdateMany: %w", err)
	}

	round := game.NewRound(idgen.NewULID(), room.Code, idx, s.now().UTC())
	if err := s.store.Rounds.Create(ctx, round); err != nil {
		return nil, nil, fmt.Errorf("rounds.Create: %w", err)
	}
	s.record(ctx, room.Code, "", audit.ActionRoundStarted, map[string]int{"round": idx})
	return round, assignment.Order, nil
}

type roleAssigned struct {
	Round   int         `json:"round"`
	Role    domain.Role `json:"role"`
	Word    *string     `json:"word"`
	OrderNo int         `json:"orderNo"`
}

// sendRoles: персональное ROLE_ASSIGNED каждому живому участнику.
func (s *GameService) sendRoles(ctx context.Context, room *domain.Room, idx int) {
	players, err := s.active(ctx, room.Code)
	if err != nil {
		return
	}
	for _, p := range domain.AliveOf(players) {
		s.emitTo(ctx, room.Code, p.ID, domain.EventRoleAssigned, roleAssigned{
			Round:   idx,
			Role:    p.Role,
			Word:    p.Word,
			OrderNo: p.OrderNo,
		})
	}
}

// startRound вызывается отложенно. Повторный вызов для существующего
// раунда ничего не меняет.
func (s *GameService) startRound(ctx context.Context, code string, idx int) error {
	room, err := s.room(ctx, code)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if room.State != domain.RoomInRound || room.CurrentRound != idx {
		return nil
	}

	exists, err := s.store.Rounds.Exists(ctx, code, idx)
	if err != nil {
		return fmt.Errorf("rounds.Exists: %w", err)
	}
	if exists {
		s.record(ctx, code, "", audit.ActionRoundAlreadyExists, map[string]int{"round": idx})
		return nil
	}

	players, err := s.active(ctx, code)
	if err != nil {
		return err
	}
	round, order, err := s.beginRound(ctx, room, players, idx)
	if err != nil {
		return err
	}
	s.emitRound(ctx, round, order)
	s.broadcastState(ctx, room)
	s.sendRoles(ctx, room, idx)
	return nil
}

// BeginDescriptions: хост открывает фазу описаний.
func (s *GameService) BeginDescriptions(ctx context.Context, code, hostID string) error {
	return s.hostTransition(ctx, code, hostID, domain.PhaseReady, domain.PhaseDescribing)
}

// AllowMoreDescriptions: ещё один проход описаний.
func (s *GameService) AllowMoreDescriptions(ctx context.Context, code, hostID string) error {
	return s.hostTransition(ctx, code, hostID, domain.PhaseDescComplete, domain.PhaseDescribing)
}

// StartJudgmentVoting: хост открывает финальное голосование.
func (s *GameService) StartJudgmentVoting(ctx context.Context, code, hostID string) error {
	return s.hostTransition(ctx, code, hostID, domain.PhaseFinalDefenseComplete, domain.PhaseFinalVoting)
}

func (s *GameService) hostTransition(ctx context.Context, code, hostID string, from, to domain.Phase) error {
	return s.do(ctx, code, func(ctx context.Context) error {
		room, err := s.room(ctx, code)
		if err != nil {
			return err
		}
		if _, err := s.host(ctx, code, hostID); err != nil {
			return err
		}
		round, err := s.currentRound(ctx, room)
		if err != nil {
			return err
		}
		if err := game.Require(round, from); err != nil {
			return err
		}
		if err := game.Advance(round, to, s.now().UTC()); err != nil {
			return err
		}
		if err := s.saveRound(ctx, round); err != nil {
			return err
		}
		s.emitRound(ctx, round, nil)
		return nil
	})
}

// RequestVotingPhase закрывает описания и открывает голосование.
func (s *GameService) RequestVotingPhase(ctx context.Context, code string) error {
	return s.do(ctx, code, func(ctx context.Context) error {
		room, err := s.room(ctx, code)
		if err != nil {
			return err
		}
		round, err := s.currentRound(ctx, room)
		if err != nil {
			return err
		}
		if err := game.Require(round, domain.PhaseDescComplete); err != nil {
			return err
		}
		if err := game.Advance(round, domain.PhaseVoting, s.now().UTC()); err != nil {
			return err
		}
		if err := s.saveRound(ctx, round); err != nil {
			return err
		}
		s.emitRound(ctx, round, nil)
		return nil
	})
}

func (s *GameService) validText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrEmptyText
	}
	if utf8.RuneCountInString(text) > s.maxTextLen {
		return "", domain.ErrTextTooLong
	}
	return text, nil
}

// SubmitStatement: одно описание на участника за проход.
func (s *GameService) SubmitStatement(ctx context.Context, code, participantID, text string) error {
	text, err := s.validText(text)
	if err != nil {
		return err
	}
	return s.do(ctx, code, func(ctx context.Context) error {
		room, err := s.room(ctx, code)
		if err != nil {
			return err
		}
		p, err := s.actor(ctx, code, participantID)
		if err != nil {
			return err
		}
		round, err := s.currentRound(ctx, room)
		if err != nil {
			return err
		}
		if err := game.Require(round, domain.PhaseDescribing); err != nil {
			return err
		}

		dup, err := s.store.Statements.Exists(ctx, round.ID, p.ID, domain.StatementDescription, round.Pass)
		if err != nil {
			return fmt.Errorf("statements.Exists: %w", err)
		}
		if dup {
			return domain.ErrAlreadySubmitted
		}

		st := &domain.Statement{
			ID:            idgen.NewULID(),
			RoundID:       round.ID,
			ParticipantID: p.ID,
			Kind:          domain.StatementDescription,
			Pass:          round.Pass,
			Text:          text,
			Summary:       domain.Summarize(text),
			CreatedAt:     s.now().UTC(),
		}
		if err := s.store.Statements.Insert(ctx, st); err != nil {
			return fmt.Errorf("statements.Insert: %w", err)
		}

		submitted, err := s.store.Statements.Count(ctx, round.ID, domain.StatementDescription, round.Pass)
		if err != nil {
			return fmt.Errorf("statements.Count: %w", err)
		}
		players, err := s.active(ctx, code)
		if err != nil {
			return err
		}
		required := len(domain.AliveOf(players))

		s.invalidate(ctx, code)
		s.emit(ctx, code, domain.EventDescUpdate, p, map[string]any{
			"description": st.Text,
			"summary":     st.Summary,
			"pass":        st.Pass,
			"submitted":   submitted,
			"required":    required,
		})
		s.record(ctx, code, p.ID, audit.ActionStatement, map[string]any{"round": round.Index, "pass": st.Pass})

		if submitted < required {
			return nil
		}
		if err := game.Advance(round, domain.PhaseDescComplete, s.now().UTC()); err != nil {
			return err
		}
		if err := s.saveRound(ctx, round); err != nil {
			return err
		}
		s.emitRound(ctx, round, nil)
		return nil
	})
}

// CastBallot: голос обвинения. Подсчёт запускается ровно один раз,
// когда проголосовали все живые.
func (s *GameService) CastBallot(ctx context.Context, code, voterID, targetID string) error {
	if voterID == targetID {
		return domain.ErrSelfVote
	}
	return s.do(ctx, code, func(ctx context.Context) error {
		room, err := s.room(ctx, code)
		if err != nil {
			return err
		}
		voter, err := s.actor(ctx, code, voterID)
		if err != nil {
			return err
		}
		round, err := s.currentRound(ctx, room)
		if err != nil {
			return err
		}
		if err := game.Require(round, domain.PhaseVoting); err != nil {
			return err
		}
		target, err := s.member(ctx, code, targetID)
		if err != nil || !target.Alive {
			return domain.ErrInvalidTarget
		}

		err = s.store.Ballots.Insert(ctx, &domain.Ballot{
			ID:        idgen.NewULID(),
			RoundID:   round.ID,
			VoterID:   voter.ID,
			TargetID:  target.ID,
			CreatedAt: s.now().UTC(),
		})
		if errors.Is(err, repository.ErrAlreadyExists) {
			return domain.ErrAlreadyVoted
		}
		if err != nil {
			return fmt.Errorf("ballots.Insert: %w", err)
		}

		cast, err := s.store.Ballots.Count(ctx, round.ID, false)
		if err != nil {
			return fmt.Errorf("ballots.Count: %w", err)
		}
		players, err := s.active(ctx, code)
		if err != nil {
			return err
		}
		alive := len(domain.AliveOf(players))

		s.invalidate(ctx, code)
		s.emit(ctx, code, domain.EventVoteUpdate, voter, map[string]any{
			"final":     false,
			"votesCast": cast,
			"required":  alive,
		})
		s.record(ctx, code, voter.ID, audit.ActionBallot, map[string]string{"targetId": target.ID})

		if cast < alive {
			return nil
		}
		return s.closeAccusation(ctx, room, round, alive)
	})
}

func (s *GameService) closeAccusation(ctx context.Context, room *domain.Room, round *domain.Round, alive int) error {
	ballots, err := s.store.Ballots.ListByRound(ctx, round.ID, false)
	if err != nil {
		return fmt.Errorf("ballots.ListByRound: %w", err)
	}
	acc := game.TallyAccusation(ballots, alive)

	s.emit(ctx, room.Code, domain.EventVoteResult, nil, map[string]any{
		"stage":     "accusation",
		"outcome":   acc.Outcome(),
		"kind":      acc.Kind,
		"accusedId": acc.TargetID,
		"votes":     acc.Votes,
		"threshold": acc.Threshold,
		"tie":       acc.Tie,
		"counts":    acc.Counts,
	})

	if acc.Accused() {
		accused := acc.TargetID
		round.AccusedID = &accused
		if err := game.Advance(round, domain.PhaseFinalDefense, s.now().UTC()); err != nil {
			return err
		}
		if err := s.saveRound(ctx, round); err != nil {
			return err
		}
		s.emitRound(ctx, round, nil)
		return nil
	}

	if err := game.Advance(round, domain.PhaseEnded, s.now().UTC()); err != nil {
		return err
	}
	if err := s.saveRound(ctx, round); err != nil {
		return err
	}
	s.emitRound(ctx, round, nil)
	return s.progress(ctx, room, nil)
}

// SubmitDefense: последнее слово обвиняемого.
func (s *GameService) SubmitDefense(ctx context.Context, code, participantID, text string) error {
	text, err := s.validText(text)
	if err != nil {
		return err
	}
	return s.do(ctx, code, func(ctx context.Context) error {
		room, err := s.room(ctx, code)
		if err != nil {
			return err
		}
		p, err := s.actor(ctx, code, participantID)
		if err != nil {
			return err
		}
		round, err := s.currentRound(ctx, room)
		if err != nil {
			return err
		}
		if err := game.Require(round, domain.PhaseFinalDefense); err != nil {
			return err
		}
		if round.AccusedID == nil || *round.AccusedID != p.ID {
			return domain.ErrNotAccused
		}

		st := &domain.Statement{
			ID:            idgen.NewULID(),
			RoundID:       round.ID,
			ParticipantID: p.ID,
			Kind:          domain.StatementDefense,
			Pass:          round.Pass,
			Text:          text,
			Summary:       domain.Summarize(text),
			CreatedAt:     s.now().UTC(),
		}
		if err := s.store.Statements.Insert(ctx, st); err != nil {
			return fmt.Errorf("statements.Insert: %w", err)
		}
		if err := game.Advance(round, domain.PhaseFinalDefenseComplete, s.now().UTC()); err != nil {
			return err
		}
		if err := s.saveRound(ctx, round); err != nil {
			return err
		}

		s.invalidate(ctx, code)
		s.emit(ctx, code, domain.EventFinalDefenseComplete, p, map[string]string{
			"defense": st.Text,
			"summary": st.Summary,
		})
		s.emitRound(ctx, round, nil)
		s.record(ctx, code, p.ID, audit.ActionDefense, map[string]int{"round": round.Index})
		return nil
	})
}

// CastJudgmentBallot: финальный голос: казнить или оставить.
func (s *GameService) CastJudgmentBallot(ctx context.Context, code, voterID, decision string) error {
	d, err := domain.ParseDecision(strings.ToUpper(strings.TrimSpace(decision)))
	if err != nil {
		return err
	}
	return s.do(ctx, code, func(ctx context.Context) error {
		room, err := s.room(ctx, code)
		if err != nil {
			return err
		}
		voter, err := s.actor(ctx, code, voterID)
		if err != nil {
			return err
		}
		round, err := s.currentRound(ctx, room)
		if err != nil {
			return err
		}
		if err := game.Require(round, domain.PhaseFinalVoting); err != nil {
			return err
		}
		if round.AccusedID == nil {
			return domain.ErrPhaseMismatch
		}
		if *round.AccusedID == voter.ID {
			return domain.ErrAccusedCannotVote
		}

		err = s.store.Ballots.Insert(ctx, &domain.Ballot{
			ID:        idgen.NewULID(),
			RoundID:   round.ID,
			VoterID:   voter.ID,
			TargetID:  *round.AccusedID,
			Final:     true,
			Decision:  d,
			CreatedAt: s.now().UTC(),
		})
		if errors.Is(err, repository.ErrAlreadyExists) {
			return domain.ErrAlreadyVoted
		}
		if err != nil {
			return fmt.Errorf("ballots.Insert: %w", err)
		}

		cast, err := s.store.Ballots.Count(ctx, round.ID, true)
		if err != nil {
			return fmt.Errorf("ballots.Count: %w", err)
		}
		players, err := s.active(ctx, code)
		if err != nil {
			return err
		}
		eligible := len(domain.AliveOf(players)) - 1

		s.invalidate(ctx, code)
		s.emit(ctx, code, domain.EventVoteUpdate, voter, map[string]any{
			"final":     true,
			"votesCast": cast,
			"required":  eligible,
		})
		s.record(ctx, code, voter.ID, audit.ActionJudgmentBallot, map[string]string{"decision": string(d)})

		if cast < eligible {
			return nil
		}
		return s.closeJudgment(ctx, room, round, players)
	})
}

func (s *GameService) closeJudgment(ctx context.Context, room *domain.Room, round *domain.Round, players []domain.Participant) error {
	ballots, err := s.store.Ballots.ListByRound(ctx, round.ID, true)
	if err != nil {
		return fmt.Errorf("ballots.ListByRound: %w", err)
	}
	j := game.TallyJudgment(ballots)

	accused, ok := domain.FindParticipant(players, *round.AccusedID)
	if !ok {
		return domain.ErrParticipantNotFound
	}

	result := map[string]any{
		"stage":     "judgment",
		"outcome":   j.Outcome(),
		"accusedId": accused.ID,
		"eliminate": j.Eliminate,
		"survive":   j.Survive,
	}
	var eliminated *domain.Participant
	if j.Eliminated {
		accused.Alive = false
		if err := s.store.Participants.Update(ctx, accused); err != nil {
			return fmt.Errorf("participants.Update: %w", err)
		}
		eliminated = accused
		result["role"] = accused.Role
	}
	s.emit(ctx, room.Code, domain.EventVoteResult, nil, result)

	if err := game.Advance(round, domain.PhaseEnded, s.now().UTC()); err != nil {
		return err
	}
	if err := s.saveRound(ctx, round); err != nil {
		return err
	}
	s.emitRound(ctx, round, nil)
	return s.progress(ctx, room, eliminated)
}

// progress решает, что дальше после завершённого раунда.
func (s *GameService) progress(ctx context.Context, room *domain.Room, eliminated *domain.Participant) error {
	players, err := s.active(ctx, room.Code)
	if err != nil {
		return err
	}
	if winner := game.Decide(room, eliminated, len(domain.AliveOf(players))); winner != game.WinnerNone {
		return s.endGame(ctx, room, winner)
	}

	room.CurrentRound++
	if err := s.saveRoom(ctx, room); err != nil {
		return err
	}
	s.emit(ctx, room.Code, domain.EventRoundTransition, nil, map[string]any{
		"nextRound": room.CurrentRound,
		"maxRounds": room.RoundLimit,
		"delayMs":   s.transitionDelay.Milliseconds(),
	})
	s.schedule(room.Code, room.CurrentRound)
	return nil
}

// AdvanceRound: хост форсирует продвижение: запускает ожидающий
// раунд сразу или завершает обработку законченного.
func (s *GameService) AdvanceRound(ctx context.Context, code, hostID string) error {
	return s.do(ctx, code, func(ctx context.Context) error {
		room, err := s.room(ctx, code)
		if err != nil {
			return err
		}
		host, err := s.host(ctx, code, hostID)
		if err != nil {
			return err
		}
		if room.State != domain.RoomInRound {
			return domain.ErrGameNotInProgress
		}

		round, err := s.roundAt(ctx, room)
		switch {
		case errors.Is(err, domain.ErrRoundNotFound):
			s.cancelScheduled(code)
			if err := s.startRound(ctx, code, room.CurrentRound); err != nil {
				return err
			}
		case err != nil:
			return err
		case round.Phase == domain.PhaseEnded:
			if err := s.progress(ctx, room, nil); err != nil {
				return err
			}
		default:
			return domain.ErrPhaseMismatch
		}

		s.record(ctx, code, host.ID, audit.ActionProceedNextRound, map[string]int{"round": room.CurrentRound})
		return nil
	})
}
