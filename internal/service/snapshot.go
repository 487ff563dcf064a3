package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/pkg/logger"
)

type PlayerView struct {
	ID       string      `json:"id"`
	Nickname string      `json:"nickname"`
	IsHost   bool        `json:"isHost"`
	Alive    bool        `json:"alive"`
	OrderNo  int         `json:"orderNo"`
	Role     domain.Role `json:"role,omitempty"`
	Word     *string     `json:"word,omitempty"`
}

type StatementView struct {
	ParticipantID string               `json:"playerId"`
	Kind          domain.StatementKind `json:"kind"`
	Pass          int                  `json:"pass"`
	Text          string               `json:"text"`
	Summary       string               `json:"summary"`
}

type RoundView struct {
	Index          int             `json:"index"`
	Phase          domain.Phase    `json:"phase"`
	Pass           int             `json:"pass"`
	AccusedID      *string         `json:"accusedId,omitempty"`
	Statements     []StatementView `json:"statements"`
	VotesCast      int             `json:"votesCast"`
	FinalVotesCast int             `json:"finalVotesCast"`
}

// Snapshot: состояние комнаты для клиента.
type Snapshot struct {
	Code         string           `json:"code"`
	State        domain.RoomState `json:"state"`
	Capacity     int              `json:"capacity"`
	RoundLimit   int              `json:"roundLimit"`
	CurrentRound int              `json:"currentRound"`
	ThemeGroup   string           `json:"themeGroup,omitempty"`
	HostID       string           `json:"hostId,omitempty"`
	Players      []PlayerView     `json:"players"`
	Round        *RoundView       `json:"round,omitempty"`
}

// forViewer раскрывает роль и слово только самому зрителю.
// В завершённой игре роли уже открыты всем.
func (s Snapshot) forViewer(viewer *domain.Participant) Snapshot {
	if viewer == nil {
		return s
	}
	players := make([]PlayerView, len(s.Players))
	copy(players, s.Players)
	for i := range players {
		if players[i].ID == viewer.ID {
			players[i].Role = viewer.Role
			players[i].Word = viewer.Word
		}
	}
	s.Players = players
	return s
}

// publicSnapshot собирает снимок без секретов.
func (s *GameService) publicSnapshot(ctx context.Context, room *domain.Room) (*Snapshot, error) {
	players, err := s.active(ctx, room.Code)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Code:         room.Code,
		State:        room.State,
		Capacity:     room.Capacity,
		RoundLimit:   room.RoundLimit,
		CurrentRound: room.CurrentRound,
		ThemeGroup:   room.ThemeGroup,
		Players:      make([]PlayerView, 0, len(players)),
	}
	reveal := room.State == domain.RoomEnded
	for _, p := range players {
		v := PlayerView{
			ID:       p.ID,
			Nickname: p.Nickname,
			IsHost:   p.IsHost,
			Alive:    p.Alive,
			OrderNo:  p.OrderNo,
		}
		if reveal {
			v.Role = p.Role
		}
		if p.IsHost {
			snap.HostID = p.ID
		}
		snap.Players = append(snap.Players, v)
	}

	if room.State != domain.RoomInRound {
		return snap, nil
	}
	round, err := s.roundAt(ctx, room)
	if err != nil {
		// раунд ещё не создан (идёт переход между раундами)
		if errors.Is(err, domain.ErrRoundNotFound) {
			return snap, nil
		}
		return nil, err
	}

	rv := &RoundView{
		Index:      round.Index,
		Phase:      round.Phase,
		Pass:       round.Pass,
		AccusedID:  round.AccusedID,
		Statements: []StatementView{},
	}
	stmts, err := s.store.Statements.ListByRound(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	for _, st := range stmts {
		rv.Statements = append(rv.Statements, StatementView{
			ParticipantID: st.ParticipantID,
			Kind:          st.Kind,
			Pass:          st.Pass,
			Text:          st.Text,
			Summary:       st.Summary,
		})
	}
	if rv.VotesCast, err = s.store.Ballots.Count(ctx, round.ID, false); err != nil {
		return nil, err
	}
	if rv.FinalVotesCast, err = s.store.Ballots.Count(ctx, round.ID, true); err != nil {
		return nil, err
	}
	snap.Round = rv
	return snap, nil
}

// cachedSnapshot: cache-aside над publicSnapshot. Ошибки кэша не фатальны.
func (s *GameService) cachedSnapshot(ctx context.Context, room *domain.Room) (*Snapshot, error) {
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, room.Code)
		if err != nil {
			slog.Warn("service.snapshot: cache get", logger.Room(room.Code), logger.Err(err))
		}
		if ok {
			var snap Snapshot
			if err := json.Unmarshal(raw, &snap); err == nil {
				return &snap, nil
			}
		}
	}

	snap, err := s.publicSnapshot(ctx, room)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if raw, err := json.Marshal(snap); err == nil {
			if err := s.cache.Set(ctx, room.Code, raw); err != nil {
				slog.Warn("service.snapshot: cache set", logger.Room(room.Code), logger.Err(err))
			}
		}
	}
	return snap, nil
}

// broadcastState рассылает ROOM_STATE_UPDATE с публичным снимком.
func (s *GameService) broadcastState(ctx context.Context, room *domain.Room) {
	snap, err := s.cachedSnapshot(ctx, room)
	if err != nil {
		slog.Warn("service.broadcastState:", logger.Room(room.Code), logger.Err(err))
		return
	}
	s.emit(ctx, room.Code, domain.EventRoomStateUpdate, nil, snap)
}

// RoomState: снимок комнаты глазами участника viewerID (может быть пустым).
func (s *GameService) RoomState(ctx context.Context, code, viewerID string) (*Snapshot, error) {
	var out Snapshot
	err := s.do(ctx, code, func(ctx context.Context) error {
		room, err := s.room(ctx, code)
		if err != nil {
			return err
		}
		snap, err := s.cachedSnapshot(ctx, room)
		if err != nil {
			return err
		}

		var viewer *domain.Participant
		if viewerID != "" {
			if viewer, err = s.member(ctx, code, viewerID); err != nil {
				return err
			}
		}
		out = snap.forViewer(viewer)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
