package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/liar-service/internal/audit"
	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/game"
	"github.com/cwrk-planet/liar-service/internal/idgen"
	"github.com/cwrk-planet/liar-service/internal/repository"
	"github.com/cwrk-planet/liar-service/pkg/logger"
)

type CreateRoomInput struct {
	Capacity   int
	RoundLimit int
	ThemeGroup string
}

func clamp(v, def, lo, hi int) int {
	if v <= 0 {
		return def
	}
	return min(max(v, lo), hi)
}

// CreateRoom создаёт комнату в лобби с уникальным среди активных комнат кодом.
func (s *GameService) CreateRoom(ctx context.Context, in CreateRoomInput) (*domain.Room, error) {
	room, err := s.createRoom(ctx, in)
	if err != nil {
		return nil, err
	}
	s.record(ctx, room.Code, "", audit.ActionRoomCreated, map[string]any{
		"capacity":   room.Capacity,
		"roundLimit": room.RoundLimit,
		"themeGroup": room.ThemeGroup,
	})
	slog.Info("room created", logger.Room(room.Code))
	return room, nil
}

func (s *GameService) createRoom(ctx context.Context, in CreateRoomInput) (*domain.Room, error) {
	theme, err := s.store.Themes.Pick(ctx, in.ThemeGroup)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrThemeNotFound
		}
		return nil, fmt.Errorf("themes.Pick: %w", err)
	}

	room := &domain.Room{
		Capacity:   clamp(in.Capacity, domain.DefaultCapacity, domain.MinPlayers, domain.MaxCapacity),
		RoundLimit: clamp(in.RoundLimit, domain.DefaultRoundLimit, 1, domain.MaxRoundLimit),
		State:      domain.RoomLobby,
		ThemeGroup: theme.Group,
		WordA:      theme.WordA,
		WordB:      theme.WordB,
		CreatedAt:  s.now().UTC(),
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := game.GenerateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("GenerateRoomCode: %w", err)
		}
		taken, err := s.store.Rooms.ExistsActive(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("rooms.ExistsActive: %w", err)
		}
		if taken {
			continue
		}

		room.Code = code
		err = s.store.Rooms.Create(ctx, room)
		if errors.Is(err, repository.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("rooms.Create: %w", err)
		}
		return room, nil
	}
	return nil, errors.New("service.CreateRoom: could not allocate a room code")
}

type RematchResult struct {
	NewCode   string            `json:"newRoomCode"`
	IDMapping map[string]string `json:"playerMapping"`
}

// Rematch переносит состав завершённой игры в новую комнату и удаляет старую.
func (s *GameService) Rematch(ctx context.Context, code, hostID string) (*RematchResult, error) {
	var res *RematchResult
	err := s.do(ctx, code, func(ctx context.Context) error {
		room, err := s.room(ctx, code)
		if err != nil {
			return err
		}
		host, err := s.host(ctx, code, hostID)
		if err != nil {
			return err
		}
		if room.State != domain.RoomEnded {
			return domain.ErrGameNotEnded
		}

		players, err := s.active(ctx, code)
		if err != nil {
			return err
		}
		next, err := s.createRoom(ctx, CreateRoomInput{
			Capacity:   room.Capacity,
			RoundLimit: room.RoundLimit,
			ThemeGroup: room.ThemeGroup,
		})
		if err != nil {
			return err
		}

		res = &RematchResult{NewCode: next.Code, IDMapping: make(map[string]string, len(players))}
		now := s.now().UTC()
		for _, p := range players {
			fresh := &domain.Participant{
				ID:       idgen.NewParticipantID(),
				RoomCode: next.Code,
				Nickname: p.Nickname,
				IsHost:   p.IsHost,
				Role:     domain.RoleCitizen,
				Alive:    true,
				JoinedAt: now,
			}
			if err := s.store.Participants.Add(ctx, fresh); err != nil {
				return fmt.Errorf("participants.Add: %w", err)
			}
			res.IDMapping[p.ID] = fresh.ID
		}

		s.emit(ctx, code, domain.EventRoomRecreated, host, res)
		s.removeRoom(ctx, code)
		s.presence.DropRoom(code)
		s.record(ctx, next.Code, host.ID, audit.ActionRoomRecreated, map[string]string{"previousRoomCode": code})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type cleanupStep struct {
	name string
	fn   func(context.Context, string) error
}

// removeRoom удаляет всё, что принадлежит комнате. Каждый шаг выполняется,
// даже если предыдущий упал.
func (s *GameService) removeRoom(ctx context.Context, code string) {
	s.cancelScheduled(code)

	steps := []cleanupStep{
		{"rounds.DeleteByRoom", s.store.Rounds.DeleteByRoom},
		{"participants.DeleteByRoom", s.store.Participants.DeleteByRoom},
		{"rooms.Delete", s.store.Rooms.Delete},
	}
	if s.cache != nil {
		steps = append(steps, cleanupStep{"cache.Purge", s.cache.Purge})
	}

	for _, step := range steps {
		if err := step.fn(ctx, code); err != nil {
			slog.Error("service.removeRoom: "+step.name, logger.Room(code), logger.Err(err))
		}
	}
}

// endGame закрывает игру и рассылает итоги: общий и персональные.
func (s *GameService) endGame(ctx context.Context, room *domain.Room, winner game.Winner) error {
	now := s.now().UTC()
	room.State = domain.RoomEnded
	room.EndedAt = &now
	if err := s.saveRoom(ctx, room); err != nil {
		return err
	}
	s.cancelScheduled(room.Code)

	players, err := s.active(ctx, room.Code)
	if err != nil {
		return err
	}
	summary, personal := game.BuildGameEnd(room, players, winner)

	s.emit(ctx, room.Code, domain.EventGameEnd, nil, summary)
	for id, msg := range personal {
		s.emitTo(ctx, room.Code, id, domain.EventGameEnd, msg)
	}
	s.broadcastState(ctx, room)

	s.record(ctx, room.Code, "", audit.ActionGameEnded, map[string]any{
		"winner":      winner,
		"liarId":      summary.LiarID,
		"totalRounds": summary.TotalRounds,
	})
	slog.Info("game ended", logger.Room(room.Code), slog.String("winner", string(winner)))
	return nil
}
