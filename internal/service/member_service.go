package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/cwrk-planet/liar-service/internal/audit"
	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/idgen"
	"github.com/cwrk-planet/liar-service/internal/repository"
	"github.com/cwrk-planet/liar-service/pkg/logger"
)

// JoinRoom добавляет участника в лобби. Первый вошедший становится хостом.
func (s *GameService) JoinRoom(ctx context.Context, code, nickname string) (*domain.Participant, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || utf8.RuneCountInString(nickname) > maxNicknameLen {
		return nil, domain.ErrInvalidNickname
	}

	var joined *domain.Participant
	err := s.do(ctx, code, func(ctx context.Context) error {
		room, err := s.room(ctx, code)
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
		if len(players) >= room.Capacity {
			return domain.ErrRoomFull
		}
		for _, p := range players {
			if strings.EqualFold(p.Nickname, nickname) {
				return domain.ErrNicknameTaken
			}
		}

		p := &domain.Participant{
			ID:       idgen.NewParticipantID(),
			RoomCode: code,
			Nickname: nickname,
			IsHost:   len(players) == 0,
			Role:     domain.RoleCitizen,
			Alive:    true,
			JoinedAt: s.now().UTC(),
		}
		if err := s.store.Participants.Add(ctx, p); err != nil {
			return fmt.Errorf("participants.Add: %w", err)
		}
		s.invalidate(ctx, code)

		s.emit(ctx, code, domain.EventPlayerJoined, p, map[string]any{
			"playerId": p.ID,
			"nickname": p.Nickname,
			"isHost":   p.IsHost,
		})
		s.broadcastState(ctx, room)
		s.record(ctx, code, p.ID, audit.ActionPlayerJoined, map[string]string{"nickname": p.Nickname})

		joined = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// Leave: явный выход или истечение окна переподключения.
// Повторный выход уже ушедшего участника ничего не делает.
func (s *GameService) Leave(ctx context.Context, code, participantID string) error {
	return s.do(ctx, code, func(ctx context.Context) error {
		p, err := s.store.Participants.Get(ctx, participantID)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrParticipantNotFound
		}
		if err != nil {
			return fmt.Errorf("participants.Get: %w", err)
		}
		if p.RoomCode != code {
			return domain.ErrParticipantNotFound
		}
		if !p.Active() {
			return nil
		}
		room, err := s.room(ctx, code)
		if err != nil {
			return err
		}
		s.presence.Forget(code, participantID)

		if p.IsHost {
			s.hostLeft(ctx, room, p)
			return nil
		}
		return s.participantLeft(ctx, room, p)
	})
}

func (s *GameService) hostLeft(ctx context.Context, room *domain.Room, host *domain.Participant) {
	s.removeRoom(ctx, room.Code)
	s.emit(ctx, room.Code, domain.EventRoomDeleted, host, map[string]string{
		"reason":  "HOST_LEFT",
		"message": "The host left the room.",
	})
	s.presence.DropRoom(room.Code)
	s.record(ctx, room.Code, host.ID, audit.ActionRoomDeleted, map[string]string{"reason": "HOST_LEFT"})
	slog.Info("room deleted: host left", logger.Room(room.Code))
}

func (s *GameService) participantLeft(ctx context.Context, room *domain.Room, p *domain.Participant) error {
	now := s.now().UTC()
	p.LeftAt = &now
	if err := s.store.Participants.Update(ctx, p); err != nil {
		return fmt.Errorf("participants.Update: %w", err)
	}

	if room.State == domain.RoomInRound {
		if err := s.abortGame(ctx, room); err != nil {
			return err
		}
		s.emit(ctx, room.Code, domain.EventGameInterrupted, p, map[string]string{
			"reason":  "PLAYER_LEFT",
			"message": fmt.Sprintf("%s left the game. Back to the lobby.", p.Nickname),
		})
		s.record(ctx, room.Code, p.ID, audit.ActionGameInterrupted, nil)
	} else {
		s.invalidate(ctx, room.Code)
		s.emit(ctx, room.Code, domain.EventPlayerLeft, p, map[string]string{
			"playerId": p.ID,
			"nickname": p.Nickname,
		})
	}

	s.broadcastState(ctx, room)
	s.record(ctx, room.Code, p.ID, audit.ActionPlayerLeft, nil)
	return nil
}

// abortGame возвращает комнату в лобби: раунды удаляются целиком,
// оставшиеся участники сбрасываются.
func (s *GameService) abortGame(ctx context.Context, room *domain.Room) error {
	s.cancelScheduled(room.Code)

	if err := s.store.Rounds.DeleteByRoom(ctx, room.Code); err != nil {
		return fmt.Errorf("rounds.DeleteByRoom: %w", err)
	}

	players, err := s.active(ctx, room.Code)
	if err != nil {
		return err
	}
	for i := range players {
		players[i].ResetForLobby()
		players[i].OrderNo = 0
	}
	if len(players) > 0 {
		if err := s.store.Participants.UpdateMany(ctx, players); err != nil {
			return fmt.Errorf("participants.UpdateMany: %w", err)
		}
	}

	room.State = domain.RoomLobby
	room.CurrentRound = 0
	return s.saveRoom(ctx, room)
}

// CanReconnect: участник всё ещё числится в комнате.
func (s *GameService) CanReconnect(ctx context.Context, code, participantID string) (bool, error) {
	if _, err := s.room(ctx, code); err != nil {
		return false, err
	}
	_, err := s.member(ctx, code, participantID)
	if domain.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
