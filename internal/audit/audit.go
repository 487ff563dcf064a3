// Package audit записывает действия игроков. Запись никогда не блокирует игру:
// ошибки логируются и проглатываются.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/repository"
	"github.com/cwrk-planet/liar-service/pkg/logger"
)

const (
	ActionRoomCreated        = "ROOM_CREATED"
	ActionPlayerJoined       = "PLAYER_JOINED"
	ActionPlayerLeft         = "PLAYER_LEFT"
	ActionGameStarted        = "GAME_STARTED"
	ActionRoundStarted       = "ROUND_STARTED"
	ActionRoundAlreadyExists = "ROUND_ALREADY_EXISTS"
	ActionStatement          = "STATEMENT_SUBMITTED"
	ActionBallot             = "BALLOT_CAST"
	ActionDefense            = "DEFENSE_SUBMITTED"
	ActionJudgmentBallot     = "JUDGMENT_BALLOT_CAST"
	ActionProceedNextRound   = "PROCEED_NEXT_ROUND"
	ActionGameInterrupted    = "GAME_INTERRUPTED"
	ActionGameEnded          = "GAME_ENDED"
	ActionRoomDeleted        = "ROOM_DELETED"
	ActionRoomRecreated      = "ROOM_RECREATED"
)

type Sink interface {
	Write(ctx context.Context, e domain.AuditEntry) error
}

// RepoSink пишет аудит в хранилище (таблица audit_log).
type RepoSink struct {
	repo repository.AuditRepository
}

func NewRepoSink(repo repository.AuditRepository) *RepoSink {
	return &RepoSink{repo: repo}
}

func (s *RepoSink) Write(ctx context.Context, e domain.AuditEntry) error {
	return s.repo.Append(ctx, e)
}

// Multi пишет во все приёмники, собирая ошибки.
type Multi []Sink

func (m Multi) Write(ctx context.Context, e domain.AuditEntry) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Discard struct{}

func (Discard) Write(context.Context, domain.AuditEntry) error { return nil }

// Async: буферизованная очередь записей с одним воркером.
// При переполнении буфера или после Close запись отбрасывается.
type Async struct {
	sink    Sink
	ch      chan domain.AuditEntry
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAsync(sink Sink, buffer int) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	a := &Async{
		sink:    sink,
		ch:      make(chan domain.AuditEntry, buffer),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Write(_ context.Context, e domain.AuditEntry) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		slog.Debug("audit: queue closed, entry dropped",
			logger.Room(e.RoomCode),
			slog.String("action", e.Action))
		return nil
	}

	select {
	case a.ch <- e:
	default:
		slog.Warn("audit: buffer full, entry dropped",
			logger.Room(e.RoomCode),
			slog.String("action", e.Action))
	}
	return nil
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.sink.Write(ctx, e); err != nil {
			slog.Warn("audit: write failed",
				logger.Room(e.RoomCode),
				slog.String("action", e.Action),
				logger.Err(err))
		}
		cancel()
	}
}

// Close дожидается записи всего, что уже в очереди.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
