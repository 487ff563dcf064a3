package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/liar-service/internal/audit"
	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/game"
	"github.com/cwrk-planet/liar-service/internal/idgen"
	"github.com/cwrk-planet/liar-service/internal/presence"
	"github.com/cwrk-planet/liar-service/internal/repository"
	"github.com/cwrk-planet/liar-service/pkg/logger"
)

// Broadcaster доставляет события подписчикам комнаты.
// Ошибки доставки реализация логирует сама.
type Broadcaster interface {
	Broadcast(ctx context.Context, code string, ev domain.Event)
	SendTo(ctx context.Context, code, participantID string, ev domain.Event)
}

// StateCache: кэш публичного снимка комнаты.
type StateCache interface {
	Get(ctx context.Context, code string) ([]byte, bool, error)
	Set(ctx context.Context, code string, snapshot []byte) error
	Invalidate(ctx context.Context, code string) error
	Purge(ctx context.Context, code string) error
}

const (
	DefaultTransitionDelay = 3 * time.Second
	DefaultMaxTextLen      = 500
	maxNicknameLen         = 20
	codeAttempts           = 10
)

type Options struct {
	GraceWindow     time.Duration
	TransitionDelay time.Duration
	MaxTextLen      int
}

type Deps struct {
	Store       repository.Store
	Broadcaster Broadcaster
	Cache       StateCache // может быть nil
	Audit       audit.Sink // может быть nil
	Rand        game.Rand
	Now         func() time.Time
}

type GameService struct {
	store repository.Store
	bc    Broadcaster
	cache StateCache
	audit audit.Sink
	rng   game.Rand
	now   func() time.Time

	dir      *Directory
	presence *presence.Tracker

	transitionDelay time.Duration
	maxTextLen      int

	timersMu sync.Mutex
	timers   map[string]*time.Timer
	closed   bool
}

func NewGameService(deps Deps, opts Options) *GameService {
	s := &GameService{
		store:           deps.Store,
		bc:              deps.Broadcaster,
		cache:           deps.Cache,
		audit:           deps.Audit,
		rng:             deps.Rand,
		now:             deps.Now,
		dir:             NewDirectory(),
		transitionDelay: opts.TransitionDelay,
		maxTextLen:      opts.MaxTextLen,
		timers:          make(map[string]*time.Timer),
	}
	if s.audit == nil {
		s.audit = audit.Discard{}
	}
	if s.rng == nil {
		s.rng = game.DefaultRand
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.transitionDelay <= 0 {
		s.transitionDelay = DefaultTransitionDelay
	}
	if s.maxTextLen <= 0 {
		s.maxTextLen = DefaultMaxTextLen
	}
	s.presence = presence.NewTracker(opts.GraceWindow, s.onGraceExpired)
	return s
}

// Close останавливает отложенные раунды и таймеры присутствия.
func (s *GameService) Close() {
	s.timersMu.Lock()
	s.closed = true
	for code, t := range s.timers {
		t.Stop()
		delete(s.timers, code)
	}
	s.timersMu.Unlock()

	s.presence.Close()
}

// --- side effects: никогда не откатывают уже сделанную мутацию ---

// outbox копит события операции; они уходят после освобождения слота комнаты.
type outbox struct {
	items []outgoing
}

type outgoing struct {
	to string // пусто: всей комнате
	ev domain.Event
}

type outboxKey struct{}

// do выполняет мутацию комнаты под её слотом. События, накопленные в fn,
// доставляются вне слота, в порядке операций.
func (s *GameService) do(ctx context.Context, code string, fn func(ctx context.Context) error) error {
	ob := &outbox{}
	ctx = context.WithValue(ctx, outboxKey{}, ob)

	return s.dir.DoThen(ctx, code, func(ctx context.Context) (func(), error) {
		err := fn(ctx)
		if len(ob.items) == 0 {
			return nil, err
		}
		return func() { s.deliver(context.WithoutCancel(ctx), ob.items) }, err
	})
}

func (s *GameService) deliver(ctx context.Context, items []outgoing) {
	if s.bc == nil {
		return
	}
	for _, it := range items {
		if it.to == "" {
			s.bc.Broadcast(ctx, it.ev.RoomCode, it.ev)
		} else {
			s.bc.SendTo(ctx, it.ev.RoomCode, it.to, it.ev)
		}
	}
}

func (s *GameService) push(ctx context.Context, it outgoing) {
	if ob, ok := ctx.Value(outboxKey{}).(*outbox); ok {
		ob.items = append(ob.items, it)
		return
	}
	s.deliver(ctx, []outgoing{it})
}

func (s *GameService) emit(ctx context.Context, code string, typ domain.EventType, actor *domain.Participant, payload any) {
	s.push(ctx, outgoing{ev: s.event(code, typ, actor, payload)})
}

func (s *GameService) emitTo(ctx context.Context, code, participantID string, typ domain.EventType, payload any) {
	s.push(ctx, outgoing{to: participantID, ev: s.event(code, typ, nil, payload)})
}

func (s *GameService) event(code string, typ domain.EventType, actor *domain.Participant, payload any) domain.Event {
	ev := domain.Event{
		Type:     typ,
		RoomCode: code,
		Payload:  payload,
		At:       s.now().UTC(),
	}
	if actor != nil {
		ev.ActorID = actor.ID
		ev.ActorName = actor.Nickname
	}
	return ev
}

func (s *GameService) record(ctx context.Context, code, participantID, action string, payload any) {
	var body string
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			slog.Warn("service.audit: marshal", slog.String("action", action), logger.Err(err))
		}
		body = string(b)
	}
	err := s.audit.Write(ctx, domain.AuditEntry{
		ID:            idgen.NewULID(),
		RoomCode:      code,
		ParticipantID: participantID,
		Action:        action,
		Payload:       body,
		At:            s.now().UTC(),
	})
	if err != nil {
		slog.Warn("service.audit:", slog.String("action", action), logger.Err(err))
	}
}

func (s *GameService) invalidate(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, code); err != nil {
		slog.Warn("service.invalidate:", logger.Room(code), logger.Err(err))
	}
}

// --- lookups ---

func (s *GameService) room(ctx context.Context, code string) (*domain.Room, error) {
	room, err := s.store.Rooms.Get(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("rooms.Get: %w", err)
	}
	return room, nil
}

// member: активный участник именно этой комнаты.
func (s *GameService) member(ctx context.Context, code, id string) (*domain.Participant, error) {
	if id == "" {
		return nil, domain.ErrParticipantNotFound
	}
	p, err := s.store.Participants.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("participants.Get: %w", err)
	}
	if p.RoomCode != code || !p.Active() {
		return nil, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (s *GameService) host(ctx context.Context, code, id string) (*domain.Participant, error) {
	p, err := s.member(ctx, code, id)
	if err != nil {
		return nil, err
	}
	if !p.IsHost {
		return nil, domain.ErrNotHost
	}
	return p, nil
}

// actor: живой участник, который совершает игровое действие.
func (s *GameService) actor(ctx context.Context, code, id string) (*domain.Participant, error) {
	p, err := s.member(ctx, code, id)
	if err != nil {
		return nil, err
	}
	if !p.Alive {
		return nil, domain.ErrDeadParticipant
	}
	return p, nil
}

func (s *GameService) active(ctx context.Context, code string) ([]domain.Participant, error) {
	ps, err := s.store.Participants.ListActive(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("participants.ListActive: %w", err)
	}
	return ps, nil
}

// currentRound: текущий раунд для игрового действия. Пока следующий
// раунд ещё не создан, любое действие не к месту по фазе.
func (s *GameService) currentRound(ctx context.Context, room *domain.Room) (*domain.Round, error) {
	r, err := s.roundAt(ctx, room)
	if errors.Is(err, domain.ErrRoundNotFound) {
		return nil, domain.ErrPhaseMismatch
	}
	return r, err
}

// roundAt: раунд room.CurrentRound; ErrRoundNotFound в паузе между раундами.
func (s *GameService) roundAt(ctx context.Context, room *domain.Room) (*domain.Round, error) {
	if room.State != domain.RoomInRound {
		return nil, domain.ErrGameNotInProgress
	}
	r, err := s.store.Rounds.Get(ctx, room.Code, room.CurrentRound)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrRoundNotFound
		}
		return nil, fmt.Errorf("rounds.Get: %w", err)
	}
	return r, nil
}

func (s *GameService) saveRound(ctx context.Context, r *domain.Round) error {
	if err := s.store.Rounds.Update(ctx, r); err != nil {
		return fmt.Errorf("rounds.Update: %w", err)
	}
	return nil
}

func (s *GameService) saveRoom(ctx context.Context, room *domain.Room) error {
	if err := s.store.Rooms.Update(ctx, room); err != nil {
		return fmt.Errorf("rooms.Update: %w", err)
	}
	s.invalidate(ctx, room.Code)
	return nil
}

// --- deferred rounds ---

func (s *GameService) schedule(code string, idx int) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if s.closed {
		return
	}
	if old, ok := s.timers[code]; ok {
		old.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(s.transitionDelay, func() {
		s.timersMu.Lock()
		if s.timers[code] == t {
			delete(s.timers, code)
		}
		s.timersMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.do(ctx, code, func(ctx context.Context) error {
			return s.startRound(ctx, code, idx)
		})
		if err != nil {
			slog.Error("service.startRound:", logger.Room(code), logger.Round(idx), logger.Err(err))
		}
	})
	s.timers[code] = t
}

func (s *GameService) cancelScheduled(code string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if t, ok := s.timers[code]; ok {
		t.Stop()
		delete(s.timers, code)
	}
}

// --- presence ---

// RegisterPresence привязывает транспортную сессию к участнику комнаты.
func (s *GameService) RegisterPresence(ctx context.Context, code, participantID, sessionID string) error {
	if _, err := s.member(ctx, code, participantID); err != nil {
		return err
	}
	if s.presence.Register(code, participantID, sessionID) {
		slog.Info("presence: reconnected",
			logger.Room(code),
			logger.Participant(participantID))
	}
	return nil
}

// Disconnected: транспорт потерял сессию; запускается окно ожидания.
func (s *GameService) Disconnected(sessionID string) {
	s.presence.Disconnect(sessionID)
}

func (s *GameService) onGraceExpired(code, participantID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.Leave(ctx, code, participantID)
	if err != nil && !domain.IsNotFound(err) {
		slog.Error("service.onGraceExpired:",
			logger.Room(code),
			logger.Participant(participantID),
			logger.Err(err))
	}
}
