// Package presence связывает транспортные сессии с участниками комнат
// и запускает уход участника, если он не вернулся за окно ожидания.
package presence

import (
	"sync"
	"time"
)

const DefaultGrace = 30 * time.Second

type Status string

const (
	StatusConnected   Status = "CONNECTED"
	StatusGracePeriod Status = "GRACE_PERIOD"
)

type Entry struct {
	Sessions      int // открытые сессии участника
	RoomCode      string
	ParticipantID string
	Status        Status
	Deadline      time.Time
}

// DepartFunc вызывается вне блокировки трекера по истечении окна.
type DepartFunc func(roomCode, participantID string)

type entry struct {
	Entry
	sessions map[string]struct{}
	gen      uint64
	timer    *time.Timer
}

func (e *entry) snapshot() Entry {
	out := e.Entry
	out.Sessions = len(e.sessions)
	return out
}

type Tracker struct {
	mu    sync.Mutex
	grace time.Duration
	now   func() time.Time

	bySession     map[string]*entry
	byParticipant map[string]*entry

	onDepart DepartFunc
}

func NewTracker(grace time.Duration, onDepart DepartFunc) *Tracker {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Tracker{
		grace:         grace,
		now:           time.Now,
		bySession:     make(map[string]*entry),
		byParticipant: make(map[string]*entry),
		onDepart:      onDepart,
	}
}

func participantKey(code, participantID string) string {
	return code + "/" + participantID
}

// Register привязывает сессию к участнику. У участника может быть несколько
// сессий (вкладок). Возвращает true, если это переподключение в пределах
// окна (таймер ухода отменён).
func (t *Tracker) Register(code, participantID, sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := participantKey(code, participantID)
	e, ok := t.byParticipant[key]
	if !ok {
		e = &entry{
			Entry:    Entry{RoomCode: code, ParticipantID: participantID},
			sessions: make(map[string]struct{}),
		}
		t.byParticipant[key] = e
	}

	reconnected := ok && e.Status == StatusGracePeriod
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}

	e.gen++
	e.sessions[sessionID] = struct{}{}
	e.Status = StatusConnected
	e.Deadline = time.Time{}
	t.bySession[sessionID] = e
	return reconnected
}

// Disconnect закрывает сессию. Окно ожидания начинается, только когда
// у участника не осталось открытых сессий.
func (t *Tracker) Disconnect(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.bySession[sessionID]
	if !ok {
		return
	}
	delete(t.bySession, sessionID)
	delete(e.sessions, sessionID)
	if len(e.sessions) > 0 {
		return
	}

	e.gen++
	gen := e.gen
	e.Status = StatusGracePeriod
	e.Deadline = t.now().Add(t.grace)
	e.timer = time.AfterFunc(t.grace, func() { t.expire(e, gen) })
}

func (t *Tracker) expire(e *entry, gen uint64) {
	t.mu.Lock()
	key := participantKey(e.RoomCode, e.ParticipantID)
	cur, ok := t.byParticipant[key]
	if !ok || cur != e || e.gen != gen || e.Status != StatusGracePeriod {
		t.mu.Unlock()
		return
	}
	delete(t.byParticipant, key)
	code, pid := e.RoomCode, e.ParticipantID
	t.mu.Unlock()

	if t.onDepart != nil {
		t.onDepart(code, pid)
	}
}

// Forget убирает участника без вызова ухода (явный выход).
func (t *Tracker) Forget(code, participantID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(participantKey(code, participantID))
}

// DropRoom убирает все записи комнаты.
func (t *Tracker) DropRoom(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, e := range t.byParticipant {
		if e.RoomCode == code {
			t.remove(key)
		}
	}
}

func (t *Tracker) remove(key string) {
	e, ok := t.byParticipant[key]
	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	for sid := range e.sessions {
		delete(t.bySession, sid)
	}
	delete(t.byParticipant, key)
}

func (t *Tracker) Lookup(sessionID string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.bySession[sessionID]
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(), true
}

func (t *Tracker) Status(code, participantID string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.byParticipant[participantKey(code, participantID)]
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// Close останавливает все таймеры; состояние не переживает рестарт.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key := range t.byParticipant {
		t.remove(key)
	}
}
