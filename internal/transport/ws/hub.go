package ws

import (
	"log/slog"
	"sync"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/pkg/logger"
)

type Conn interface {
	Send(ev domain.Event) error
	Close() error
	SessionID() string
	ParticipantID() string
	RoomCode() string
}

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{} // room code -> set of connections
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Conn]struct{})}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[c.RoomCode()]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[c.RoomCode()] = rs
	}
	rs[c] = struct{}{}
}

func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[c.RoomCode()]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, c.RoomCode())
		}
	}
}

func (h *Hub) Count(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

// snapshot копирует соединения, чтобы не писать в сокеты под блокировкой.
func (h *Hub) snapshot(code string, match func(Conn) bool) []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Conn, 0, len(h.rooms[code]))
	for c := range h.rooms[code] {
		if match == nil || match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Broadcast отправляет событие всем соединениям комнаты (best-effort).
func (h *Hub) Broadcast(code string, ev domain.Event) {
	for _, c := range h.snapshot(code, nil) {
		if err := c.Send(ev); err != nil {
			slog.Debug("ws.Hub: send failed",
				logger.Room(code),
				logger.Participant(c.ParticipantID()),
				logger.Err(err))
		}
	}
}

// SendTo: событие только соединениям одного участника.
func (h *Hub) SendTo(code, participantID string, ev domain.Event) {
	conns := h.snapshot(code, func(c Conn) bool { return c.ParticipantID() == participantID })
	for _, c := range conns {
		if err := c.Send(ev); err != nil {
			slog.Debug("ws.Hub: send failed",
				logger.Room(code),
				logger.Participant(participantID),
				logger.Err(err))
		}
	}
}
