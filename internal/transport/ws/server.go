package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/service"
	"github.com/cwrk-planet/liar-service/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type GameSvc interface {
	RegisterPresence(ctx context.Context, code, participantID, sessionID string) error
	Disconnected(sessionID string)
	RoomState(ctx context.Context, code, viewerID string) (*service.Snapshot, error)

	SubmitStatement(ctx context.Context, code, participantID, text string) error
	CastBallot(ctx context.Context, code, voterID, targetID string) error
	SubmitDefense(ctx context.Context, code, participantID, text string) error
	CastJudgmentBallot(ctx context.Context, code, voterID, decision string) error
}

type Options struct {
	PingEvery  time.Duration
	RateLimit  float64 // сообщений в секунду
	Burst      int
	SendBuffer int // исходящая очередь соединения; переполнение закрывает его
}

const writeWait = 5 * time.Second

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	svc      GameSvc

	pingEvery  time.Duration
	limit      rate.Limit
	burst      int
	sendBuffer int
}

func NewServer(hub *Hub, svc GameSvc, opts Options) *Server {
	s := &Server{
		hub: hub,
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery:  opts.PingEvery,
		limit:      rate.Limit(opts.RateLimit),
		burst:      opts.Burst,
		sendBuffer: opts.SendBuffer,
	}
	if s.pingEvery <= 0 {
		s.pingEvery = 15 * time.Second
	}
	if s.limit <= 0 {
		s.limit = 2
	}
	if s.burst <= 0 {
		s.burst = 5
	}
	if s.sendBuffer <= 0 {
		s.sendBuffer = 64
	}
	return s
}

// WS endpoint: GET /ws/rooms/{code}?participant=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	participantID := strings.TrimSpace(r.URL.Query().Get("participant"))
	if code == "" || participantID == "" {
		http.Error(w, "missing room code or participant", http.StatusBadRequest)
		return
	}

	sessionID := uuid.NewString()
	if err := s.svc.RegisterPresence(r.Context(), code, participantID, sessionID); err != nil {
		if domain.IsNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("ws register presence failed", logger.Room(code), logger.Err(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", logger.Err(err))
		s.svc.Disconnected(sessionID)
		return
	}

	c := newWsConn(conn, code, participantID, sessionID, s.sendBuffer)
	s.hub.Add(c)
	slog.Debug("ws connected",
		logger.Room(code),
		logger.Participant(participantID),
		logger.Session(sessionID))

	if err := s.sendState(r.Context(), c); err != nil {
		slog.Warn("ws send initial state failed", logger.Room(code), logger.Err(err))
	}

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c)

	s.hub.Remove(c)
	s.svc.Disconnected(sessionID)

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", logger.Room(code), logger.Err(err))
	}
}

func (s *Server) sendState(ctx context.Context, c *wsConn) error {
	snap, err := s.svc.RoomState(ctx, c.roomCode, c.participantID)
	if err != nil {
		return err
	}
	return c.Send(domain.Event{
		Type:     domain.EventRoomStateUpdate,
		RoomCode: c.roomCode,
		Payload:  snap,
		At:       time.Now().UTC(),
	})
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	limiter := rate.NewLimiter(s.limit, s.burst)

	c.conn.SetReadLimit(1 << 16)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(c, "", CodeBadRequest, "malformed message")
			continue
		}
		if !limiter.Allow() {
			s.sendError(c, msg.Type, CodeRateLimited, "too many messages")
			continue
		}
		if err := s.dispatch(ctx, c, msg); err != nil {
			s.replyErr(c, msg.Type, err)
		}
	}
}

var errBadPayload = errors.New("invalid payload")

func (s *Server) dispatch(ctx context.Context, c *wsConn, msg Inbound) error {
	switch msg.Type {
	case TypePing:
		return c.Send(domain.Event{Type: TypePong, RoomCode: c.roomCode, At: time.Now().UTC()})
	case TypeDesc:
		var p TextPayload
		if json.Unmarshal(msg.Payload, &p) != nil {
			return errBadPayload
		}
		return s.svc.SubmitStatement(ctx, c.roomCode, c.participantID, p.Text)
	case TypeDefense:
		var p TextPayload
		if json.Unmarshal(msg.Payload, &p) != nil {
			return errBadPayload
		}
		return s.svc.SubmitDefense(ctx, c.roomCode, c.participantID, p.Text)
	case TypeVote:
		var p VotePayload
		if json.Unmarshal(msg.Payload, &p) != nil || p.TargetID == "" {
			return errBadPayload
		}
		return s.svc.CastBallot(ctx, c.roomCode, c.participantID, p.TargetID)
	case TypeJudgment:
		var p JudgmentPayload
		if json.Unmarshal(msg.Payload, &p) != nil {
			return errBadPayload
		}
		return s.svc.CastJudgmentBallot(ctx, c.roomCode, c.participantID, p.Decision)
	default:
		return errBadPayload
	}
}

func (s *Server) replyErr(c *wsConn, request string, err error) {
	if errors.Is(err, errBadPayload) {
		s.sendError(c, request, CodeBadRequest, err.Error())
		return
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		s.sendError(c, request, CodeNotFound, err.Error())
	case domain.KindPhase:
		s.sendError(c, request, CodePhase, err.Error())
	case domain.KindAuthorization:
		s.sendError(c, request, CodeForbidden, err.Error())
	case domain.KindRule:
		s.sendError(c, request, CodeRule, err.Error())
	default:
		slog.Error("ws handle message failed",
			logger.Room(c.roomCode),
			slog.String("type", request),
			logger.Err(err))
		s.sendError(c, request, CodeInternal, "internal error")
	}
}

func (s *Server) sendError(c *wsConn, request, code, message string) {
	err := c.Send(domain.Event{
		Type:     domain.EventError,
		RoomCode: c.roomCode,
		Payload:  ErrorPayload{Code: code, Message: message, Request: request},
		At:       time.Now().UTC(),
	})
	if err != nil {
		slog.Debug("ws send error failed", logger.Room(c.roomCode), logger.Err(err))
	}
}

// writeLoop: единственный писатель в сокет.
func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				slog.Debug("ws write failed", logger.Room(c.roomCode), logger.Err(err))
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.Close()
				return
			}
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

// --- conn ---

var (
	errConnClosed   = errors.New("ws: connection closed")
	errSlowConsumer = errors.New("ws: outbound queue full")
)

type wsConn struct {
	conn          *websocket.Conn
	roomCode      string
	participantID string
	sessionID     string

	out       chan domain.Event
	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(c *websocket.Conn, code, participantID, sessionID string, buffer int) *wsConn {
	return &wsConn{
		conn:          c,
		roomCode:      code,
		participantID: participantID,
		sessionID:     sessionID,
		out:           make(chan domain.Event, buffer),
		closed:        make(chan struct{}),
	}
}

// Send ставит событие в очередь и не ждёт сеть. Клиент, который не
// успевает читать, отключается.
func (c *wsConn) Send(ev domain.Event) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	select {
	case c.out <- ev:
		return nil
	default:
		slog.Warn("ws: slow consumer, closing",
			logger.Room(c.roomCode),
			logger.Participant(c.participantID))
		_ = c.Close()
		return errSlowConsumer
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) SessionID() string     { return c.sessionID }
func (c *wsConn) ParticipantID() string { return c.participantID }
func (c *wsConn) RoomCode() string      { return c.roomCode }
