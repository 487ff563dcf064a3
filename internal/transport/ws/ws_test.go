package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	room, pid string

	mu  sync.Mutex
	got []domain.Event
}

func (f *fakeConn) Send(ev domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, ev)
	return nil
}
func (f *fakeConn) Close() error          { return nil }
func (f *fakeConn) SessionID() string     { return "s-" + f.pid }
func (f *fakeConn) ParticipantID() string { return f.pid }
func (f *fakeConn) RoomCode() string      { return f.room }

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func TestHub_BroadcastAndSendTo(t *testing.T) {
	h := NewHub()
	a := &fakeConn{room: "ROOM0001", pid: "a"}
	b := &fakeConn{room: "ROOM0001", pid: "b"}
	other := &fakeConn{room: "ROOM0002", pid: "c"}
	h.Add(a)
	h.Add(b)
	h.Add(other)

	h.Broadcast("ROOM0001", domain.Event{Type: domain.EventRoomStateUpdate})
	h.SendTo("ROOM0001", "b", domain.Event{Type: domain.EventRoleAssigned})

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 2, b.count())
	assert.Zero(t, other.count())

	h.Remove(a)
	h.Remove(b)
	assert.Zero(t, h.Count("ROOM0001"))
	assert.Equal(t, 1, h.Count("ROOM0002"))
}

type fakeSvc struct {
	mu           sync.Mutex
	registered   []string
	disconnected []string
	statements   []string
}

func (f *fakeSvc) RegisterPresence(_ context.Context, code, pid, sid string) error {
	if pid != "p1" {
		return domain.ErrParticipantNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, sid)
	return nil
}

func (f *fakeSvc) Disconnected(sid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, sid)
}

func (f *fakeSvc) RoomState(_ context.Context, code, _ string) (*service.Snapshot, error) {
	return &service.Snapshot{Code: code, State: domain.RoomLobby}, nil
}

func (f *fakeSvc) SubmitStatement(_ context.Context, _, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statements = append(f.statements, text)
	return nil
}

func (f *fakeSvc) CastBallot(context.Context, string, string, string) error {
	return domain.ErrPhaseMismatch
}

func (f *fakeSvc) SubmitDefense(context.Context, string, string, string) error { return nil }

func (f *fakeSvc) CastJudgmentBallot(context.Context, string, string, string) error { return nil }

func (f *fakeSvc) disconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.disconnected)
}

func dial(t *testing.T, svc *fakeSvc, participant string) (*websocket.Conn, *Hub, func()) {
	t.Helper()
	hub := NewHub()
	srv := NewServer(hub, svc, Options{RateLimit: 100, Burst: 100})

	r := chi.NewRouter()
	r.Get("/ws/rooms/{code}", srv.HandleWS)
	ts := httptest.NewServer(r)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/ROOM0001?participant=" + participant
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		ts.Close()
		if resp != nil {
			t.Logf("dial status: %d", resp.StatusCode)
		}
		return nil, hub, func() {}
	}
	return conn, hub, func() {
		_ = conn.Close()
		ts.Close()
	}
}

func TestServer_UnknownParticipantRejected(t *testing.T) {
	conn, _, done := dial(t, &fakeSvc{}, "stranger")
	defer done()
	assert.Nil(t, conn)
}

func TestServer_MessagesAndErrors(t *testing.T) {
	svc := &fakeSvc{}
	conn, hub, done := dial(t, svc, "p1")
	require.NotNil(t, conn)
	defer done()

	var ev domain.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, domain.EventRoomStateUpdate, ev.Type)
	assert.Equal(t, 1, hub.Count("ROOM0001"))

	require.NoError(t, conn.WriteJSON(map[string]any{"type": TypeDesc, "payload": map[string]string{"text": "red"}}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": TypePing}))

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, domain.EventType(TypePong), ev.Type)
	svc.mu.Lock()
	assert.Equal(t, []string{"red"}, svc.statements)
	svc.mu.Unlock()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": TypeVote, "payload": map[string]string{"targetId": "p2"}}))
	var errEv struct {
		Type string       `json:"type"`
		Data ErrorPayload `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&errEv))
	assert.Equal(t, string(domain.EventError), errEv.Type)
	assert.Equal(t, CodePhase, errEv.Data.Code)
	assert.Equal(t, TypeVote, errEv.Data.Request)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "DANCE"}))
	require.NoError(t, conn.ReadJSON(&errEv))
	assert.Equal(t, CodeBadRequest, errEv.Data.Code)

	_ = conn.Close()
	require.Eventually(t, func() bool { return svc.disconnects() == 1 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, hub.Count("ROOM0001"))
}

func TestConn_SlowConsumerDisconnected(t *testing.T) {
	upgraded := make(chan *websocket.Conn, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var up websocket.Upgrader
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		upgraded <- c
	}))
	defer ts.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	var raw *websocket.Conn
	select {
	case raw = <-upgraded:
	case <-time.After(time.Second):
		t.Fatal("server side was not upgraded")
	}

	// writeLoop не запущен, очередь никто не разбирает
	c := newWsConn(raw, "ROOM0001", "p1", "s1", 2)
	ev := domain.Event{Type: domain.EventRoundState, RoomCode: "ROOM0001"}
	require.NoError(t, c.Send(ev))
	require.NoError(t, c.Send(ev))

	start := time.Now()
	assert.ErrorIs(t, c.Send(ev), errSlowConsumer)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	assert.ErrorIs(t, c.Send(ev), errConnClosed)
	assert.NoError(t, c.Close())
}
