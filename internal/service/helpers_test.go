package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cwrk-planet/liar-service/internal/audit"
	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/memstore"
	"github.com/cwrk-planet/liar-service/internal/repository"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sent struct {
	to string
	ev domain.Event
}

type mockBroadcaster struct {
	mock.Mock

	mu     sync.Mutex
	events []sent
}

func newMockBroadcaster() *mockBroadcaster {
	m := &mockBroadcaster{}
	m.On("Broadcast", mock.Anything, mock.Anything).Return()
	m.On("SendTo", mock.Anything, mock.Anything, mock.Anything).Return()
	return m
}

func (m *mockBroadcaster) Broadcast(_ context.Context, code string, ev domain.Event) {
	m.mu.Lock()
	m.events = append(m.events, sent{ev: ev})
	m.mu.Unlock()
	m.Called(code, ev.Type)
}

func (m *mockBroadcaster) SendTo(_ context.Context, code, participantID string, ev domain.Event) {
	m.mu.Lock()
	m.events = append(m.events, sent{to: participantID, ev: ev})
	m.mu.Unlock()
	m.Called(code, participantID, ev.Type)
}

// of: события указанного типа в порядке отправки.
func (m *mockBroadcaster) of(typ domain.EventType) []sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sent
	for _, s := range m.events {
		if s.ev.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

func (m *mockBroadcaster) types() []domain.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EventType, 0, len(m.events))
	for _, s := range m.events {
		out = append(out, s.ev.Type)
	}
	return out
}

type fixture struct {
	svc *GameService
	db  *memstore.DB
	st  repository.Store
	bc  *mockBroadcaster
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	db := memstore.New()
	db.SeedThemes(domain.Theme{ID: 1, Group: "food", WordA: "apple", WordB: "pear", Active: true})

	bc := newMockBroadcaster()
	svc := NewGameService(Deps{
		Store:       db.Store(),
		Broadcaster: bc,
		Audit:       audit.NewRepoSink(db.Audit()),
	}, opts)
	t.Cleanup(svc.Close)

	return &fixture{svc: svc, db: db, st: db.Store(), bc: bc}
}

// lobby создаёт комнату и n участников; ids[0]: хост.
func (f *fixture) lobby(t *testing.T, n, roundLimit int) (string, []string) {
	t.Helper()
	ctx := context.Background()

	room, err := f.svc.CreateRoom(ctx, CreateRoomInput{RoundLimit: roundLimit, ThemeGroup: "food"})
	require.NoError(t, err)

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p, err := f.svc.JoinRoom(ctx, room.Code, fmt.Sprintf("player%d", i))
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	return room.Code, ids
}

func (f *fixture) started(t *testing.T, n, roundLimit int) (string, []string) {
	t.Helper()
	code, ids := f.lobby(t, n, roundLimit)
	require.NoError(t, f.svc.StartGame(context.Background(), code, ids[0]))
	return code, ids
}

// toVoting проводит текущий раунд через описания до голосования.
func (f *fixture) toVoting(t *testing.T, code string, ids []string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.svc.BeginDescriptions(ctx, code, ids[0]))
	for _, id := range f.alive(t, code) {
		require.NoError(t, f.svc.SubmitStatement(ctx, code, id, "it is round and sweet"))
	}
	require.NoError(t, f.svc.RequestVotingPhase(ctx, code))
}

func (f *fixture) alive(t *testing.T, code string) []string {
	t.Helper()
	ps, err := f.st.Participants.ListActive(context.Background(), code)
	require.NoError(t, err)
	var out []string
	for _, p := range domain.AliveOf(ps) {
		out = append(out, p.ID)
	}
	return out
}

func (f *fixture) liar(t *testing.T, code string) string {
	t.Helper()
	ps, err := f.st.Participants.ListActive(context.Background(), code)
	require.NoError(t, err)
	for _, p := range domain.AliveOf(ps) {
		if p.Role == domain.RoleLiar {
			return p.ID
		}
	}
	t.Fatal("no liar assigned")
	return ""
}

func (f *fixture) round(t *testing.T, code string) *domain.Round {
	t.Helper()
	room, err := f.st.Rooms.Get(context.Background(), code)
	require.NoError(t, err)
	r, err := f.st.Rounds.Get(context.Background(), code, room.CurrentRound)
	require.NoError(t, err)
	return r
}

func (f *fixture) roomState(t *testing.T, code string) *domain.Room {
	t.Helper()
	room, err := f.st.Rooms.Get(context.Background(), code)
	require.NoError(t, err)
	return room
}

// accuse: все голосуют за target, target голосует за первого другого.
func (f *fixture) accuse(t *testing.T, code, target string) {
	t.Helper()
	alive := f.alive(t, code)
	for _, id := range alive {
		to := target
		if id == target {
			for _, other := range alive {
				if other != target {
					to = other
					break
				}
			}
		}
		require.NoError(t, f.svc.CastBallot(context.Background(), code, id, to))
	}
}

// judge: защита, открытие финального голосования и единогласное решение.
func (f *fixture) judge(t *testing.T, code, hostID, accused string, decision domain.Decision) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.svc.SubmitDefense(ctx, code, accused, "I am innocent"))
	require.NoError(t, f.svc.StartJudgmentVoting(ctx, code, hostID))
	for _, id := range f.alive(t, code) {
		if id == accused {
			continue
		}
		require.NoError(t, f.svc.CastJudgmentBallot(ctx, code, id, string(decision)))
	}
}
