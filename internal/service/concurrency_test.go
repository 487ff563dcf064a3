package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedBroadcaster держит доставку, пока не открыт release.
type gatedBroadcaster struct {
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu     sync.Mutex
	joined []string
}

func (g *gatedBroadcaster) Broadcast(_ context.Context, _ string, ev domain.Event) {
	if g.armed.Load() {
		g.once.Do(func() { close(g.entered) })
		<-g.release
	}
	if ev.Type == domain.EventPlayerJoined {
		g.mu.Lock()
		g.joined = append(g.joined, ev.ActorName)
		g.mu.Unlock()
	}
}

func (g *gatedBroadcaster) SendTo(context.Context, string, string, domain.Event) {}

func TestSlowDelivery_DoesNotHoldRoom(t *testing.T) {
	db := memstore.New()
	db.SeedThemes(domain.Theme{ID: 1, Group: "food", WordA: "apple", WordB: "pear", Active: true})
	bc := &gatedBroadcaster{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewGameService(Deps{Store: db.Store(), Broadcaster: bc}, Options{})
	t.Cleanup(svc.Close)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, CreateRoomInput{})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.Code, "alice")
	require.NoError(t, err)

	bc.armed.Store(true)
	joins := make(chan error, 2)
	go func() {
		_, err := svc.JoinRoom(ctx, room.Code, "bob")
		joins <- err
	}()
	select {
	case <-bc.entered:
	case <-time.After(time.Second):
		t.Fatal("join of bob was never delivered")
	}

	// доставка для bob висит, а слот комнаты уже свободен
	stateCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	snap, err := svc.RoomState(stateCtx, room.Code, "")
	require.NoError(t, err)
	assert.Len(t, snap.Players, 2)

	// следующая мутация проходит, её события ждут очереди
	go func() {
		_, err := svc.JoinRoom(ctx, room.Code, "carol")
		joins <- err
	}()
	require.Eventually(t, func() bool {
		ps, err := db.Store().Participants.ListActive(ctx, room.Code)
		return err == nil && len(ps) == 3
	}, time.Second, 5*time.Millisecond)

	close(bc.release)
	require.NoError(t, <-joins)
	require.NoError(t, <-joins)

	bc.mu.Lock()
	defer bc.mu.Unlock()
	assert.Equal(t, []string{"alice", "bob", "carol"}, bc.joined)
}

// castTwice: каждый голосующий делает две попытки, все стартуют одновременно.
func castTwice(voters []string, cast func(voter string) error) [][2]error {
	out := make([][2]error, len(voters))
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i, v := range voters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			out[i][0] = cast(v)
			out[i][1] = cast(v)
		}()
	}
	close(start)
	wg.Wait()
	return out
}

func isOneOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func resultsOf(f *fixture, stage string) int {
	n := 0
	for _, s := range f.bc.of(domain.EventVoteResult) {
		if s.ev.Payload.(map[string]any)["stage"] == stage {
			n++
		}
	}
	return n
}

func TestBallots_ConcurrentDuplicatesTallyOnce(t *testing.T) {
	f := newFixture(t, Options{TransitionDelay: time.Hour})
	ctx := context.Background()
	code, ids := f.started(t, 6, 3)
	f.toVoting(t, code, ids)

	liar := f.liar(t, code)
	alive := f.alive(t, code)
	targets := make(map[string]string, len(alive))
	for _, id := range alive {
		targets[id] = liar
	}
	for _, id := range alive {
		if id != liar {
			targets[liar] = id
			break
		}
	}

	res := castTwice(alive, func(voter string) error {
		return f.svc.CastBallot(ctx, code, voter, targets[voter])
	})
	for i, r := range res {
		require.NoError(t, r[0], "first ballot of %s", alive[i])
		assert.True(t, isOneOf(r[1], domain.ErrAlreadyVoted, domain.ErrPhaseMismatch), "second ballot: %v", r[1])
	}

	assert.Equal(t, 1, resultsOf(f, "accusation"))
	r := f.round(t, code)
	assert.Equal(t, domain.PhaseFinalDefense, r.Phase)
	require.NotNil(t, r.AccusedID)
	assert.Equal(t, liar, *r.AccusedID)
	cast, err := f.st.Ballots.Count(ctx, r.ID, false)
	require.NoError(t, err)
	assert.Equal(t, len(alive), cast)

	require.NoError(t, f.svc.SubmitDefense(ctx, code, liar, "not me"))
	require.NoError(t, f.svc.StartJudgmentVoting(ctx, code, ids[0]))

	var judges []string
	for _, id := range alive {
		if id != liar {
			judges = append(judges, id)
		}
	}
	res = castTwice(judges, func(voter string) error {
		return f.svc.CastJudgmentBallot(ctx, code, voter, string(domain.DecisionEliminate))
	})
	for i, r := range res {
		require.NoError(t, r[0], "first judgment ballot of %s", judges[i])
		assert.True(t,
			isOneOf(r[1], domain.ErrAlreadyVoted, domain.ErrPhaseMismatch, domain.ErrGameNotInProgress),
			"second judgment ballot: %v", r[1])
	}

	assert.Equal(t, 1, resultsOf(f, "judgment"))
	assert.Equal(t, domain.RoomEnded, f.roomState(t, code).State)

	roomWide := 0
	for _, s := range f.bc.of(domain.EventGameEnd) {
		if s.to == "" {
			roomWide++
		}
	}
	assert.Equal(t, 1, roomWide)
}
