package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRooms_CreateCollision(t *testing.T) {
	ctx := context.Background()
	st := New().Store()

	room := &domain.Room{Code: "ABCD1234", State: domain.RoomLobby}
	require.NoError(t, st.Rooms.Create(ctx, room))
	assert.ErrorIs(t, st.Rooms.Create(ctx, room), repository.ErrAlreadyExists)

	ok, err := st.Rooms.ExistsActive(ctx, "ABCD1234")
	require.NoError(t, err)
	assert.True(t, ok)

	room.State = domain.RoomEnded
	require.NoError(t, st.Rooms.Update(ctx, room))
	ok, _ = st.Rooms.ExistsActive(ctx, "ABCD1234")
	assert.False(t, ok)

	require.NoError(t, st.Rooms.Delete(ctx, "ABCD1234"))
	_, err = st.Rooms.Get(ctx, "ABCD1234")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestParticipants_OrderAndCopies(t *testing.T) {
	ctx := context.Background()
	st := New().Store()

	for _, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, st.Participants.Add(ctx, &domain.Participant{ID: id, RoomCode: "R", Alive: true}))
	}
	left := time.Now()
	p2, err := st.Participants.Get(ctx, "p2")
	require.NoError(t, err)
	p2.LeftAt = &left
	require.NoError(t, st.Participants.Update(ctx, p2))

	list, err := st.Participants.ListActive(ctx, "R")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)
	assert.Equal(t, "p3", list[1].ID)

	// изменение копии не влияет на хранилище
	word := "apple"
	list[0].Word = &word
	again, _ := st.Participants.Get(ctx, "p1")
	assert.Nil(t, again.Word)
}

func TestBallots_Duplicate(t *testing.T) {
	ctx := context.Background()
	st := New().Store()

	b := &domain.Ballot{ID: "b1", RoundID: "r1", VoterID: "v", TargetID: "t"}
	require.NoError(t, st.Ballots.Insert(ctx, b))
	assert.ErrorIs(t, st.Ballots.Insert(ctx, &domain.Ballot{ID: "b2", RoundID: "r1", VoterID: "v", TargetID: "x"}), repository.ErrAlreadyExists)

	// финальный голос того же участника: отдельная запись
	require.NoError(t, st.Ballots.Insert(ctx, &domain.Ballot{ID: "b3", RoundID: "r1", VoterID: "v", Final: true, Decision: domain.DecisionSurvive}))

	n, err := st.Ballots.Count(ctx, "r1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, _ = st.Ballots.Count(ctx, "r1", true)
	assert.Equal(t, 1, n)
}

func TestRounds_DeleteByRoomCascades(t *testing.T) {
	ctx := context.Background()
	st := New().Store()

	require.NoError(t, st.Rounds.Create(ctx, &domain.Round{ID: "r1", RoomCode: "R", Index: 1}))
	assert.ErrorIs(t, st.Rounds.Create(ctx, &domain.Round{ID: "r1b", RoomCode: "R", Index: 1}), repository.ErrAlreadyExists)
	require.NoError(t, st.Ballots.Insert(ctx, &domain.Ballot{ID: "b", RoundID: "r1", VoterID: "v"}))
	require.NoError(t, st.Statements.Insert(ctx, &domain.Statement{ID: "s", RoundID: "r1", ParticipantID: "v", Kind: domain.StatementDescription, Pass: 1}))

	exists, err := st.Statements.Exists(ctx, "r1", "v", domain.StatementDescription, 1)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, st.Rounds.DeleteByRoom(ctx, "R"))

	ok, _ := st.Rounds.Exists(ctx, "R", 1)
	assert.False(t, ok)
	n, _ := st.Ballots.Count(ctx, "r1", false)
	assert.Zero(t, n)
	n, _ = st.Statements.Count(ctx, "r1", domain.StatementDescription, 1)
	assert.Zero(t, n)

	// индекс снова свободен
	require.NoError(t, st.Rounds.Create(ctx, &domain.Round{ID: "r2", RoomCode: "R", Index: 1}))
}

func TestThemes_PickFallsBackToAnyGroup(t *testing.T) {
	ctx := context.Background()
	db := New()
	db.SeedThemes(domain.Theme{ID: 7, Group: "food", WordA: "a", WordB: "b", Active: true})

	th, err := db.Store().Themes.Pick(ctx, "space")
	require.NoError(t, err)
	assert.Equal(t, int64(7), th.ID)

	th, err = New().Store().Themes.Pick(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, th.WordA)
}
