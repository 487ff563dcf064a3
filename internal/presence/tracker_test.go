package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type departures struct {
	mu  sync.Mutex
	got []string
}

func (d *departures) record(code, pid string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, code+"/"+pid)
}

func (d *departures) list() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.got...)
}

func TestTracker_ReconnectWithinGrace(t *testing.T) {
	d := &departures{}
	tr := NewTracker(80*time.Millisecond, d.record)
	defer tr.Close()

	assert.False(t, tr.Register("ROOM", "p1", "s1"))
	tr.Disconnect("s1")

	e, ok := tr.Status("ROOM", "p1")
	require.True(t, ok)
	assert.Equal(t, StatusGracePeriod, e.Status)

	assert.True(t, tr.Register("ROOM", "p1", "s2"))

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, d.list())

	e, ok = tr.Lookup("s2")
	require.True(t, ok)
	assert.Equal(t, StatusConnected, e.Status)
	assert.Equal(t, "p1", e.ParticipantID)
}

func TestTracker_GraceExpiryDeparts(t *testing.T) {
	d := &departures{}
	tr := NewTracker(30*time.Millisecond, d.record)
	defer tr.Close()

	tr.Register("ROOM", "p1", "s1")
	tr.Disconnect("s1")

	require.Eventually(t, func() bool { return len(d.list()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"ROOM/p1"}, d.list())

	_, ok := tr.Status("ROOM", "p1")
	assert.False(t, ok)
}

func TestTracker_StaleSessionIgnored(t *testing.T) {
	d := &departures{}
	tr := NewTracker(30*time.Millisecond, d.record)
	defer tr.Close()

	tr.Register("ROOM", "p1", "old")
	tr.Register("ROOM", "p1", "new")

	// старая вкладка закрылась, новая живёт
	tr.Disconnect("old")
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, d.list())
}

func TestTracker_LastSessionStartsGrace(t *testing.T) {
	d := &departures{}
	tr := NewTracker(30*time.Millisecond, d.record)
	defer tr.Close()

	assert.False(t, tr.Register("ROOM", "p1", "tabA"))
	assert.False(t, tr.Register("ROOM", "p1", "tabB"))

	// вкладка B закрыта, A ещё открыта
	tr.Disconnect("tabB")
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, d.list())

	e, ok := tr.Status("ROOM", "p1")
	require.True(t, ok)
	assert.Equal(t, StatusConnected, e.Status)
	assert.Equal(t, 1, e.Sessions)

	tr.Disconnect("tabA")
	require.Eventually(t, func() bool { return len(d.list()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"ROOM/p1"}, d.list())
}

func TestTracker_DropRoomAndForget(t *testing.T) {
	d := &departures{}
	tr := NewTracker(30*time.Millisecond, d.record)
	defer tr.Close()

	tr.Register("A", "p1", "s1")
	tr.Register("A", "p2", "s2")
	tr.Register("B", "p3", "s3")
	tr.Disconnect("s1")

	tr.DropRoom("A")
	tr.Forget("B", "p3")

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, d.list())
	_, ok := tr.Lookup("s2")
	assert.False(t, ok)
	_, ok = tr.Lookup("s3")
	assert.False(t, ok)
}
