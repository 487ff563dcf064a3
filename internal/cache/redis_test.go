package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cwrk-planet/liar-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Поднимает redis в контейнере; включается через LIAR_REDIS_IT=1.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if os.Getenv("LIAR_REDIS_IT") != "1" {
		t.Skip("LIAR_REDIS_IT is not set")
	}
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	rdb, err := NewClient(ctx, Config{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRoomStateCache(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	c := NewRoomStateCache(rdb, time.Minute)

	_, ok, err := c.Get(ctx, "ABCD1234")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "ABCD1234", []byte(`{"code":"ABCD1234"}`)))
	got, ok, err := c.Get(ctx, "ABCD1234")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"code":"ABCD1234"}`, string(got))

	ttl, err := rdb.TTL(ctx, stateKey("ABCD1234")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, rdb.Set(ctx, "presence:ABCD1234:p1", "1", 0).Err())
	require.NoError(t, c.Purge(ctx, "ABCD1234"))

	n, err := rdb.Exists(ctx, stateKey("ABCD1234"), "presence:ABCD1234:p1").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPublisher_RoundTrip(t *testing.T) {
	rdb := startRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPublisher(rdb)
	events, stop := p.Subscribe(ctx, "ROOM0001")
	defer stop()

	// подписка в redis устанавливается асинхронно
	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(ctx, roomChannel("ROOM0001")).Result()
		return err == nil && n[roomChannel("ROOM0001")] == 1
	}, 5*time.Second, 50*time.Millisecond)

	p.Broadcast(ctx, "ROOM0001", domain.Event{Type: domain.EventPlayerJoined, RoomCode: "ROOM0001"})

	select {
	case ev := <-events:
		assert.Equal(t, domain.EventPlayerJoined, ev.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}
}
