package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultStateTTL = 30 * time.Minute

type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient: клиент redis с проверкой соединения.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func stateKey(code string) string {
	return fmt.Sprintf("room:%s:state", code)
}

func roomPattern(code string) string {
	return fmt.Sprintf("*:%s:*", code)
}

// RoomStateCache хранит публичный снимок комнаты (cache-aside).
type RoomStateCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRoomStateCache(rdb *redis.Client, ttl time.Duration) *RoomStateCache {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &RoomStateCache{rdb: rdb, ttl: ttl}
}

func (c *RoomStateCache) Get(ctx context.Context, code string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, stateKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RoomStateCache) Set(ctx context.Context, code string, snapshot []byte) error {
	return c.rdb.Set(ctx, stateKey(code), snapshot, c.ttl).Err()
}

func (c *RoomStateCache) Invalidate(ctx context.Context, code string) error {
	return c.rdb.Del(ctx, stateKey(code)).Err()
}

// Purge удаляет все ключи комнаты вида *:{code}:*.
func (c *RoomStateCache) Purge(ctx context.Context, code string) error {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, roomPattern(code), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	pipe := c.rdb.TxPipeline()
	for _, k := range keys {
		pipe.Unlink(ctx, k)
	}
	_, err := pipe.Exec(ctx)
	return err
}
