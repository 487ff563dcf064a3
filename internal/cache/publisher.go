package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/pkg/logger"

	"github.com/redis/go-redis/v9"
)

func roomChannel(code string) string {
	return fmt.Sprintf("pubsub:rooms:%s", code)
}

func playerChannel(code, participantID string) string {
	return fmt.Sprintf("pubsub:rooms:%s:players:%s", code, participantID)
}

// Publisher дублирует события комнаты в redis pub/sub для внешних подписчиков.
// Персональные события идут в отдельный канал игрока и в общий не попадают.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) Broadcast(ctx context.Context, code string, ev domain.Event) {
	p.publish(ctx, roomChannel(code), ev)
}

func (p *Publisher) SendTo(ctx context.Context, code, participantID string, ev domain.Event) {
	p.publish(ctx, playerChannel(code, participantID), ev)
}

func (p *Publisher) publish(ctx context.Context, channel string, ev domain.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		slog.Error("cache.Publisher: marshal", logger.Err(err))
		return
	}
	if err := p.rdb.Publish(ctx, channel, b).Err(); err != nil {
		slog.Warn("cache.Publisher: publish failed",
			slog.String("channel", channel),
			logger.Err(err))
	}
}

// Subscribe: подписка на события комнаты; закрытие через cancel.
func (p *Publisher) Subscribe(ctx context.Context, code string) (<-chan domain.Event, func()) {
	sub := p.rdb.Subscribe(ctx, roomChannel(code))
	out := make(chan domain.Event, 16)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { _ = sub.Close() }
}
