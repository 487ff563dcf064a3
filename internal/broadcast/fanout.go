// Package broadcast доставляет события комнаты локальным websocket
// соединениям и зеркалирует их во внешние каналы (redis pub/sub).
package broadcast

import (
	"context"

	"github.com/cwrk-planet/liar-service/internal/domain"
)

// Local: доставка в соединения этого процесса.
type Local interface {
	Broadcast(code string, ev domain.Event)
	SendTo(code, participantID string, ev domain.Event)
}

// Mirror: внешний канал; ошибки логирует сам.
type Mirror interface {
	Broadcast(ctx context.Context, code string, ev domain.Event)
	SendTo(ctx context.Context, code, participantID string, ev domain.Event)
}

type Fanout struct {
	local   Local
	mirrors []Mirror
}

func NewFanout(local Local, mirrors ...Mirror) *Fanout {
	out := &Fanout{local: local}
	for _, m := range mirrors {
		if m != nil {
			out.mirrors = append(out.mirrors, m)
		}
	}
	return out
}

func (f *Fanout) Broadcast(ctx context.Context, code string, ev domain.Event) {
	if f.local != nil {
		f.local.Broadcast(code, ev)
	}
	for _, m := range f.mirrors {
		m.Broadcast(ctx, code, ev)
	}
}

func (f *Fanout) SendTo(ctx context.Context, code, participantID string, ev domain.Event) {
	if f.local != nil {
		f.local.SendTo(code, participantID, ev)
	}
	for _, m := range f.mirrors {
		m.SendTo(ctx, code, participantID, ev)
	}
}
