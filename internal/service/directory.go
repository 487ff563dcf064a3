package service

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type slot struct {
	sem  *semaphore.Weighted
	refs int
	tail chan struct{} // закрывается, когда доставка последней операции закончена
}

// Directory линеаризует операции над одной комнатой.
// Разные комнаты работают параллельно.
type Directory struct {
	mu    sync.Mutex
	rooms map[string]*slot
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]*slot)}
}

// Do выполняет fn под эксклюзивным слотом комнаты.
// Ожидание слота прерывается отменой ctx.
func (d *Directory) Do(ctx context.Context, code string, fn func(ctx context.Context) error) error {
	return d.DoThen(ctx, code, func(ctx context.Context) (func(), error) {
		return nil, fn(ctx)
	})
}

// DoThen выполняет fn под слотом комнаты, а возвращённый ею after уже
// после освобождения слота. after разных операций одной комнаты
// выполняются в том же порядке, что и сами операции.
func (d *Directory) DoThen(ctx context.Context, code string, fn func(ctx context.Context) (after func(), err error)) error {
	s := d.retain(code)
	defer d.release(code, s)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	after, err := fn(ctx)
	if after == nil {
		s.sem.Release(1)
		return err
	}

	prev := s.tail
	done := make(chan struct{})
	s.tail = done
	s.sem.Release(1)

	defer close(done)
	if prev != nil {
		<-prev
	}
	after()
	return err
}

func (d *Directory) retain(code string) *slot {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.rooms[code]
	if !ok {
		s = &slot{sem: semaphore.NewWeighted(1)}
		d.rooms[code] = s
	}
	s.refs++
	return s
}

func (d *Directory) release(code string, s *slot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(d.rooms, code)
	}
}

// Len: число комнат, по которым сейчас идут операции.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}
