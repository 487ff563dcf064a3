package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_SerializesPerRoom(t *testing.T) {
	d := NewDirectory()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Do(context.Background(), "ROOM", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, d.Len())
}

func TestDirectory_RoomsRunInParallel(t *testing.T) {
	d := NewDirectory()
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = d.Do(context.Background(), "A", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	done := make(chan struct{})
	go func() {
		_ = d.Do(context.Background(), "B", func(context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("room B waited for room A")
	}
	close(release)
}

func TestDirectory_AcquireHonorsContext(t *testing.T) {
	d := NewDirectory()
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go func() {
		_ = d.Do(context.Background(), "A", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Do(ctx, "A", func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDirectory_DoThenDeliversOutsideSlotInOrder(t *testing.T) {
	d := NewDirectory()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var order []int
	push := func(n int) {
		mu.Lock()
		order = append(order, n)
		mu.Unlock()
	}

	done := make(chan struct{}, 2)
	go func() {
		_ = d.DoThen(ctx, "ROOM", func(context.Context) (func(), error) {
			return func() {
				close(entered)
				<-release
				push(1)
			}, nil
		})
		done <- struct{}{}
	}()
	<-entered

	// первая доставка висит, но слот уже свободен
	short, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	require.NoError(t, d.Do(short, "ROOM", func(context.Context) error { return nil }))

	go func() {
		_ = d.DoThen(ctx, "ROOM", func(context.Context) (func(), error) {
			return func() { push(2) }, nil
		})
		done <- struct{}{}
	}()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Empty(t, order)
	mu.Unlock()

	close(release)
	<-done
	<-done
	assert.Equal(t, []int{1, 2}, order)
	assert.Zero(t, d.Len())
}
