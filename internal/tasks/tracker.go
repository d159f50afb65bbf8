package tasks

import (
	"context"
	"errors"
	"log"
	"sync"
)

var ErrShutdownTimeout = errors.New("shutdown timeout")

// Tracker owns the fire-and-forget background work of the process (memory
// recording, consolidation, outbound dispatch). Every goroutine it spawns is
// tied to a shared context so shutdown can cancel and await them
// deterministically instead of leaking tasks.
type Tracker struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func NewTracker() *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{ctx: ctx, cancel: cancel}
}

// Go schedules fn on the tracker's context. After Shutdown, submissions are
// dropped with a log line.
func (t *Tracker) Go(name string, fn func(ctx context.Context)) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		log.Printf("tasks: dropping %q, tracker is shut down", name)
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("tasks: %q panicked: %v", name, r)
			}
		}()
		fn(t.ctx)
	}()
}

// Shutdown cancels the shared context and waits for in-flight tasks until
// ctx expires.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrShutdownTimeout
	}
}
