package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WaitTimeout is the longest a client may wait for a match to progress.
const WaitTimeout = 25 * time.Second

type waitRequest struct {
	plies  int
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

// fire signals the waiter at most once.
func (r *waitRequest) fire() {
	r.once.Do(func() {
		r.notify <- struct{}{}
		close(r.done)
	})
}

// WaitRegistry wakes long-polling clients when a match gains a ply or ends.
type WaitRegistry struct {
	mu       sync.Mutex
	waiters  map[string][]*waitRequest
	shutdown chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func NewWaitRegistry() *WaitRegistry {
	return &WaitRegistry{
		waiters:  make(map[string][]*waitRequest),
		shutdown: make(chan struct{}),
	}
}

// Register returns a channel that is signalled once the match moves past
// plies, the match ends, ctx is done or WaitTimeout passes, whichever is
// first.
func (w *WaitRegistry) Register(ctx context.Context, matchID string, plies int) <-chan struct{} {
	req := &waitRequest{
		plies:  plies,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	w.mu.Lock()
	w.waiters[matchID] = append(w.waiters[matchID], req)
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		timer := time.NewTimer(WaitTimeout)
		defer timer.Stop()

		select {
		case <-req.done:
		case <-ctx.Done():
		case <-timer.C:
			req.fire()
		case <-w.shutdown:
			req.fire()
		}
		w.remove(matchID, req)
	}()

	return req.notify
}

// Notify wakes waiters of matchID whose last seen ply count differs from plies.
func (w *WaitRegistry) Notify(matchID string, plies int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, req := range w.waiters[matchID] {
		if req.plies != plies {
			req.fire()
		}
	}
}

// Release wakes every waiter of matchID, used when the match ends.
func (w *WaitRegistry) Release(matchID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, req := range w.waiters[matchID] {
		req.fire()
	}
}

func (w *WaitRegistry) remove(matchID string, req *waitRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()

	list := w.waiters[matchID]
	for i, r := range list {
		if r == req {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(w.waiters, matchID)
	} else {
		w.waiters[matchID] = list
	}
}

// Shutdown wakes every waiter and waits for their goroutines.
func (w *WaitRegistry) Shutdown(timeout time.Duration) error {
	w.once.Do(func() { close(w.shutdown) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("wait registry shutdown timed out")
	}
}
