package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"arena/internal/match"
)

var (
	ErrQueueFull     = errors.New("match queue is full")
	ErrShuttingDown  = errors.New("match queue is shutting down")
	defaultQueueSize = 100
)

// MatchTask is a match waiting for a worker.
type MatchTask struct {
	ID     string
	Config match.Config
}

// MatchQueue runs queued matches on a fixed pool of workers. Each match owns
// its engine processes for as long as it runs.
type MatchQueue struct {
	tasks   chan MatchTask
	workers int
	run     func(ctx context.Context, task MatchTask)
	log     *slog.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

// NewMatchQueue starts workerCount workers calling run for every task.
func NewMatchQueue(workerCount int, run func(ctx context.Context, task MatchTask), log *slog.Logger) *MatchQueue {
	if workerCount < 1 {
		workerCount = 2
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &MatchQueue{
		tasks:   make(chan MatchTask, defaultQueueSize),
		workers: workerCount,
		run:     run,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

func (q *MatchQueue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			q.log.Debug("Worker picked up match", "worker", id, "match", task.ID)
			q.run(q.ctx, task)

		case <-q.ctx.Done():
			return
		}
	}
}

// Submit queues a task without blocking.
func (q *MatchQueue) Submit(task MatchTask) error {
	select {
	case <-q.ctx.Done():
		return ErrShuttingDown
	default:
	}

	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown aborts running matches and waits for the workers to return.
// Queued matches that never started are dropped.
func (q *MatchQueue) Shutdown(timeout time.Duration) error {
	q.once.Do(q.cancel)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("match queue shutdown timed out after %s", timeout)
	}
}
