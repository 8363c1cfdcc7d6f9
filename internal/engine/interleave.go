package engine

import (
	"slices"
	"time"
)

// Queue is a FIFO of commands waiting to be sent.
type Queue struct {
	items []Command
}

func NewQueue(cmds ...Command) *Queue {
	return &Queue{items: slices.Clone(cmds)}
}

func (q *Queue) Push(cmds ...Command) {
	q.items = append(q.items, cmds...)
}

// PushUnique enqueues cmd unless an identical command is already pending.
func (q *Queue) PushUnique(cmd Command) bool {
	line := cmd.String()
	for _, pending := range q.items {
		if pending.String() == line {
			return false
		}
	}
	q.items = append(q.items, cmd)
	return true
}

func (q *Queue) Front() (Command, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

func (q *Queue) Pop() (Command, bool) {
	cmd, ok := q.Front()
	if ok {
		q.items[0] = nil
		q.items = q.items[1:]
	}
	return cmd, ok
}

func (q *Queue) Len() int {
	return len(q.items)
}

// Interleave sends queued commands and collects engine responses until
// budget expires. Commands leave the queue strictly front to back; responses
// are appended to acc in arrival order. Nothing is rolled back on expiry.
// It returns early if the engine's output ends.
func Interleave(tx *Sender, rx *Receiver, q *Queue, acc *[]Response, budget time.Duration) {
	interleave(tx, rx, q, acc, nil, budget)
}

// InterleaveUntil is Interleave that also stops as soon as until holds for
// the accumulated responses. It reports whether until was satisfied.
func InterleaveUntil(tx *Sender, rx *Receiver, q *Queue, acc *[]Response, until func([]Response) bool, budget time.Duration) bool {
	return interleave(tx, rx, q, acc, until, budget)
}

func interleave(tx *Sender, rx *Receiver, q *Queue, acc *[]Response, until func([]Response) bool, budget time.Duration) bool {
	timer := time.NewTimer(budget)
	defer timer.Stop()

	for {
		if until != nil && until(*acc) {
			return true
		}

		// A nil mailbox disables the send case while the queue is empty
		var mailbox chan<- Command
		front, pending := q.Front()
		if pending {
			mailbox = tx.mailbox
		}

		select {
		case <-timer.C:
			return false

		case line, open := <-rx.lines:
			if !open {
				rx.log.Debug("Engine output ended during interleave", "pending", q.Len())
				return until != nil && until(*acc)
			}
			*acc = append(*acc, rx.decode(line))

		case mailbox <- front:
			q.Pop()
			tx.log.Debug("send", "line", front.String())
		}
	}
}

// Has returns a predicate matching any accumulated response of type T.
func Has[T Response]() func([]Response) bool {
	return func(acc []Response) bool {
		return slices.ContainsFunc(acc, func(r Response) bool {
			_, ok := r.(T)
			return ok
		})
	}
}

// Find returns the first accumulated response of type T.
func Find[T Response](acc []Response) (T, bool) {
	for _, r := range acc {
		if v, ok := r.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
