package engine

import (
	"time"
)

// DefaultHardFactor is the multiple of the soft budget after which an
// unanswered search is abandoned.
const DefaultHardFactor = 2

// SearchState tracks a best-move query through its lifetime.
type SearchState int

const (
	SearchIdle SearchState = iota
	SearchPositionSet
	SearchSearching
	SearchStopInjected
	SearchResolved
)

func (s SearchState) String() string {
	switch s {
	case SearchIdle:
		return "idle"
	case SearchPositionSet:
		return "position set"
	case SearchSearching:
		return "searching"
	case SearchStopInjected:
		return "stop injected"
	case SearchResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// SearchRequest describes one best-move query.
type SearchRequest struct {
	Position Position
	// Soft is the budget after which stop is sent.
	Soft time.Duration
	// HardFactor scales Soft into the abandon deadline. Zero or less means
	// DefaultHardFactor.
	HardFactor float64
}

func (r SearchRequest) hard() time.Duration {
	factor := r.HardFactor
	if factor <= 0 {
		factor = DefaultHardFactor
	}
	return time.Duration(float64(r.Soft) * factor)
}

// QueryBestMove runs an infinite search on the requested position, sends
// stop once the soft budget is spent and gives up at the hard deadline.
// A nil result with a nil error means the engine did not answer in time or
// went away; the only error is ErrBusy when another query is outstanding.
func (p *Process) QueryBestMove(req SearchRequest) (*BestMove, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.busy.Store(false)

	tx, rx := p.Split()
	log := p.log.With("soft", req.Soft, "hard", req.hard())

	stale := rx.Drain()
	if len(stale) > 0 {
		log.Debug("Discarded stale engine output", "lines", len(stale))
	}
	if p.desync.Load() && !p.resync(tx, rx, Has[BestMove]()(stale), req.Soft) {
		log.Warn("Engine did not resynchronize after abandoned search")
		return nil, nil
	}

	poll := req.Soft / 10
	if poll <= 0 {
		poll = time.Millisecond
	}

	q := NewQueue(req.Position, Go{Infinite: true})
	state := SearchIdle
	start := time.Now()
	var acc []Response

	for {
		acc = acc[:0]
		InterleaveUntil(tx, rx, q, &acc, Has[BestMove](), poll)

		if bm, ok := Find[BestMove](acc); ok {
			log.Debug("Search resolved", "move", bm.Move, "ponder", bm.Ponder, "elapsed", time.Since(start), "from", state)
			return &bm, nil
		}

		switch {
		case state < SearchSearching && q.Len() == 0:
			state = SearchSearching
		case state < SearchPositionSet && q.Len() == 1:
			state = SearchPositionSet
		}

		elapsed := time.Since(start)
		if elapsed > req.Soft && state != SearchStopInjected {
			q.PushUnique(Stop{})
			state = SearchStopInjected
			log.Debug("Soft budget spent, stop queued", "elapsed", elapsed)
		}

		if elapsed > req.hard() {
			p.desync.Store(true)
			log.Warn("Engine gave no best move before hard deadline", "elapsed", elapsed)
			return nil, nil
		}

		select {
		case <-rx.Done():
			log.Warn("Engine exited during search", "state", state)
			return nil, nil
		default:
		}
	}
}

// resync absorbs the late answer to an abandoned search, if it comes within
// budget and was not already drained, then waits for a readyok before
// anything new is queued.
func (p *Process) resync(tx *Sender, rx *Receiver, answered bool, budget time.Duration) bool {
	var acc []Response
	if answered {
		p.log.Debug("Late best move already discarded")
	} else if InterleaveUntil(tx, rx, NewQueue(), &acc, Has[BestMove](), budget) {
		bm, _ := Find[BestMove](acc)
		p.log.Debug("Discarded late best move", "move", bm.Move)
	}

	acc = acc[:0]
	if !InterleaveUntil(tx, rx, NewQueue(IsReady{}), &acc, Has[ReadyOK](), budget) {
		return false
	}
	p.desync.Store(false)
	return true
}
