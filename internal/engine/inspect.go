package engine

import (
	"slices"
	"strings"
	"time"
)

// BoardInfo is what an engine printed in answer to Display.
type BoardInfo struct {
	FEN string
	// Checkers lists the squares of pieces giving check, empty when the side
	// to move is not in check.
	Checkers []string
}

// InCheck reports whether the side to move is in check.
func (b BoardInfo) InCheck() bool {
	return len(b.Checkers) > 0
}

// Inspect sets pos and asks the engine to print the board. Only engines
// understanding the Stockfish "d" command can answer.
func (p *Process) Inspect(pos Position, budget time.Duration) (*BoardInfo, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.busy.Store(false)

	tx, rx := p.Split()
	rx.Drain()

	var acc []Response
	q := NewQueue(pos, Display{})
	if !InterleaveUntil(tx, rx, q, &acc, hasBoardLine("Checkers:"), budget) {
		return nil, ErrNoBoard
	}

	info := &BoardInfo{}
	for _, r := range acc {
		u, ok := r.(Unrecognized)
		if !ok {
			continue
		}
		line := strings.TrimSpace(u.Raw)
		switch {
		case strings.HasPrefix(line, "Fen:"):
			info.FEN = strings.TrimSpace(strings.TrimPrefix(line, "Fen:"))
		case strings.HasPrefix(line, "Checkers:"):
			info.Checkers = strings.Fields(strings.TrimPrefix(line, "Checkers:"))
		}
	}
	if info.FEN == "" {
		return nil, ErrNoBoard
	}
	return info, nil
}

func hasBoardLine(prefix string) func([]Response) bool {
	return func(acc []Response) bool {
		return slices.ContainsFunc(acc, func(r Response) bool {
			u, ok := r.(Unrecognized)
			return ok && strings.HasPrefix(strings.TrimSpace(u.Raw), prefix)
		})
	}
}
