package match

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"arena/internal/core"
	"arena/internal/engine"
)

var ErrIllegalMove = errors.New("illegal move")

// Referee keeps the board for a match. It is consulted after every move and
// when a side reports it has no move.
type Referee interface {
	// Apply plays move in fen and returns the resulting position, or
	// ErrIllegalMove.
	Apply(fen, move string) (string, error)
	// Outcome adjudicates fen, in which the side to move has no legal move.
	Outcome(fen string) (core.State, string, error)
}

// EngineReferee is a Referee backed by an engine that prints the board on
// request, such as Stockfish.
type EngineReferee struct {
	proc   *engine.Process
	budget time.Duration
}

func NewEngineReferee(proc *engine.Process, budget time.Duration) *EngineReferee {
	return &EngineReferee{proc: proc, budget: budget}
}

func (r *EngineReferee) Apply(fen, move string) (string, error) {
	info, err := r.proc.Inspect(engine.Position{FEN: fen, Moves: []string{move}}, r.budget)
	if err != nil {
		return "", err
	}
	// The engine stops reading moves at the first illegal one, leaving the
	// same side to move.
	if sideToMove(info.FEN) == sideToMove(fen) {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, move)
	}
	return info.FEN, nil
}

func (r *EngineReferee) Outcome(fen string) (core.State, string, error) {
	info, err := r.proc.Inspect(engine.Position{FEN: fen}, r.budget)
	if err != nil {
		return core.StateAborted, "", err
	}
	if !info.InCheck() {
		return core.StateDraw, "stalemate", nil
	}
	loser := core.ColorWhite
	if sideToMove(fen) == "b" {
		loser = core.ColorBlack
	}
	return core.WinFor(core.OppositeColor(loser)), "checkmate", nil
}

func sideToMove(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}
