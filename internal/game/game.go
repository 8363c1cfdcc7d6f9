package game

import (
	"time"

	"arena/internal/board"
	"arena/internal/core"
)

type Snapshot struct {
	FEN          string     // Board state at this point; empty when unknown
	PreviousMove string     // Move that created this position (empty for initial)
	Ponder       string     // Reply the mover expected, if any
	Elapsed      time.Duration
	NextTurn     core.Color // Whose turn it is at this position
}

// Game records one match between two engines.
type Game struct {
	snapshots []Snapshot
	players   map[core.Color]string
	state     core.State
	reason    string
	started   time.Time
	finished  time.Time
}

// New starts a game from initialFEN, or from the standard position when it
// is empty.
func New(initialFEN string, white, black string) *Game {
	turn := core.ColorWhite
	if initialFEN == "" {
		initialFEN = board.StartingFEN
	} else if b, err := board.ParseFEN(initialFEN); err == nil {
		turn = b.Turn()
	}

	return &Game{
		snapshots: []Snapshot{
			{
				FEN:      initialFEN,
				NextTurn: turn,
			},
		},
		players: map[core.Color]string{
			core.ColorWhite: white,
			core.ColorBlack: black,
		},
		state:   core.StateOngoing,
		started: time.Now().UTC(),
	}
}

func (g *Game) CurrentSnapshot() Snapshot {
	return g.snapshots[len(g.snapshots)-1]
}

func (g *Game) CurrentFEN() string {
	return g.CurrentSnapshot().FEN
}

func (g *Game) NextTurn() core.Color {
	return g.CurrentSnapshot().NextTurn
}

// Player returns the name playing c.
func (g *Game) Player(c core.Color) string {
	return g.players[c]
}

func (g *Game) NextPlayer() string {
	return g.players[g.NextTurn()]
}

// Play records move by the side to move. fen is the resulting position if
// known.
func (g *Game) Play(move, ponder, fen string, elapsed time.Duration) Snapshot {
	s := Snapshot{
		FEN:          fen,
		PreviousMove: move,
		Ponder:       ponder,
		Elapsed:      elapsed,
		NextTurn:     core.OppositeColor(g.NextTurn()),
	}
	g.snapshots = append(g.snapshots, s)
	return s
}

func (g *Game) Snapshots() []Snapshot {
	return append([]Snapshot(nil), g.snapshots...)
}

func (g *Game) Moves() []string {
	moves := []string{}
	for i := 1; i < len(g.snapshots); i++ {
		if g.snapshots[i].PreviousMove != "" {
			moves = append(moves, g.snapshots[i].PreviousMove)
		}
	}
	return moves
}

// Plies is the number of moves played.
func (g *Game) Plies() int {
	return len(g.snapshots) - 1
}

func (g *Game) State() core.State {
	return g.state
}

func (g *Game) Reason() string {
	return g.reason
}

// Finish ends the game. Later calls are ignored.
func (g *Game) Finish(s core.State, reason string) {
	if g.state != core.StateOngoing {
		return
	}
	g.state = s
	g.reason = reason
	g.finished = time.Now().UTC()
}

func (g *Game) Started() time.Time {
	return g.started
}

// Finished is zero while the game is ongoing.
func (g *Game) Finished() time.Time {
	return g.finished
}

// InitialFEN is the position the game started from.
func (g *Game) InitialFEN() string {
	return g.snapshots[0].FEN
}
