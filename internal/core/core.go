package core

type State int

const (
	StateOngoing State = iota
	StateWhiteWins
	StateBlackWins
	StateDraw
	// StateAborted is a match that ended without a result, for example
	// because an engine could not be started.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateWhiteWins:
		return "White wins"
	case StateBlackWins:
		return "Black wins"
	case StateDraw:
		return "Draw"
	case StateAborted:
		return "Aborted"
	default:
		return "Ongoing"
	}
}

// Code is the snake case form used by the API and storage.
func (s State) Code() string {
	switch s {
	case StateWhiteWins:
		return "white_wins"
	case StateBlackWins:
		return "black_wins"
	case StateDraw:
		return "draw"
	case StateAborted:
		return "aborted"
	default:
		return "ongoing"
	}
}

// ParseState is the inverse of State.Code.
func ParseState(code string) State {
	switch code {
	case "white_wins":
		return StateWhiteWins
	case "black_wins":
		return StateBlackWins
	case "draw":
		return StateDraw
	case "aborted":
		return StateAborted
	default:
		return StateOngoing
	}
}

// Score is the PGN style result tag.
func (s State) Score() string {
	switch s {
	case StateWhiteWins:
		return "1-0"
	case StateBlackWins:
		return "0-1"
	case StateDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

type Color byte

const (
	ColorWhite Color = 'w'
	ColorBlack Color = 'b'
)

func (c Color) String() string {
	if c == ColorWhite {
		return "White"
	}
	return "Black"
}

func OppositeColor(c Color) Color {
	if c == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}

// WinFor returns the state in which c has won.
func WinFor(c Color) State {
	if c == ColorWhite {
		return StateWhiteWins
	}
	return StateBlackWins
}
