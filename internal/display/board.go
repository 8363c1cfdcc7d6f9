package display

import (
	"fmt"
	"io"
	"strings"

	"arena/internal/board"
	"arena/internal/core"
)

// RenderBoard writes the position in fen as a colored ASCII board.
func RenderBoard(w io.Writer, fen string) error {
	b, err := board.ParseFEN(fen)
	if err != nil {
		return err
	}

	lines := strings.Split(b.ToASCII(), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		coordLine := i == 0 || i == len(lines)-1

		var sb strings.Builder
		for _, char := range line {
			s := string(char)
			switch {
			case char >= 'a' && char <= 'h' && coordLine:
				sb.WriteString(Coord.Render(s))
			case char >= 'A' && char <= 'Z':
				sb.WriteString(WhitePiece.Render(s))
			case char >= 'a' && char <= 'z':
				sb.WriteString(BlackPiece.Render(s))
			case char >= '1' && char <= '8':
				sb.WriteString(Coord.Render(s))
			default:
				sb.WriteRune(char)
			}
		}
		if _, err := fmt.Fprintln(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// ColorForTurn returns a styled side name
func ColorForTurn(c core.Color) string {
	if c == core.ColorWhite {
		return WhitePiece.Render("White")
	}
	return BlackPiece.Render("Black")
}
