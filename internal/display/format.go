package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"arena/internal/core"
	"arena/internal/game"
	"arena/internal/match"
)

const defaultWidth = 80

// Printer writes a running match to a terminal or log file.
type Printer struct {
	w     io.Writer
	quiet bool
	width int
}

// NewPrinter writes to w. Quiet printers only report the result.
func NewPrinter(w io.Writer, quiet bool) *Printer {
	return &Printer{w: w, quiet: quiet, width: terminalWidth(w)}
}

// terminalWidth is the width of w when it is a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// Header announces the players.
func (p *Printer) Header(white, black string) {
	if p.quiet {
		return
	}
	line := fmt.Sprintf("%s %s %s", WhitePiece.Render(white), Muted.Render("vs"), BlackPiece.Render(black))
	fmt.Fprintln(p.w, Title.Render(line))
	fmt.Fprintln(p.w, Muted.Render(strings.Repeat("─", min(p.width, 60))))
}

// Move prints one ply.
func (p *Printer) Move(m match.Move) {
	if p.quiet {
		return
	}
	number := fmt.Sprintf("%d.", (m.Ply+1)/2)
	if m.Color == core.ColorBlack {
		number = fmt.Sprintf("%d...", (m.Ply+1)/2)
	}

	style := WhitePiece
	if m.Color == core.ColorBlack {
		style = BlackPiece
	}

	line := fmt.Sprintf("%-7s %-6s", number, style.Render(m.Move))
	if m.Ponder != "" {
		line += Muted.Render(" ponder " + m.Ponder)
	}
	line += Muted.Render(fmt.Sprintf("  %s  %s", m.Elapsed.Round(time.Millisecond), m.Player))
	fmt.Fprintln(p.w, line)
}

// Result prints the outcome in a box, with the final board when known.
func (p *Printer) Result(g *game.Game) {
	state := g.State()

	color := DrawColor
	if state == core.StateWhiteWins || state == core.StateBlackWins {
		color = WinColor
	}
	head := Title.Foreground(color).Render(fmt.Sprintf("%s  %s", state.Score(), state))

	var body strings.Builder
	body.WriteString(head)
	if reason := g.Reason(); reason != "" {
		body.WriteString("\n" + reason)
	}
	fmt.Fprintf(&body, "\n%d plies in %s", g.Plies(), g.Finished().Sub(g.Started()).Round(time.Millisecond))
	if moves := g.Moves(); len(moves) > 0 {
		body.WriteString("\n" + Muted.Width(min(p.width, 60)).Render(strings.Join(moves, " ")))
	}

	fmt.Fprintln(p.w, ResultBox.Render(body.String()))

	if !p.quiet && g.Plies() > 0 {
		if fen := g.CurrentFEN(); fen != "" {
			_ = RenderBoard(p.w, fen)
		}
	}
}

// PrettyPrintJSON writes v as indented JSON
func PrettyPrintJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// Summary prints a match reported by a server.
func (p *Printer) Summary(m *core.MatchResponse) {
	if m.Status == "failed" {
		fmt.Fprintln(p.w, ResultBox.BorderForeground(BlackColor).Render(
			Title.Render("Match failed")+"\n"+m.Error))
		return
	}

	state := core.ParseState(m.State)
	color := DrawColor
	if state == core.StateWhiteWins || state == core.StateBlackWins {
		color = WinColor
	}

	var body strings.Builder
	body.WriteString(Title.Foreground(color).Render(fmt.Sprintf("%s  %s", state.Score(), state)))
	fmt.Fprintf(&body, "\n%s vs %s", m.White, m.Black)
	if m.Reason != "" {
		body.WriteString("\n" + m.Reason)
	}
	fmt.Fprintf(&body, "\n%d plies", len(m.Moves))
	if len(m.Moves) > 0 {
		body.WriteString("\n" + Muted.Width(min(p.width, 60)).Render(strings.Join(m.Moves, " ")))
	}
	fmt.Fprintln(p.w, ResultBox.Render(body.String()))

	if !p.quiet && m.FEN != "" {
		_ = RenderBoard(p.w, m.FEN)
	}
}
