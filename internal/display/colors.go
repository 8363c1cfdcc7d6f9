// Package display renders match progress for the terminal.
package display

import "github.com/charmbracelet/lipgloss"

var (
	WhiteColor = lipgloss.Color("#60A5FA") // Blue
	BlackColor = lipgloss.Color("#F87171") // Red
	CoordColor = lipgloss.Color("#22D3EE") // Cyan
	MutedColor = lipgloss.Color("#9CA3AF")
	WinColor   = lipgloss.Color("#10B981")
	DrawColor  = lipgloss.Color("#FBBF24")

	WhitePiece = lipgloss.NewStyle().Foreground(WhiteColor).Bold(true)
	BlackPiece = lipgloss.NewStyle().Foreground(BlackColor).Bold(true)
	Coord      = lipgloss.NewStyle().Foreground(CoordColor)
	Muted      = lipgloss.NewStyle().Foreground(MutedColor)

	Title = lipgloss.NewStyle().Bold(true)

	ResultBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(MutedColor).
			Padding(0, 2)
)

// Prompt returns a styled prompt string
func Prompt(text string) string {
	return lipgloss.NewStyle().Foreground(DrawColor).Render(text + " > ")
}
