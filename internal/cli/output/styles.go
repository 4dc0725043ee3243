package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	ID      lipgloss.Style
}

// newStyles builds styles bound to w so color output follows its
// capabilities. Plain styles are returned when color is false.
func newStyles(w io.Writer, color bool) *Styles {
	if !color {
		// Pin the ASCII profile so nothing is emitted even on a terminal.
		plain := lipgloss.NewRenderer(w, termenv.WithProfile(termenv.Ascii)).NewStyle()
		return &Styles{
			Header1: plain, Header2: plain, Bold: plain, Muted: plain,
			Success: plain, Warning: plain, Error: plain, ID: plain,
		}
	}
	re := lipgloss.NewRenderer(w)
	return &Styles{
		Header1: re.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: re.NewStyle().Bold(true),
		Bold:    re.NewStyle().Bold(true),
		Muted:   re.NewStyle().Foreground(lipgloss.Color("8")),
		Success: re.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: re.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   re.NewStyle().Foreground(lipgloss.Color("9")),
		ID:      re.NewStyle().Foreground(lipgloss.Color("14")),
	}
}
