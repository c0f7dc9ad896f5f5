package format

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// styles are rendered with a fixed ANSI profile; whether they are applied at
// all is decided by the Formatter, not by probing the output.
type styles struct {
	yellow  lipgloss.Style
	cyan    lipgloss.Style
	magenta lipgloss.Style
	red     lipgloss.Style
	green   lipgloss.Style
	reverse lipgloss.Style
}

func newStyles() styles {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.ANSI)

	return styles{
		yellow:  r.NewStyle().Foreground(lipgloss.Color("3")),
		cyan:    r.NewStyle().Foreground(lipgloss.Color("6")),
		magenta: r.NewStyle().Foreground(lipgloss.Color("5")),
		red:     r.NewStyle().Foreground(lipgloss.Color("1")),
		green:   r.NewStyle().Foreground(lipgloss.Color("2")),
		reverse: r.NewStyle().Reverse(true),
	}
}
