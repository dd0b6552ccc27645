package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Status colours.
const (
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourError   = lipgloss.Color("#F38BA8")
	colourMuted   = lipgloss.Color("#6C7086")
	colourAccent  = lipgloss.Color("#7C3AED")
)

// styles colours status words. Colour is dropped when the writer is not
// a terminal, so piped and captured output stays plain.
type styles struct {
	heading lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		heading: r.NewStyle().Bold(true).Foreground(colourAccent),
		ok:      r.NewStyle().Foreground(colourSuccess),
		warn:    r.NewStyle().Foreground(colourWarning),
		fail:    r.NewStyle().Bold(true).Foreground(colourError),
		muted:   r.NewStyle().Foreground(colourMuted),
	}
}
