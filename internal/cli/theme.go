package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Heading lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Hint    lipgloss.Color
	plain   bool
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Heading: lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Warning: lipgloss.Color("#FFAF00"), // amber
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

// themeFor returns the default theme when w is a terminal and an uncolored
// one otherwise.
func themeFor(w io.Writer) Theme {
	t := defaultTheme
	f, ok := w.(*os.File)
	t.plain = !ok || !term.IsTerminal(int(f.Fd()))
	return t
}

func (t Theme) style(c lipgloss.Color) lipgloss.Style {
	if t.plain {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(c)
}

func (t Theme) headingStyle() lipgloss.Style {
	if t.plain {
		return lipgloss.NewStyle()
	}
	return t.style(t.Heading).Bold(true)
}

func (t Theme) successStyle() lipgloss.Style {
	return t.style(t.Success)
}

func (t Theme) warningStyle() lipgloss.Style {
	return t.style(t.Warning)
}

func (t Theme) hintStyle() lipgloss.Style {
	if t.plain {
		return lipgloss.NewStyle()
	}
	return t.style(t.Hint).Italic(true)
}
