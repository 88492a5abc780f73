package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ColorEnabled reports whether styled output should be written to f.
// NO_COLOR disables color everywhere.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ConfigureColor points the lipgloss renderer at f, dropping to plain
// ASCII when f is not a terminal.
func ConfigureColor(f *os.File) {
	if !ColorEnabled(f) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetDefaultRenderer(lipgloss.NewRenderer(f))
}
