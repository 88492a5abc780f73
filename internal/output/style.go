package output

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// ColorBranch colors a branch name
func ColorBranch(name string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Render(name)
}

// ColorPath colors a filesystem path
func ColorPath(path string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("6")).
		Render(path)
}

// ColorURL colors and underlines a URL
func ColorURL(url string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("4")).
		Underline(true).
		Render(url)
}

// ColorPRNumber renders "#N" in bold
func ColorPRNumber(number int) string {
	return lipgloss.NewStyle().
		Bold(true).
		Render(fmt.Sprintf("#%d", number))
}

// ColorDim makes text dim/gray
func ColorDim(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Render(text)
}
