package output

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Glyphs drawn by the job display and the progress line.
const (
	symbolPass    = "✓"
	symbolFail    = "✗"
	symbolActive  = "◉"
	symbolBullet  = "•"
	symbolBarFill = "━"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("37"))
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	waitingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	elapsedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
)

// PrintError, PrintWarning and PrintHeader write one styled line to stdout for the CLI.
func PrintError(text string) {
	fmt.Println(errorStyle.Render(text))
}

func PrintWarning(text string) {
	fmt.Println(warningStyle.Render(text))
}

func PrintHeader(text string) {
	fmt.Println(headerStyle.Render(text))
}
