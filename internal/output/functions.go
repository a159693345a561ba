package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/tanq16/filedown/internal/utils"
	"golang.org/x/term"
)

// ProgressBarLine renders a fixed-width bar with percentage for current out of total.
func ProgressBarLine(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	if total <= 0 {
		total = 1
	}
	current = max(0, min(current, total))
	percent := float64(current) / float64(total)
	filled := max(0, min(int(percent*float64(width)), width))
	bar := symbolBullet
	bar += strings.Repeat(symbolBarFill, filled)
	bar += strings.Repeat(" ", width-filled)
	bar += symbolBullet
	return fmt.Sprintf("%s %.1f%% %s %s / %s", bar, percent*100, symbolBullet,
		utils.FormatBytes(uint64(current)), utils.FormatBytes(uint64(total)))
}

// IsTerminal reports whether stdout can take cursor movement for the live display.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func terminalHeight() int {
	_, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || height <= 0 {
		return 24 // Default fallback height
	}
	return height
}
