package outwriter

import (
	"os"

	"github.com/huangsam/miklabel/internal/contract"
	"golang.org/x/term"
)

// Bounds for a path column in table output.
const (
	minPathWidth = 15
	maxPathWidth = 70
)

// getTermWidth returns the width override, the detected terminal width or 80.
func getTermWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detectedWidth
}

// getMaxTablePathWidth calculates how wide a path column may be when the
// other columns of the table take reserved characters.
func getMaxTablePathWidth(cfg *contract.Config, reserved int) int {
	// Borders, separators and padding
	available := getTermWidth(cfg) - reserved - 20
	if available < minPathWidth {
		return minPathWidth
	}
	if available > maxPathWidth {
		return maxPathWidth
	}
	return available
}
