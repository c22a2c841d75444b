package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// DateTimeFormat is the timestamp layout used in human-readable output.
const DateTimeFormat = "2006-01-02 15:04:05"

// Balance label constants.
const (
	SkewedValue   = "Skewed"   // Skewed value
	UnevenValue   = "Uneven"   // Uneven value
	SlightValue   = "Slight"   // Slight value
	BalancedValue = "Balanced" // Balanced value
)

// Color variables for console output.
var (
	SkewedColor   = color.New(color.FgRed, color.Bold)     // SkewedColor represents standard danger.
	UnevenColor   = color.New(color.FgMagenta, color.Bold) // UnevenColor represents strong, distinct warning.
	SlightColor   = color.New(color.FgYellow)              // SlightColor represents standard caution, not bold.
	BalancedColor = color.New(color.FgCyan)                // BalancedColor represents informational / low-priority signal.
)

// GetPlainLabel returns a plain text label describing how far a label's share
// in one partition drifts from its overall share, in percentage points.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(drift float64) string {
	switch {
	case drift >= 10:
		return SkewedValue
	case drift >= 5:
		return UnevenValue
	case drift >= 2:
		return SlightValue
	default:
		return BalancedValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
// It uses GetPlainLabel to determine the string, and then applies the appropriate color.
func GetColorLabel(drift float64) string {
	text := GetPlainLabel(drift)

	switch text {
	case SkewedValue:
		return SkewedColor.Sprint(text)
	case UnevenValue:
		return UnevenColor.Sprint(text)
	case SlightValue:
		return SlightColor.Sprint(text)
	default:
		return BalancedColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for reshape caching.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".miklabel_cache.db"
	}
	return filepath.Join(homeDir, ".miklabel_cache.db")
}

// GetRunDBFilePath returns the path to the SQLite DB file for run tracking.
func GetRunDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".miklabel_runs.db"
	}
	return filepath.Join(homeDir, ".miklabel_runs.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to leave room for the "..." prefix and at least one character.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
