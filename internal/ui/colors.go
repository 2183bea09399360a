// Package ui holds the ANSI styling used by CLI output
package ui

import (
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI color and style codes. They are emptied when stdout is not a
// terminal or NO_COLOR is set.
var (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

func init() {
	if !Enabled() {
		Disable()
	}
}

// Enabled reports whether stdout should get colors
func Enabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Disable turns every style into an empty string
func Disable() {
	for _, c := range []*string{&ColorReset, &ColorBold, &ColorDim, &ColorCyan, &ColorGreen, &ColorYellow, &ColorWhite, &ColorRed} {
		*c = ""
	}
}

func Bold(s string) string {
	return ColorBold + s + ColorReset
}

func Success(s string) string {
	return ColorGreen + s + ColorReset
}

func Info(s string) string {
	return ColorDim + ColorYellow + s + ColorReset
}

func Error(s string) string {
	return ColorRed + s + ColorReset
}
