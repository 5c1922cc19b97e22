// Package terminal detects terminal capabilities and paints rendered
// documents with ANSI styles.
package terminal

import (
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
)

var noColorEnv = []string{"OKNI_NO_COLOR", "NO_COLOR"}

// ColorDisabled reports whether the environment opts out of ANSI styling:
// either no-color variable is non-empty, or the process runs in a legacy
// Windows console instead of Windows Terminal.
func ColorDisabled() bool {
	for _, name := range noColorEnv {
		if strings.TrimSpace(os.Getenv(name)) != "" {
			return true
		}
	}
	return runtime.GOOS == "windows" && !inWindowsTerminal()
}

func inWindowsTerminal() bool {
	return strings.TrimSpace(os.Getenv("WT_SESSION")) != "" ||
		strings.TrimSpace(os.Getenv("TERM_PROGRAM")) == "WindowsTerminal"
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// ColorEnabled combines the configured preference with ColorDisabled and TTY
// detection.
func ColorEnabled(f *os.File, configured bool) bool {
	return configured && !ColorDisabled() && IsTerminal(f)
}

// Width returns the column count of the terminal behind f, or fallback when
// f is not a terminal.
func Width(f *os.File, fallback int) int {
	if !IsTerminal(f) {
		return fallback
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
