package testfixtures

import (
	"strings"
	"testing"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/colorprofile"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/ansi"
)

// Initialize test environment
func init() {
	// Set Ascii profile to disable color output for consistent assertions across CI/platforms
	lipgloss.Writer.Profile = colorprofile.Ascii
}

// Canonical terminal size for all tests
const (
	TestTermWidth  = 120
	TestTermHeight = 40
)

// Conservative timeout for waiting on background work (CI compatibility)
const (
	DefaultWaitDuration  = 5 * time.Second
	DefaultCheckInterval = 10 * time.Millisecond
)

// RetryTest retries a test function up to maxAttempts times if it fails.
// Useful for handling flaky tests due to timing issues.
func RetryTest(t *testing.T, maxAttempts int, fn func() error) {
	t.Helper()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := fn(); err == nil {
			return // Test passed
		} else {
			lastErr = err
			if attempt < maxAttempts {
				t.Logf("Attempt %d/%d failed: %v (retrying...)", attempt, maxAttempts, err)
			}
		}
	}
	// All attempts failed
	t.Fatalf("Test failed after %d attempts: %v", maxAttempts, lastErr)
}

// RenderScreen creates a screen buffer of the canonical size, renders into it
// and returns the plain text with trailing blanks trimmed from every line.
func RenderScreen(renderFn func(canvas uv.ScreenBuffer)) string {
	canvas := uv.NewScreenBuffer(TestTermWidth, TestTermHeight)
	renderFn(canvas)
	return PlainText(canvas.Render())
}

// PlainText strips ANSI sequences and trailing blanks so tests can assert
// on visible text only.
func PlainText(s string) string {
	s = ansi.Strip(s)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \r")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
