package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/rigbuild/rig/internal/constants"
	"github.com/rigbuild/rig/internal/domain"
	"github.com/rigbuild/rig/internal/engine"
)

// Semantic colors for command output. AdaptiveColor keeps output readable
// on both light and dark terminals.
//
//nolint:gochecknoglobals // Package-level styling API
var (
	// ColorSuccess is green, used for succeeded tasks.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}

	// ColorWarning is yellow, used for skipped tasks and soft failures.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}

	// ColorError is red, used for failed tasks.
	ColorError = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	// ColorMuted is gray, used for durations and secondary text.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	styleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	styleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	styleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	styleHeader  = lipgloss.NewStyle().Bold(true)
)

// CheckNoColor disables colored output when the terminal does not support
// it. Call at the start of commands that render styled output.
func CheckNoColor() {
	if !HasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// HasColorSupport returns false when NO_COLOR is set (any value, per
// https://no-color.org/) or TERM=dumb.
func HasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// statusGlyph maps a task status to its icon and style. Icon, color and
// text are all present so no information is lost without color.
func statusGlyph(status constants.TaskStatus) (string, lipgloss.Style) {
	switch status {
	case constants.TaskStatusSucceeded:
		return "✓", styleSuccess
	case constants.TaskStatusFailed:
		return "✗", styleError
	case constants.TaskStatusSkipped:
		return "-", styleWarning
	case constants.TaskStatusPending, constants.TaskStatusRunning:
		return "…", styleMuted
	default:
		return "?", styleMuted
	}
}

// renderSummary renders the human-readable outcome of a build run.
func renderSummary(result *engine.BuildResult) string {
	var b strings.Builder

	for _, o := range result.Outcomes {
		icon, style := statusGlyph(o.Status)
		line := fmt.Sprintf("%s %-9s %s", icon, o.Status, o.TaskID)
		b.WriteString(style.Render(line))
		b.WriteString(" ")
		b.WriteString(styleMuted.Render(o.Duration.Round(roundTo(o.Duration)).String()))
		if o.Reason != "" {
			b.WriteString(" ")
			b.WriteString(styleMuted.Render("(" + o.Reason + ")"))
		}
		b.WriteString("\n")
	}

	succeeded, failed, skipped := result.Counts()
	summary := fmt.Sprintf("%d succeeded, %d failed, %d skipped in %s",
		succeeded, failed, skipped, result.Duration.Round(roundTo(result.Duration)))

	b.WriteString("\n")
	if failed > 0 {
		b.WriteString(styleError.Render("BUILD FAILED"))
	} else {
		b.WriteString(styleSuccess.Render("BUILD SUCCEEDED"))
	}
	b.WriteString(styleMuted.Render("  " + summary))
	b.WriteString("\n")

	if failure := result.FirstFailure(); failure != nil && failure.Output != "" {
		b.WriteString("\n")
		b.WriteString(styleHeader.Render(fmt.Sprintf("output of failed task %q:", failure.TaskID)))
		b.WriteString("\n")
		b.WriteString(failure.Output)
		b.WriteString("\n")
	}

	return b.String()
}

// renderCheckOutcome renders the condensed suite aggregate as text.
func renderCheckOutcome(outcome *domain.AggregateOutcome) string {
	var b strings.Builder

	for i := range outcome.Reports {
		r := &outcome.Reports[i]
		if r.Empty() {
			b.WriteString(styleSuccess.Render("✓ " + r.Suite))
			b.WriteString(styleMuted.Render("  no failures"))
			b.WriteString("\n")
			continue
		}
		b.WriteString(styleError.Render(fmt.Sprintf("✗ %s  %d failing", r.Suite, len(r.Failures))))
		b.WriteString("\n")
		for _, c := range r.Failures {
			line := fmt.Sprintf("    %s [%s]", c.Name, c.Status)
			if c.Message != "" {
				line += ": " + firstLine(c.Message)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	for _, missing := range outcome.MissingSuites {
		b.WriteString(styleWarning.Render("- " + filepath.Base(missing)))
		b.WriteString(styleMuted.Render("  (no results)"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if total := outcome.TotalFailures(); total > 0 {
		b.WriteString(styleError.Render(fmt.Sprintf("%d failing case(s)", total)))
	} else {
		b.WriteString(styleSuccess.Render("all suites passed"))
	}
	b.WriteString("\n")
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// roundTo picks a display precision appropriate for the magnitude.
func roundTo(d time.Duration) time.Duration {
	if d >= 10*time.Second {
		return 100 * time.Millisecond
	}
	return time.Millisecond
}
