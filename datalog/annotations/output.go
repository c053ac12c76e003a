package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// OutputFormatter formats events for human-readable display.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter creates a formatter with color support detection.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	// Auto-detect color support
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}

	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
	}
}

// Handle implements the Handler interface - prints events as they occur
func (f *OutputFormatter) Handle(event Event) {
	output := f.Format(event)
	if output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)

	switch event.Name {
	case ProgramInvoked:
		return fmt.Sprintf("%s Program: %s with %s, %s",
			latency,
			f.colorizeCount("relations", event.Data["relations.count"].(int)),
			f.colorizeCount("facts", event.Data["facts.count"].(int)),
			f.colorizeCount("rules", event.Data["rules.count"].(int)))

	case ProgramCompleted:
		return fmt.Sprintf("%s %s Evaluation done with %s across %s.",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("tuples", event.Data["tuples.count"].(int)),
			f.colorizeCount("relations", event.Data["relations.count"].(int)))

	case AnalysisStratified:
		return fmt.Sprintf("%s Stratified into %s",
			latency,
			f.colorizeCount("strata", event.Data["strata.count"].(int)))

	case TypecheckCompleted:
		return fmt.Sprintf("%s Type check passed for %s",
			latency,
			f.colorizeCount("facts", event.Data["facts.count"].(int)))

	case StratumBegin:
		return fmt.Sprintf("%s %s Stratum %d starting with %s over %v",
			latency,
			f.colorize("===", color.FgYellow),
			event.Data["stratum"],
			f.colorizeCount("rules", event.Data["rules.count"].(int)),
			event.Data["relations"])

	case StratumFixpoint:
		return fmt.Sprintf("%s Stratum %d reached fixpoint after %s with %s",
			latency,
			event.Data["stratum"],
			f.colorizeCount("iterations", event.Data["iterations"].(int)),
			f.colorizeCount("tuples", event.Data["tuples.count"].(int)))

	case IterationCompleted:
		return fmt.Sprintf("%s Iteration %d derived %s",
			latency,
			event.Data["iteration"],
			f.colorizeCount("tuples", event.Data["delta.count"].(int)))

	case ErrorSafety, ErrorStratification, ErrorTypecheck:
		return fmt.Sprintf("%s %s %v",
			latency,
			f.colorize("✗", color.FgRed),
			event.Data["error"])
	}

	return ""
}

// formatLatency formats a duration as [XXXms] or [XXXµs] with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	// Use microseconds for sub-millisecond durations
	if d < time.Millisecond {
		us := d.Microseconds()
		s := fmt.Sprintf("[%dµs]", us)
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)

	if !f.useColor {
		return s
	}

	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount formats a count with a label, using color based on the label type.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)

	if !f.useColor {
		return text
	}

	switch strings.ToLower(label) {
	case "relations", "strata":
		return color.CyanString(text)
	case "tuples", "facts":
		return color.MagentaString(text)
	case "rules", "iterations":
		return color.BlueString(text)
	default:
		return text
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// ConsoleHandler creates a handler that prints formatted events to stdout.
func ConsoleHandler() Handler {
	formatter := NewOutputFormatter(os.Stdout)
	return formatter.Handle
}

// isTerminal checks if the file descriptor is a terminal.
// This is a simplified version - in production you'd use a proper terminal detection library.
func isTerminal(fd uintptr) bool {
	return fd == uintptr(1) || fd == uintptr(2) // stdout or stderr
}
