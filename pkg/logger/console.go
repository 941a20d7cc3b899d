// Package logger writes run progress to a console: levelled, timestamped lines
// with colour when the destination is a terminal.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/mslinn/simsnap/pkg/results"
)

// Level orders message severities.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var levelColors = map[Level]color.Attribute{
	LevelTrace: color.FgHiBlack,
	LevelDebug: color.FgCyan,
	LevelInfo:  color.FgBlue,
	LevelWarn:  color.FgYellow,
	LevelError: color.FgRed,
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

// ParseLevel maps trace|debug|info|warn|error (any case) to a Level.
// Anything else is LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ConsoleLogger writes "[HH:MM:SS] [LEVEL] message" lines. It is safe for
// concurrent use. A nil writer discards everything.
type ConsoleLogger struct {
	writer io.Writer
	level  Level
	color  bool
	mutex  sync.Mutex
	now    func() time.Time
}

// NewConsoleLogger creates a logger writing to w at the given minimum level.
func NewConsoleLogger(w io.Writer, level string) *ConsoleLogger {
	return &ConsoleLogger{
		writer: w,
		level:  ParseLevel(level),
		color:  isTerminal(w),
		now:    time.Now,
	}
}

// isTerminal reports whether w is a character device that should get colour.
// NO_COLOR (honoured by fatih/color) switches colour off everywhere.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Level returns the minimum level written.
func (cl *ConsoleLogger) Level() Level {
	return cl.level
}

func (cl *ConsoleLogger) enabled(l Level) bool {
	return cl.writer != nil && l >= cl.level
}

func (cl *ConsoleLogger) timestamp() string {
	return cl.now().Format("15:04:05")
}

func (cl *ConsoleLogger) paint(attr color.Attribute, s string) string {
	if !cl.color {
		return s
	}
	return color.New(attr).Sprint(s)
}

func (cl *ConsoleLogger) write(lines ...string) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := cl.timestamp()
	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "[%s] %s\n", ts, line)
	}
	cl.writer.Write([]byte(b.String()))
}

func (cl *ConsoleLogger) log(l Level, message string) {
	if !cl.enabled(l) {
		return
	}
	tag := "[" + cl.paint(levelColors[l], l.String()) + "]"
	cl.write(tag + " " + message)
}

func (cl *ConsoleLogger) LogTrace(message string) { cl.log(LevelTrace, message) }
func (cl *ConsoleLogger) LogDebug(message string) { cl.log(LevelDebug, message) }
func (cl *ConsoleLogger) LogInfo(message string)  { cl.log(LevelInfo, message) }
func (cl *ConsoleLogger) LogWarn(message string)  { cl.log(LevelWarn, message) }
func (cl *ConsoleLogger) LogError(message string) { cl.log(LevelError, message) }

// Debugf and friends format before logging.
func (cl *ConsoleLogger) Debugf(format string, args ...any) {
	cl.log(LevelDebug, fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Infof(format string, args ...any) {
	cl.log(LevelInfo, fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Warnf(format string, args ...any) {
	cl.log(LevelWarn, fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Errorf(format string, args ...any) {
	cl.log(LevelError, fmt.Sprintf(format, args...))
}

// LogStep writes one line per executed step at INFO, or ERROR when it failed.
// Format: "[HH:MM:SS] Step 3 tap: OK (120ms)"
func (cl *ConsoleLogger) LogStep(s results.StepResult) {
	level := LevelInfo
	if !s.Success {
		level = LevelError
	}
	if !cl.enabled(level) {
		return
	}

	label := s.Type
	if s.Name != "" {
		label += " " + s.Name
	}

	var status string
	if s.Success {
		status = cl.paint(color.FgGreen, "OK")
	} else {
		status = cl.paint(color.FgRed, "FAILED")
	}

	line := fmt.Sprintf("Step %d %s: %s (%s)", s.Index+1, label, status, formatDuration(time.Duration(s.DurationMs)*time.Millisecond))
	if s.Error != "" {
		line += " - " + s.Error
	}
	cl.write(line)
}

// LogCheckpoint writes the verdict of a checkpoint at INFO, or WARN on mismatch.
func (cl *ConsoleLogger) LogCheckpoint(c *results.CheckpointResult) {
	if c == nil {
		return
	}
	level := LevelInfo
	if !c.Match {
		level = LevelWarn
	}
	if !cl.enabled(level) {
		return
	}

	var verdict string
	switch {
	case c.Updated:
		verdict = cl.paint(color.FgCyan, "baseline updated")
	case c.BaselineMissing:
		verdict = cl.paint(color.FgYellow, "no baseline")
	case c.Match:
		verdict = cl.paint(color.FgGreen, "match")
	default:
		verdict = cl.paint(color.FgRed, "MISMATCH")
	}

	kind := "checkpoint"
	if c.IsFullPage {
		kind = fmt.Sprintf("full-page checkpoint (%d segments)", len(c.SegmentPaths))
	}

	lines := []string{fmt.Sprintf("%s %q: %s, %.4f%% different", kind, c.Name, verdict, c.DifferencePercent)}
	if c.DiffPath != "" {
		lines = append(lines, "  diff: "+c.DiffPath)
	}
	cl.write(lines...)
}

// LogSummary writes the result of a whole test case at INFO.
func (cl *ConsoleLogger) LogSummary(r *results.TestCaseResult) {
	if r == nil || !cl.enabled(LevelInfo) {
		return
	}

	var verdict string
	if r.Success {
		verdict = cl.paint(color.FgGreen, "PASS")
	} else {
		verdict = cl.paint(color.FgRed, "FAIL")
	}

	matched := 0
	for _, c := range r.Checkpoints {
		if c.Match {
			matched++
		}
	}

	header := "=== " + r.Name + " ==="
	if cl.color {
		header = color.New(color.Bold).Sprint(header)
	}

	lines := []string{
		header,
		fmt.Sprintf("Result: %s", verdict),
		fmt.Sprintf("Steps: %d executed, %d failed", len(r.Steps), len(r.FailedSteps())),
		fmt.Sprintf("Checkpoints: %d/%d matched", matched, len(r.Checkpoints)),
		fmt.Sprintf("Duration: %s", formatDuration(r.Duration())),
	}
	if r.UpdateMode {
		lines = append(lines, "Mode: baseline update")
	}
	for _, s := range r.FailedSteps() {
		lines = append(lines, fmt.Sprintf("  - step %d %s: %s", s.Index+1, s.Type, s.Error))
	}
	if !r.UpdateMode {
		for _, c := range r.Mismatches() {
			lines = append(lines, fmt.Sprintf("  - checkpoint %s: %.4f%% different", c.Name, c.DifferencePercent))
		}
	}
	cl.write(lines...)
}

// formatDuration renders sub-second durations in milliseconds and longer ones
// as 1.5s, 2m3s, 1h2m.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (NoOpLogger) LogDebug(string) {}
func (NoOpLogger) LogInfo(string)  {}
func (NoOpLogger) LogWarn(string)  {}
