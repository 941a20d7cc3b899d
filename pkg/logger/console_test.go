package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mslinn/simsnap/pkg/results"
)

func fixedLogger(buf *bytes.Buffer, level string) *ConsoleLogger {
	l := NewConsoleLogger(buf, level)
	l.now = func() time.Time { return time.Date(2026, 3, 4, 9, 8, 7, 0, time.UTC) }
	return l
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", LevelDebug},
		{" info ", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestConsoleLogger_Format(t *testing.T) {
	buf := &bytes.Buffer{}
	l := fixedLogger(buf, "debug")

	l.LogDebug("scroll 1")
	l.LogWarn("overlap low")

	assert.Equal(t, "[09:08:07] [DEBUG] scroll 1\n[09:08:07] [WARN] overlap low\n", buf.String())
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	l := fixedLogger(buf, "warn")

	l.LogTrace("t")
	l.LogDebug("d")
	l.LogInfo("i")
	l.Warnf("w %d", 1)
	l.Errorf("e %s", "x")

	out := buf.String()
	assert.NotContains(t, out, "[TRACE]")
	assert.NotContains(t, out, "[DEBUG]")
	assert.NotContains(t, out, "[INFO]")
	assert.Contains(t, out, "[WARN] w 1")
	assert.Contains(t, out, "[ERROR] e x")
}

func TestConsoleLogger_NilWriter(t *testing.T) {
	l := NewConsoleLogger(nil, "trace")
	assert.NotPanics(t, func() {
		l.LogInfo("x")
		l.LogStep(results.StepResult{Type: "tap", Success: true})
		l.LogCheckpoint(&results.CheckpointResult{Name: "a"})
		l.LogSummary(&results.TestCaseResult{Name: "n"})
	})
}

func TestConsoleLogger_BufferIsNotColoured(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewConsoleLogger(buf, "info")
	assert.False(t, l.color)

	l.LogInfo("plain")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestLogStep(t *testing.T) {
	buf := &bytes.Buffer{}
	l := fixedLogger(buf, "info")

	l.LogStep(results.StepResult{Index: 2, Type: "tap", Success: true, DurationMs: 120})
	l.LogStep(results.StepResult{Index: 3, Type: "checkpoint", Name: "home", Success: false, Error: "screenshot failed", DurationMs: 1500})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "[09:08:07] Step 3 tap: OK (120ms)", lines[0])
	assert.Equal(t, "[09:08:07] Step 4 checkpoint home: FAILED (1.5s) - screenshot failed", lines[1])
}

func TestLogCheckpoint(t *testing.T) {
	tests := []struct {
		name string
		cp   results.CheckpointResult
		want string
	}{
		{"match", results.CheckpointResult{Name: "home", Match: true}, `checkpoint "home": match, 0.0000% different`},
		{"mismatch", results.CheckpointResult{Name: "home", DifferencePercent: 0.0002}, `checkpoint "home": MISMATCH, 0.0002% different`},
		{"missing", results.CheckpointResult{Name: "new", BaselineMissing: true, DifferencePercent: 100}, `checkpoint "new": no baseline, 100.0000% different`},
		{"updated", results.CheckpointResult{Name: "u", Match: true, Updated: true}, `checkpoint "u": baseline updated`},
		{"full page", results.CheckpointResult{Name: "feed", Match: true, IsFullPage: true, SegmentPaths: []string{"a", "b"}}, `full-page checkpoint (2 segments) "feed": match`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			fixedLogger(buf, "info").LogCheckpoint(&tt.cp)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestLogSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	l := fixedLogger(buf, "info")

	start := time.Date(2026, 3, 4, 9, 8, 0, 0, time.UTC)
	r := &results.TestCaseResult{Name: "login flow", StartedAt: start}
	r.AddStep(results.StepResult{Index: 0, Type: "launch_app", Success: true})
	r.AddStep(results.StepResult{Index: 1, Type: "checkpoint", Success: false, Checkpoint: &results.CheckpointResult{Name: "home", DifferencePercent: 2.5}})
	r.Finish(start.Add(3 * time.Second))

	l.LogSummary(r)
	out := buf.String()
	assert.Contains(t, out, "=== login flow ===")
	assert.Contains(t, out, "Result: FAIL")
	assert.Contains(t, out, "Steps: 2 executed, 1 failed")
	assert.Contains(t, out, "Checkpoints: 0/1 matched")
	assert.Contains(t, out, "Duration: 3.0s")
	assert.Contains(t, out, "checkpoint home: 2.5000% different")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
		{65 * time.Minute, "1h5m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}
