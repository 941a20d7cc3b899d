package timing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result contains the results of a timed command execution
type Result struct {
	Command    string
	Args       []string
	DurationMs int64
	Stdout     string
	Stderr     string
	ExitCode   int
	Error      error
}

// Options configures command execution
type Options struct {
	Dir     string        // Working directory
	Timeout time.Duration // Command timeout (0 for no timeout)
	Env     []string      // Extra KEY=VALUE pairs appended to the environment
}

// Runner executes a command and reports a timed Result.
// Device implementations accept a Runner so tests can replace the subprocess.
type Runner func(ctx context.Context, command string, args []string, opts *Options) *Result

// Run executes a command and measures its execution time with millisecond precision.
// A nil ctx is treated as context.Background().
func Run(ctx context.Context, command string, args []string, opts *Options) *Result {
	if opts == nil {
		opts = &Options{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := &Result{
		Command: command,
		Args:    args,
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command, args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(cmd.Environ(), opts.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result.DurationMs = time.Since(start).Milliseconds()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}

	return result
}

// Success returns true if the command executed successfully
func (r *Result) Success() bool {
	return r.ExitCode == 0 && r.Error == nil
}

// Err converts an unsuccessful result into an error that carries stderr.
// It returns nil for a successful result.
func (r *Result) Err() error {
	if r.Success() {
		return nil
	}
	msg := strings.TrimSpace(r.Stderr)
	if msg == "" && r.Error != nil {
		msg = r.Error.Error()
	}
	return fmt.Errorf("%s %s failed (exit %d): %s", r.Command, strings.Join(r.Args, " "), r.ExitCode, msg)
}

// String returns a human-readable summary of the result
func (r *Result) String() string {
	status := "success"
	if !r.Success() {
		status = fmt.Sprintf("failed (exit code %d)", r.ExitCode)
	}

	return fmt.Sprintf("%s %v: %s (%.3fs)",
		r.Command,
		r.Args,
		status,
		float64(r.DurationMs)/1000.0,
	)
}

// DebugString returns a detailed debug output
func (r *Result) DebugString() string {
	output := r.String() + "\n"

	if r.Stdout != "" {
		output += fmt.Sprintf("STDOUT:\n%s\n", r.Stdout)
	}

	if r.Stderr != "" {
		output += fmt.Sprintf("STDERR:\n%s\n", r.Stderr)
	}

	if r.Error != nil {
		output += fmt.Sprintf("ERROR: %v\n", r.Error)
	}

	return output
}

// Sleep blocks for d or until ctx is done, whichever comes first.
// Settle delays and poll intervals go through Sleep so a cancelled run stops waiting.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Sleeper is the signature of Sleep, injectable where waits must be skipped in tests.
type Sleeper func(ctx context.Context, d time.Duration) error

// Stopwatch measures elapsed wall time for a step.
type Stopwatch struct {
	start time.Time
}

// Start returns a running Stopwatch.
func Start() Stopwatch {
	return Stopwatch{start: time.Now()}
}

// Started returns the time the stopwatch was started.
func (s Stopwatch) Started() time.Time {
	return s.start
}

// ElapsedMs returns the elapsed time in milliseconds.
func (s Stopwatch) ElapsedMs() int64 {
	return time.Since(s.start).Milliseconds()
}
