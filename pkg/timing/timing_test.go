package timing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRun_Success(t *testing.T) {
	result := Run(context.Background(), "echo", []string{"hello"}, nil)

	if result == nil {
		t.Fatal("Run returned nil")
	}
	if result.Error != nil {
		t.Errorf("Run failed: %v", result.Error)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
	if !strings.Contains(result.Stdout, "hello") {
		t.Errorf("Stdout = %q, want hello", result.Stdout)
	}
	if !result.Success() {
		t.Error("Success() = false, want true")
	}
	if result.Err() != nil {
		t.Errorf("Err() = %v, want nil", result.Err())
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	result := Run(context.Background(), "sh", []string{"-c", "echo broken >&2; exit 42"}, nil)

	if result.ExitCode != 42 {
		t.Errorf("ExitCode = %d, want 42", result.ExitCode)
	}
	if result.DurationMs < 0 {
		t.Errorf("DurationMs = %d, should not be negative", result.DurationMs)
	}
	err := result.Err()
	if err == nil {
		t.Fatal("Err() = nil, want error")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("Err() = %q, want stderr text", err.Error())
	}
}

func TestRun_NonexistentCommand(t *testing.T) {
	result := Run(context.Background(), "nonexistent_command_xyz", []string{}, nil)

	if result.Error == nil {
		t.Error("Expected error for nonexistent command")
	}
	if result.ExitCode == 0 {
		t.Error("ExitCode should not be 0 for failed command")
	}
}

func TestRun_Timeout(t *testing.T) {
	result := Run(context.Background(), "sleep", []string{"2"}, &Options{Timeout: 50 * time.Millisecond})

	if result.Success() {
		t.Fatal("expected timeout to fail the command")
	}
	if result.DurationMs >= 2000 {
		t.Errorf("DurationMs = %d, timeout did not stop the command", result.DurationMs)
	}
}

func TestRun_WithWorkingDirectory(t *testing.T) {
	tempDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tempDir, "marker.txt"), []byte("content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	result := Run(context.Background(), "ls", nil, &Options{Dir: tempDir})
	if result.Error != nil {
		t.Fatalf("Run failed: %v", result.Error)
	}
	if !strings.Contains(result.Stdout, "marker.txt") {
		t.Errorf("Output doesn't contain marker.txt: %s", result.Stdout)
	}
}

func TestRun_Env(t *testing.T) {
	result := Run(context.Background(), "sh", []string{"-c", "echo $SIMSNAP_TIMING_TEST"}, &Options{Env: []string{"SIMSNAP_TIMING_TEST=present"}})
	if !strings.Contains(result.Stdout, "present") {
		t.Errorf("Stdout = %q, want env value", result.Stdout)
	}
}

func TestResult_String(t *testing.T) {
	r := &Result{Command: "idb", Args: []string{"ui", "tap"}, DurationMs: 1500}
	if got := r.String(); !strings.Contains(got, "success") || !strings.Contains(got, "1.500s") {
		t.Errorf("String() = %q", got)
	}

	r.ExitCode = 3
	r.Stderr = "bad"
	if got := r.DebugString(); !strings.Contains(got, "exit code 3") || !strings.Contains(got, "STDERR:\nbad") {
		t.Errorf("DebugString() = %q", got)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) = %v", err)
	}

	start := time.Now()
	if err := Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Errorf("Sleep = %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Sleep returned early")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep on cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestStopwatch(t *testing.T) {
	sw := Start()
	time.Sleep(5 * time.Millisecond)
	if sw.ElapsedMs() < 5 {
		t.Errorf("ElapsedMs = %d, want >= 5", sw.ElapsedMs())
	}
	if sw.Started().IsZero() {
		t.Error("Started() is zero")
	}
}
