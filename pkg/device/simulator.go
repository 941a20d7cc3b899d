package device

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mslinn/simsnap/pkg/timing"
)

// OperationRecorder receives every command a Simulator runs.
type OperationRecorder interface {
	RecordOperation(operation string, result *timing.Result)
}

// Simulator drives an iOS simulator through `xcrun simctl` and `idb ui`.
type Simulator struct {
	UDID     string // "booted" targets the single booted simulator
	Timeout  time.Duration
	Debug    bool
	Runner   timing.Runner
	Recorder OperationRecorder
}

// NewSimulator returns a Simulator for udid using real subprocesses.
func NewSimulator(udid string) *Simulator {
	if udid == "" {
		udid = "booted"
	}
	return &Simulator{
		UDID:    udid,
		Timeout: 60 * time.Second,
		Runner:  timing.Run,
	}
}

func (s *Simulator) ID() string {
	return s.UDID
}

// run executes one command, records it, and turns failure into an error.
func (s *Simulator) run(ctx context.Context, operation, command string, args ...string) (*timing.Result, error) {
	runner := s.Runner
	if runner == nil {
		runner = timing.Run
	}

	if s.Debug {
		fmt.Printf("[%s] %s %v\n", operation, command, args)
	}

	result := runner(ctx, command, args, &timing.Options{Timeout: s.Timeout})
	if s.Recorder != nil {
		s.Recorder.RecordOperation(operation, result)
	}

	if s.Debug {
		fmt.Printf("  %s\n", result.String())
	}

	if err := result.Err(); err != nil {
		return result, fmt.Errorf("%s failed: %w", operation, err)
	}
	return result, nil
}

func (s *Simulator) simctl(ctx context.Context, operation string, args ...string) error {
	_, err := s.run(ctx, operation, "xcrun", append([]string{"simctl"}, args...)...)
	return err
}

// idbArgs builds `idb ui <sub> ...` with the target udid when one is pinned.
func (s *Simulator) idbArgs(sub string, args ...string) []string {
	out := []string{"ui", sub}
	if s.UDID != "" && s.UDID != "booted" {
		out = append(out, "--udid", s.UDID)
	}
	return append(out, args...)
}

func (s *Simulator) Screenshot(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	return s.simctl(ctx, "screenshot", "io", s.UDID, "screenshot", "--type=png", path)
}

func (s *Simulator) Tap(ctx context.Context, p Point) error {
	_, err := s.run(ctx, "tap", "idb", s.idbArgs("tap", coord(p.X), coord(p.Y))...)
	return err
}

func (s *Simulator) Swipe(ctx context.Context, from, to Point, duration time.Duration) error {
	args := []string{}
	if duration > 0 {
		args = append(args, "--duration", strconv.FormatFloat(duration.Seconds(), 'f', 2, 64))
	}
	args = append(args, coord(from.X), coord(from.Y), coord(to.X), coord(to.Y))
	_, err := s.run(ctx, "swipe", "idb", s.idbArgs("swipe", args...)...)
	return err
}

func (s *Simulator) TypeText(ctx context.Context, text string) error {
	_, err := s.run(ctx, "type_text", "idb", s.idbArgs("text", text)...)
	return err
}

func (s *Simulator) DescribeUI(ctx context.Context) ([]Element, error) {
	result, err := s.run(ctx, "describe_ui", "idb", s.idbArgs("describe-all", "--json")...)
	if err != nil {
		return nil, err
	}
	return ParseDescribeAll([]byte(result.Stdout))
}

func (s *Simulator) LaunchApp(ctx context.Context, bundleID string) error {
	return s.simctl(ctx, "launch_app", "launch", s.UDID, bundleID)
}

func (s *Simulator) TerminateApp(ctx context.Context, bundleID string) error {
	return s.simctl(ctx, "terminate_app", "terminate", s.UDID, bundleID)
}

func (s *Simulator) OpenURL(ctx context.Context, url string) error {
	return s.simctl(ctx, "open_url", "openurl", s.UDID, url)
}

func (s *Simulator) SetLocation(ctx context.Context, latitude, longitude float64) error {
	ll := strconv.FormatFloat(latitude, 'f', -1, 64) + "," + strconv.FormatFloat(longitude, 'f', -1, 64)
	return s.simctl(ctx, "set_location", "location", s.UDID, "set", ll)
}

// coord rounds a logical coordinate to the integer form idb accepts.
func coord(v float64) string {
	return strconv.Itoa(int(math.Round(v)))
}
