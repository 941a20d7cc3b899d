// Package results holds the per-run outcome records produced by the step
// engine and the capture driver.
package results

import (
	"time"
)

// RoutePointResult is the checkpoint taken at one waypoint of a simulated route.
type RoutePointResult struct {
	Index      int               `json:"index"`
	Latitude   float64           `json:"latitude"`
	Longitude  float64           `json:"longitude"`
	Checkpoint *CheckpointResult `json:"checkpoint,omitempty"`
}

// CheckpointResult is created once per checkpoint step and never modified after.
type CheckpointResult struct {
	Name              string             `json:"name"`
	Match             bool               `json:"match"`
	DifferenceRatio   float64            `json:"difference_ratio"`
	DifferencePercent float64            `json:"difference_percent"`
	BaselinePath      string             `json:"baseline_path,omitempty"`
	ActualPath        string             `json:"actual_path,omitempty"`
	DiffPath          string             `json:"diff_path,omitempty"`
	BaselineMissing   bool               `json:"baseline_missing,omitempty"`
	Updated           bool               `json:"updated,omitempty"`
	IsFullPage        bool               `json:"is_full_page,omitempty"`
	SegmentPaths      []string           `json:"segment_paths,omitempty"`
	Route             []RoutePointResult `json:"route,omitempty"`
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	Index      int               `json:"index"`
	Type       string            `json:"type"`
	Name       string            `json:"name,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	Checkpoint *CheckpointResult `json:"checkpoint,omitempty"`
}

// TestCaseResult aggregates everything produced by one test case run.
type TestCaseResult struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	RunID       string              `json:"run_id"`
	DeviceID    string              `json:"device_id,omitempty"`
	UpdateMode  bool                `json:"update_mode"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`
	Steps       []StepResult        `json:"steps"`
	Checkpoints []*CheckpointResult `json:"checkpoints"`
	Success     bool                `json:"success"`
}

// AddStep appends a step result and, when present, its checkpoint.
func (r *TestCaseResult) AddStep(s StepResult) {
	r.Steps = append(r.Steps, s)
	if s.Checkpoint != nil {
		r.Checkpoints = append(r.Checkpoints, s.Checkpoint)
	}
	r.Success = r.computeSuccess()
}

// Finish stamps the completion time and settles the success flag.
func (r *TestCaseResult) Finish(at time.Time) {
	r.CompletedAt = at
	r.Success = r.computeSuccess()
}

// computeSuccess is the AND of every step success and every checkpoint match.
// Update mode accepts every capture, so mismatches do not count there.
func (r *TestCaseResult) computeSuccess() bool {
	for _, s := range r.Steps {
		if !s.Success {
			return false
		}
	}
	if r.UpdateMode {
		return true
	}
	for _, c := range r.Checkpoints {
		if !c.Match {
			return false
		}
	}
	return true
}

// Duration returns the wall-clock time of the run.
func (r *TestCaseResult) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// FailedSteps returns the steps that did not succeed.
func (r *TestCaseResult) FailedSteps() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if !s.Success {
			failed = append(failed, s)
		}
	}
	return failed
}

// Mismatches returns the checkpoints that did not match.
func (r *TestCaseResult) Mismatches() []*CheckpointResult {
	var out []*CheckpointResult
	for _, c := range r.Checkpoints {
		if !c.Match {
			out = append(out, c)
		}
	}
	return out
}
