package database

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mslinn/simsnap/pkg/checksum"
	"github.com/mslinn/simsnap/pkg/results"
	"github.com/mslinn/simsnap/pkg/timing"
)

// Recorder writes a test case run into the ledger as it executes. Simulator
// commands are buffered and attributed to the step that is recorded next.
type Recorder struct {
	db  *DB
	now func() time.Time

	mu      sync.Mutex
	run     *TestRun
	pending []*Operation
}

// NewRecorder returns a Recorder writing to db.
func NewRecorder(db *DB) *Recorder {
	return &Recorder{db: db, now: time.Now}
}

// Run returns the ledger row of the current test case, or nil before BeginRun.
func (r *Recorder) Run() *TestRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run
}

// RecordOperation buffers one simulator command.
func (r *Recorder) RecordOperation(operation string, result *timing.Result) {
	status := "success"
	errMsg := ""
	if err := result.Err(); err != nil {
		status = "failed"
		errMsg = err.Error()
	}

	finished := r.now()
	op := &Operation{
		Operation:  operation,
		Command:    strings.TrimSpace(result.Command + " " + strings.Join(result.Args, " ")),
		StartedAt:  finished.Add(-time.Duration(result.DurationMs) * time.Millisecond),
		DurationMs: result.DurationMs,
		ExitCode:   result.ExitCode,
		Status:     status,
		Error:      errMsg,
	}

	r.mu.Lock()
	r.pending = append(r.pending, op)
	r.mu.Unlock()
}

// BeginRun creates the test run row.
func (r *Recorder) BeginRun(res *results.TestCaseResult) error {
	run := &TestRun{
		RunUUID:    res.RunID,
		TestCaseID: res.ID,
		Name:       res.Name,
		DeviceID:   res.DeviceID,
		UpdateMode: res.UpdateMode,
		PID:        os.Getpid(),
		StartedAt:  res.StartedAt,
		Status:     "running",
	}
	if err := r.db.CreateTestRun(run); err != nil {
		return err
	}

	r.mu.Lock()
	r.run = run
	r.pending = nil
	r.mu.Unlock()
	return nil
}

// RecordStep writes the step, its buffered commands, its checkpoint and the
// checksums of every image the checkpoint produced.
func (r *Recorder) RecordStep(res *results.TestCaseResult, s results.StepResult) error {
	r.mu.Lock()
	run := r.run
	ops := r.pending
	r.pending = nil
	r.mu.Unlock()

	if run == nil {
		return fmt.Errorf("no test run started for %s", res.ID)
	}

	if err := r.flush(run.ID, s.Index, ops); err != nil {
		return err
	}

	err := r.db.CreateStep(&StepRecord{
		RunID:      run.ID,
		StepIndex:  s.Index,
		StepType:   s.Type,
		Name:       s.Name,
		Success:    s.Success,
		DurationMs: s.DurationMs,
		Error:      s.Error,
	})
	if err != nil {
		return err
	}

	if s.Checkpoint == nil {
		return nil
	}
	if err := r.recordCheckpoint(run.ID, s.Index, s.Checkpoint); err != nil {
		return err
	}
	for _, p := range s.Checkpoint.Route {
		if p.Checkpoint == nil {
			continue
		}
		if err := r.recordCheckpoint(run.ID, s.Index, p.Checkpoint); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) flush(runID int64, stepIndex int, ops []*Operation) error {
	for _, op := range ops {
		op.RunID = runID
		op.StepIndex = stepIndex
		if err := r.db.CreateOperation(op); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) recordCheckpoint(runID int64, stepIndex int, c *results.CheckpointResult) error {
	err := r.db.CreateCheckpoint(&CheckpointRecord{
		RunID:           runID,
		StepIndex:       stepIndex,
		Name:            c.Name,
		Match:           c.Match,
		DifferenceRatio: c.DifferenceRatio,
		BaselinePath:    c.BaselinePath,
		ActualPath:      c.ActualPath,
		DiffPath:        c.DiffPath,
		BaselineMissing: c.BaselineMissing,
		Updated:         c.Updated,
		IsFullPage:      c.IsFullPage,
		SegmentCount:    len(c.SegmentPaths),
	})
	if err != nil {
		return err
	}

	kinds := map[string]string{
		c.BaselinePath: "baseline",
		c.ActualPath:   "actual",
		c.DiffPath:     "diff",
	}
	for _, seg := range c.SegmentPaths {
		kinds[seg] = "segment"
	}

	paths := make([]string, 0, len(kinds))
	for p := range kinds {
		paths = append(paths, p)
	}

	// directories (per-segment actuals) and missing files are skipped
	var files []string
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			files = append(files, p)
		}
	}

	sums, err := checksum.ComputeFiles(files...)
	if err != nil {
		return err
	}
	computed := r.now()
	for _, cs := range sums {
		err := r.db.CreateArtifact(&Artifact{
			RunID:      runID,
			StepIndex:  stepIndex,
			Kind:       kinds[cs.Path],
			FilePath:   cs.Path,
			CRC32:      cs.Hex(),
			SizeBytes:  cs.SizeBytes,
			ComputedAt: computed,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// FinishRun stores the outcome of the test case. Commands issued after the
// last step are attributed to one past it.
func (r *Recorder) FinishRun(res *results.TestCaseResult) error {
	r.mu.Lock()
	run := r.run
	ops := r.pending
	r.pending = nil
	r.mu.Unlock()

	if run == nil {
		return fmt.Errorf("no test run started for %s", res.ID)
	}
	if err := r.flush(run.ID, len(res.Steps), ops); err != nil {
		return err
	}

	completed := res.CompletedAt
	if completed.IsZero() {
		completed = r.now()
	}
	run.CompletedAt = &completed
	run.Status = "failed"
	if res.Success {
		run.Status = "passed"
	}
	run.Notes = fmt.Sprintf("%d steps, %d checkpoints, %d mismatched",
		len(res.Steps), len(res.Checkpoints), len(res.Mismatches()))
	return r.db.UpdateTestRun(run)
}
