package database

import "time"

// TestRun represents one test case executed within a run
type TestRun struct {
	ID          int64
	RunUUID     string // shared by every test case of one invocation
	TestCaseID  string
	Name        string
	DeviceID    string
	UpdateMode  bool
	PID         int
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      string // 'running', 'passed', 'failed'
	Notes       string
}

// Operation represents a timed simulator command
type Operation struct {
	ID         int64
	RunID      int64
	StepIndex  int
	Operation  string // 'screenshot', 'tap', 'swipe', 'describe-ui', 'launch', etc.
	Command    string
	StartedAt  time.Time
	DurationMs int64 // Millisecond precision
	ExitCode   int
	Status     string // 'success', 'failed'
	Error      string
}

// StepRecord is one executed step
type StepRecord struct {
	ID         int64
	RunID      int64
	StepIndex  int
	StepType   string
	Name       string
	Success    bool
	DurationMs int64
	Error      string
}

// CheckpointRecord is the verdict of one checkpoint
type CheckpointRecord struct {
	ID              int64
	RunID           int64
	StepIndex       int
	Name            string
	Match           bool
	DifferenceRatio float64
	BaselinePath    string
	ActualPath      string
	DiffPath        string
	BaselineMissing bool
	Updated         bool
	IsFullPage      bool
	SegmentCount    int
}

// Artifact represents the CRC32 checksum of an image written during a run
type Artifact struct {
	ID         int64
	RunID      int64
	StepIndex  int
	Kind       string // 'baseline', 'actual', 'diff', 'segment'
	FilePath   string
	CRC32      string
	SizeBytes  int64
	ComputedAt time.Time
}
