package results

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTestCaseResult_Success(t *testing.T) {
	tests := []struct {
		name   string
		update bool
		steps  []StepResult
		want   bool
	}{
		{
			name: "all steps pass",
			steps: []StepResult{
				{Index: 0, Type: "tap", Success: true},
				{Index: 1, Type: "checkpoint", Success: true, Checkpoint: &CheckpointResult{Name: "home", Match: true}},
			},
			want: true,
		},
		{
			name: "failed step",
			steps: []StepResult{
				{Index: 0, Type: "tap", Success: false, Error: "boom"},
			},
			want: false,
		},
		{
			name: "checkpoint mismatch on a step that did not error",
			steps: []StepResult{
				{Index: 0, Type: "checkpoint", Success: true, Checkpoint: &CheckpointResult{Name: "home", Match: false}},
			},
			want: false,
		},
		{
			name:   "update mode ignores mismatches",
			update: true,
			steps: []StepResult{
				{Index: 0, Type: "checkpoint", Success: true, Checkpoint: &CheckpointResult{Name: "home", Match: false}},
			},
			want: true,
		},
		{
			name: "no steps",
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &TestCaseResult{UpdateMode: tt.update, Success: true}
			for _, s := range tt.steps {
				r.AddStep(s)
			}
			r.Finish(time.Now())
			assert.Equal(t, tt.want, r.Success)
		})
	}
}

func TestTestCaseResult_CollectsCheckpointsInOrder(t *testing.T) {
	r := &TestCaseResult{}
	r.AddStep(StepResult{Index: 0, Success: true, Checkpoint: &CheckpointResult{Name: "a", Match: true}})
	r.AddStep(StepResult{Index: 1, Success: true})
	r.AddStep(StepResult{Index: 2, Success: false, Checkpoint: &CheckpointResult{Name: "b"}})

	assert.Len(t, r.Steps, 3)
	if assert.Len(t, r.Checkpoints, 2) {
		assert.Equal(t, "a", r.Checkpoints[0].Name)
		assert.Equal(t, "b", r.Checkpoints[1].Name)
	}
	assert.Len(t, r.FailedSteps(), 1)
	assert.Len(t, r.Mismatches(), 1)
}

func TestTestCaseResult_Duration(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := &TestCaseResult{StartedAt: start}
	assert.Equal(t, time.Duration(0), r.Duration())

	r.Finish(start.Add(1500 * time.Millisecond))
	assert.Equal(t, 1500*time.Millisecond, r.Duration())
}
