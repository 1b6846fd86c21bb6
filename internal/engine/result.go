package engine

import (
	"time"

	"github.com/rigbuild/rig/internal/constants"
)

// TaskOutcome records the terminal state of a single task within a run.
type TaskOutcome struct {
	TaskID   string               `json:"task_id"`
	Status   constants.TaskStatus `json:"status"`
	Reason   string               `json:"reason,omitempty"`
	Output   string               `json:"output,omitempty"`
	Duration time.Duration        `json:"duration"`
	Err      error                `json:"-"`
}

// BuildResult summarizes a completed (or aborted) run of a pipeline target.
// Outcomes are recorded in completion order.
type BuildResult struct {
	RunID    string         `json:"run_id"`
	Pipeline string         `json:"pipeline"`
	Target   string         `json:"target"`
	Outcomes []*TaskOutcome `json:"outcomes"`
	Duration time.Duration  `json:"duration"`
}

// FirstFailure returns the earliest failed outcome, or nil when every
// executed task succeeded or was skipped.
func (r *BuildResult) FirstFailure() *TaskOutcome {
	for _, o := range r.Outcomes {
		if o.Status == constants.TaskStatusFailed {
			return o
		}
	}
	return nil
}

// Counts tallies outcomes by terminal status.
func (r *BuildResult) Counts() (succeeded, failed, skipped int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case constants.TaskStatusSucceeded:
			succeeded++
		case constants.TaskStatusFailed:
			failed++
		case constants.TaskStatusSkipped:
			skipped++
		default:
		}
	}
	return succeeded, failed, skipped
}
