package constants

// TaskStatus represents the state of a task in the rig state machine.
// Status values use snake_case for JSON serialization compatibility.
type TaskStatus string

// Task status constants define the valid states a task can be in.
// These follow the executor state machine:
//
//	Pending → Running
//	Running → Succeeded, Failed, Skipped
//
// Succeeded, Failed and Skipped are terminal for the remainder of a build
// run; a task never re-enters Running once it has reached any of them.
// Tasks that never started (for example after a canceled run) remain
// Pending so a rerun is unambiguous.
const (
	// TaskStatusPending indicates a task has not been started this run.
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusRunning indicates the task body (or its dependencies) is
	// currently executing.
	TaskStatusRunning TaskStatus = "running"

	// TaskStatusSucceeded indicates the task body completed without error.
	TaskStatusSucceeded TaskStatus = "succeeded"

	// TaskStatusFailed indicates the task body or one of its dependencies
	// failed. Under the default fail-fast policy this aborts the build.
	TaskStatusFailed TaskStatus = "failed"

	// TaskStatusSkipped indicates the task's guard evaluated false and the
	// body never ran. Skipped satisfies dependents.
	TaskStatusSkipped TaskStatus = "skipped"
)

// IsTerminal returns true for states where no further transitions happen
// within the current build run.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusFailed, TaskStatusSkipped:
		return true
	case TaskStatusPending, TaskStatusRunning:
		return false
	default:
		return false
	}
}

// CaseStatus represents the status of a single test case in an externally
// produced suite result document.
type CaseStatus string

// Test case statuses as written by the external test runners.
const (
	// CaseStatusPass indicates the case passed.
	CaseStatusPass CaseStatus = "pass"

	// CaseStatusFail indicates an assertion failure.
	CaseStatusFail CaseStatus = "fail"

	// CaseStatusError indicates the case errored before assertions ran.
	CaseStatusError CaseStatus = "error"

	// CaseStatusSkip indicates the case was skipped by the runner.
	CaseStatusSkip CaseStatus = "skip"
)

// IsFailing returns true for statuses that count toward a condensed
// failure report (fail and error; pass and skip are dropped).
func (s CaseStatus) IsFailing() bool {
	return s == CaseStatusFail || s == CaseStatusError
}
