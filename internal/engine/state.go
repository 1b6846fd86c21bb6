// Package engine executes validated pipelines.
//
// This file implements the per-task state machine, which enforces valid
// state transitions during a build run.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors, std lib
//   - MUST NOT import: internal/cli
package engine

import (
	"fmt"

	"github.com/rigbuild/rig/internal/constants"
	rigerrors "github.com/rigbuild/rig/internal/errors"
)

// validTransitions defines all allowed state transitions in the task
// lifecycle. Format: from_status -> []to_statuses
//
// The state machine follows this flow:
//
//	Pending → Running
//	Running → Succeeded, Failed, Skipped
//
// The one exception is cancellation: a task that entered Running but whose
// body never started reverts to Pending, handled by revertPending rather
// than this table, so a rerun after an interrupt is unambiguous.
//
//nolint:gochecknoglobals // Read-only lookup table
var validTransitions = map[constants.TaskStatus][]constants.TaskStatus{
	constants.TaskStatusPending: {constants.TaskStatusRunning},
	constants.TaskStatusRunning: {
		constants.TaskStatusSucceeded,
		constants.TaskStatusFailed,
		constants.TaskStatusSkipped,
	},
}

// isValidTransition checks if a transition from one status to another is
// allowed. Returns false for transitions from terminal states or to the
// same state.
func isValidTransition(from, to constants.TaskStatus) bool {
	if from == to {
		return false
	}
	for _, target := range validTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// transition moves a task to a new status, enforcing the state machine.
func (e *Engine) transition(taskID string, to constants.TaskStatus) error {
	from := e.status(taskID)
	if !isValidTransition(from, to) {
		return fmt.Errorf("task %q: %s -> %s: %w", taskID, from, to, rigerrors.ErrInvalidTransition)
	}
	e.states[taskID] = to
	e.logger.Debug().
		Str("task", taskID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("task state transition")
	return nil
}

// revertPending returns a Running task to Pending after a cancellation
// that arrived before its body started.
func (e *Engine) revertPending(taskID string) {
	if e.status(taskID) == constants.TaskStatusRunning {
		e.states[taskID] = constants.TaskStatusPending
		e.logger.Debug().Str("task", taskID).Msg("task reverted to pending after cancellation")
	}
}

// status returns the current status of a task, Pending when unrecorded.
func (e *Engine) status(taskID string) constants.TaskStatus {
	if st, ok := e.states[taskID]; ok {
		return st
	}
	return constants.TaskStatusPending
}
