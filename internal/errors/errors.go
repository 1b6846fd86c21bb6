// Package errors provides centralized error handling for rig.
//
// This package defines sentinel errors used for programmatic error
// categorization throughout the application. All error types can be checked
// using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrMissingProperty indicates that a required property was referenced
	// in a substitution without a value or default being available.
	ErrMissingProperty = errors.New("required property not set")

	// ErrPropertyFrozen indicates an attempt to write to the property store
	// after the resolution phase completed.
	ErrPropertyFrozen = errors.New("property store is frozen")

	// ErrConditionEvaluation indicates that a condition referenced an
	// unavailable platform fact or used an unknown predicate.
	ErrConditionEvaluation = errors.New("condition evaluation failed")

	// ErrSubprocessFailure indicates that an external tool exited with a
	// non-zero status. The wrapped message carries captured output.
	ErrSubprocessFailure = errors.New("subprocess failed")

	// ErrSubprocessTimeout indicates that an external tool exceeded its
	// declared timeout and was terminated.
	ErrSubprocessTimeout = errors.New("subprocess timeout exceeded")

	// ErrCyclicDependency indicates the task graph contains a dependency
	// cycle. Detected during static validation, before any execution.
	ErrCyclicDependency = errors.New("cyclic task dependency")

	// ErrTaskNotFound indicates a referenced task id does not exist in the
	// pipeline.
	ErrTaskNotFound = errors.New("task not found")

	// ErrDuplicateTask indicates two tasks in the pipeline share an id.
	ErrDuplicateTask = errors.New("duplicate task id")

	// ErrTaskFailed indicates a task ended in the Failed state.
	ErrTaskFailed = errors.New("task failed")

	// ErrInvalidTransition indicates an attempt to make an invalid task
	// state transition.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrAggregateTestFailure indicates one or more test suites reported
	// failing or erroring cases.
	ErrAggregateTestFailure = errors.New("test suites reported failures")

	// ErrInvalidSuiteResult indicates a suite result document could not be
	// parsed or is structurally invalid.
	ErrInvalidSuiteResult = errors.New("invalid suite result document")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalid indicates an invalid configuration value.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrPipelineNotFound indicates the pipeline file was not found.
	ErrPipelineNotFound = errors.New("pipeline file not found")

	// ErrPipelineInvalid indicates the pipeline document failed validation.
	ErrPipelineInvalid = errors.New("invalid pipeline")

	// ErrMissingRequiredTools indicates that required external tools are
	// not configured or not present on the host.
	ErrMissingRequiredTools = errors.New("required tools are missing")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrUnsupportedOS indicates the current operating system is not
	// supported for the requested operation.
	ErrUnsupportedOS = errors.New("unsupported operating system")

	// ErrFetchFailed indicates a prerequisite artifact could not be
	// retrieved.
	ErrFetchFailed = errors.New("artifact fetch failed")

	// ErrStageFailed indicates staging build outputs to the destination
	// directory failed.
	ErrStageFailed = errors.New("artifact staging failed")

	// ErrReentrantResolve indicates a property resolution re-entered the
	// store while a resolution was already in progress.
	ErrReentrantResolve = errors.New("reentrant property resolution")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")
)
