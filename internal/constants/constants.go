// Package constants provides centralized constant values used throughout rig.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// File names used by rig.
const (
	// DefaultPipelineFileName is the pipeline document loaded when no
	// --pipeline flag is given.
	DefaultPipelineFileName = "rig.yaml"

	// CondensedReportSuffix is appended to a suite name to form the
	// condensed failure report file written to the results directory.
	CondensedReportSuffix = ".failures.json"
)

// Directory names used by rig for organizing build outputs.
const (
	// ResultsDir is the default directory (under the workspace root) that
	// receives suite result documents and condensed failure reports.
	ResultsDir = "test-results"

	// DistDir is the default directory that receives staged final build
	// artifacts.
	DistDir = "dist"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"
)

// Environment configuration.
const (
	// EnvPrefix is the prefix for all rig environment variables
	// (RIG_WORKSPACE, RIG_RESULTS_DIR, ...).
	EnvPrefix = "RIG"

	// EnvToolPrefix is the prefix for environment variables that supply
	// paths to required external tools (RIG_TOOL_PYTHON, RIG_TOOL_JAVA).
	EnvToolPrefix = "RIG_TOOL_"
)

// Subprocess termination configuration.
const (
	// GracefulTerminationWait is how long the executor waits between
	// SIGTERM and SIGKILL when terminating an in-flight subprocess.
	GracefulTerminationWait = 5 * time.Second
)

// DefaultTask is the entry task run when no target is named on the
// command line. By convention a pipeline declares a task with this id
// that depends on the full build.
const DefaultTask = "build"
