// Package domain defines the core data model for rig pipelines.
//
// Types here are pure data with YAML tags for the pipeline document and no
// behavior beyond small accessors. Loading and validation live in
// internal/graph; execution lives in internal/engine.
//
// Import rules:
//   - CAN import: internal/constants, std lib
//   - MUST NOT import: internal/engine, internal/cli, internal/graph
package domain

// Pipeline is a parsed pipeline document: the property resolution list,
// platform aliases and the task graph.
type Pipeline struct {
	// Name identifies the pipeline in logs and reports.
	Name string `yaml:"name"`

	// Default is the task id run when no target is given on the command
	// line. Empty means the conventional "build" entry task.
	Default string `yaml:"default,omitempty"`

	// Properties are resolved in order at build start, before any task
	// runs. Resolution is first-writer-wins for conditional entries.
	Properties []PropertyDef `yaml:"properties,omitempty"`

	// Aliases map a platform family to a concrete task id, resolved once
	// at load time into a plain call task.
	Aliases []AliasDef `yaml:"aliases,omitempty"`

	// Tasks is the declared task graph.
	Tasks []TaskDef `yaml:"tasks"`
}

// PropertyDef declares one property binding. Exactly one of Value or Env
// should be set; When makes the binding conditional (bound only if the
// condition holds and the property is still unset).
type PropertyDef struct {
	// Name is the property key.
	Name string `yaml:"name"`

	// Value is a static value, bound unconditionally unless When is set.
	Value string `yaml:"value,omitempty"`

	// Env names a process environment variable to copy from; the property
	// stays unset when the variable is absent.
	Env string `yaml:"env,omitempty"`

	// When gates the binding on a platform or filesystem condition.
	When *ConditionDef `yaml:"when,omitempty"`
}

// ConditionDef is a boolean expression over platform and filesystem facts.
// Atoms are OS, Arch and Exists; All, Any and Not compose them. A def with
// multiple atoms set is the conjunction of those atoms.
type ConditionDef struct {
	// OS matches the host OS family (runtime.GOOS: "linux", "darwin",
	// "windows", or the "unix" family covering linux and darwin).
	OS string `yaml:"os,omitempty"`

	// Arch matches the host architecture (runtime.GOARCH).
	Arch string `yaml:"arch,omitempty"`

	// Exists is true when the path exists at evaluation time. Relative
	// paths are resolved against the workspace root.
	Exists string `yaml:"exists,omitempty"`

	// All is true when every sub-condition is true.
	All []ConditionDef `yaml:"all,omitempty"`

	// Any is true when at least one sub-condition is true.
	Any []ConditionDef `yaml:"any,omitempty"`

	// Not negates a sub-condition.
	Not *ConditionDef `yaml:"not,omitempty"`
}

// AliasDef declares a platform-indirect task: it resolves to a single call
// of the task selected for the host platform. This replaces the original
// property-indirection pattern with an explicit lookup table.
type AliasDef struct {
	// ID is the alias task id.
	ID string `yaml:"id"`

	// Select maps an OS family to the concrete task id to delegate to.
	Select map[string]string `yaml:"select"`

	// Fallback is the task id used when no Select entry matches. Empty
	// means the alias resolves to a no-op on unmatched platforms.
	Fallback string `yaml:"fallback,omitempty"`
}

// TaskDef declares one node of the task graph. A body is one of: a Run
// list (external process invocations), a Call list (sub-task invocations),
// a Check (suite result aggregation), a Fetch list (prerequisites retrieved
// only when missing) or a Stage (artifact staging). A task with no body is
// a pure aggregation node.
type TaskDef struct {
	// ID uniquely identifies the task within the pipeline.
	ID string `yaml:"id"`

	// Description is shown by `rig graph`.
	Description string `yaml:"description,omitempty"`

	// Depends lists dependency task ids, run to completion in declaration
	// order before this task's body. Resolved transitively; a task with
	// multiple in-edges still executes only once per run.
	Depends []string `yaml:"depends,omitempty"`

	// If gates the body on a property being set.
	If string `yaml:"if,omitempty"`

	// Unless gates the body on a property being unset.
	Unless string `yaml:"unless,omitempty"`

	// When gates the body on a platform or filesystem condition, evaluated
	// immediately before the task would otherwise run.
	When *ConditionDef `yaml:"when,omitempty"`

	// FailOnError controls failure propagation. Nil or true is fail-fast:
	// a body failure aborts the whole build. False records the failure and
	// continues; used for best-effort cleanup tasks.
	FailOnError *bool `yaml:"failonerror,omitempty"`

	// Run is an ordered list of external process invocations.
	Run []Invocation `yaml:"run,omitempty"`

	// Call is an ordered list of sub-task invocations.
	Call []CallDef `yaml:"call,omitempty"`

	// Check aggregates externally produced suite result documents and
	// fails the task when any suite recorded a failing case.
	Check *CheckDef `yaml:"check,omitempty"`

	// Fetch retrieves prerequisite artifacts that are missing, with
	// "only if missing" idempotent semantics.
	Fetch []FetchDef `yaml:"fetch,omitempty"`

	// Stage copies build outputs to a destination, removing stale prior
	// artifacts first.
	Stage *StageDef `yaml:"stage,omitempty"`
}

// FailFast reports whether a failure of this task aborts the build.
func (t *TaskDef) FailFast() bool {
	return t.FailOnError == nil || *t.FailOnError
}

// Invocation declares one external process run. Command, Args, Dir and Env
// values may contain {property} substitutions resolved at execution time.
type Invocation struct {
	// Command is the executable to run. Bare names are resolved via PATH;
	// tool names configured under tools: may be referenced as {tool.name}.
	Command string `yaml:"command"`

	// Args is the argument list.
	Args []string `yaml:"args,omitempty"`

	// Dir is the working directory. Empty means the workspace root.
	Dir string `yaml:"dir,omitempty"`

	// Env are environment overrides layered over the inherited baseline.
	Env map[string]string `yaml:"env,omitempty"`

	// Timeout bounds the blocking wait on the subprocess. Zero means no
	// timeout; a hung subprocess then hangs the build.
	Timeout Duration `yaml:"timeout,omitempty"`
}

// CallDef invokes another task as a sub-step, optionally binding extra
// properties scoped to that call chain. Scoped bindings are released on all
// exit paths, including failure.
type CallDef struct {
	// Task is the callee task id.
	Task string `yaml:"task"`

	// Props are call-scoped property bindings.
	Props map[string]string `yaml:"props,omitempty"`
}

// CheckDef aggregates suite result documents. Paths may contain {property}
// substitutions; relative paths resolve against the results directory.
// Missing files are tolerated as "no results", not failures.
type CheckDef struct {
	// Suites are the suite result document paths to condense.
	Suites []string `yaml:"suites"`
}

// FetchDef declares a prerequisite artifact retrieved only when the path
// does not already exist.
type FetchDef struct {
	// Path is the artifact location, relative to the workspace root.
	Path string `yaml:"path"`

	// URL is where to retrieve the artifact from when missing.
	URL string `yaml:"url"`
}

// StageDef copies finalized build outputs to a destination directory,
// deleting matching stale files there first so the destination reflects
// exactly the latest build.
type StageDef struct {
	// Outputs are glob patterns for the files to stage.
	Outputs []string `yaml:"outputs"`

	// Dest is the destination directory. Empty means the configured dist
	// directory.
	Dest string `yaml:"dest,omitempty"`
}
