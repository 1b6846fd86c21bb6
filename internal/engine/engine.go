package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rigbuild/rig/internal/cond"
	"github.com/rigbuild/rig/internal/config"
	"github.com/rigbuild/rig/internal/constants"
	"github.com/rigbuild/rig/internal/ctxutil"
	"github.com/rigbuild/rig/internal/domain"
	rigerrors "github.com/rigbuild/rig/internal/errors"
	"github.com/rigbuild/rig/internal/graph"
	"github.com/rigbuild/rig/internal/props"
	"github.com/rigbuild/rig/internal/report"
	"github.com/rigbuild/rig/internal/stage"
)

// FetcherFactory builds the FetchFunc used for a fetch step. Swappable in
// tests to avoid real network retrievals.
type FetcherFactory func(ctx context.Context, url string) stage.FetchFunc

// Engine runs one pipeline target to completion. An Engine is single-use:
// task states and outcomes are memoized per run, so create a fresh Engine
// for every invocation.
//
// Execution is single-threaded. Dependencies run depth-first in declaration
// order; a task with multiple in-edges runs at most once.
type Engine struct {
	pipeline *domain.Pipeline
	index    map[string]*domain.TaskDef
	cfg      *config.Config
	store    *props.Store
	eval     *cond.Evaluator
	agg      *report.Aggregator
	stager   *stage.Stager
	fetcher  FetcherFactory
	logger   zerolog.Logger

	runID    string
	resolved bool
	states   map[string]constants.TaskStatus
	outcomes map[string]*TaskOutcome
	order    []*TaskOutcome
	calling  map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithEvaluator overrides the condition evaluator, used in tests to pin the
// platform.
func WithEvaluator(eval *cond.Evaluator) Option {
	return func(e *Engine) {
		e.eval = eval
	}
}

// WithFetcherFactory overrides how fetch steps retrieve artifacts.
func WithFetcherFactory(f FetcherFactory) Option {
	return func(e *Engine) {
		e.fetcher = f
	}
}

// New creates an Engine for a validated pipeline. The pipeline must have
// passed graph.Validate; New does not re-validate.
func New(pipeline *domain.Pipeline, cfg *config.Config, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		pipeline: pipeline,
		index:    graph.Index(pipeline),
		cfg:      cfg,
		store:    props.New(logger),
		eval:     cond.New(cfg.Workspace.Root),
		agg:      report.NewAggregator(logger),
		stager:   stage.New(logger),
		fetcher:  stage.HTTPFetcher,
		logger:   logger,
		runID:    uuid.NewString(),
		states:   make(map[string]constants.TaskStatus),
		outcomes: make(map[string]*TaskOutcome),
		calling:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the property store, primarily for inspection commands.
func (e *Engine) Store() *props.Store {
	return e.store
}

// RunID returns the unique identifier of this run.
func (e *Engine) RunID() string {
	return e.runID
}

// ResolveProperties binds built-in, tool and declared properties, then
// freezes the base layer. Called implicitly by Run; exposed so inspection
// commands can resolve without executing.
//
// Declared properties resolve in document order. Unconditional value
// bindings overwrite; env and conditional bindings are first-writer-wins.
func (e *Engine) ResolveProperties() error {
	if e.resolved {
		return nil
	}

	builtins := map[string]string{
		"rig.run_id":     e.runID,
		"workspace.root": e.cfg.Workspace.Root,
		"workspace.dist": e.cfg.Workspace.DistDir,
		"results.dir":    e.cfg.Workspace.ResultsDir,
		"os.name":        e.eval.GOOS(),
		"os.arch":        e.eval.GOARCH(),
	}
	for _, name := range sortedKeys(builtins) {
		if err := e.store.Set(name, builtins[name]); err != nil {
			return err
		}
	}

	for _, name := range sortedKeys(e.cfg.Tools) {
		if err := e.store.Set("tool."+name, e.cfg.Tools[name]); err != nil {
			return err
		}
	}

	for i := range e.pipeline.Properties {
		def := &e.pipeline.Properties[i]
		if err := e.resolveProperty(def); err != nil {
			return rigerrors.Wrapf(err, "property %q", def.Name)
		}
	}

	e.store.Freeze()
	e.resolved = true
	return nil
}

func (e *Engine) resolveProperty(def *domain.PropertyDef) error {
	if def.When != nil {
		ok, err := e.eval.Eval(def.When)
		if err != nil {
			return err
		}
		if !ok {
			e.logger.Debug().Str("property", def.Name).Msg("conditional property not bound")
			return nil
		}
	}

	if def.Env != "" {
		_, err := e.store.SetFromEnv(def.Name, def.Env)
		return err
	}

	value, err := e.store.Expand(def.Value)
	if err != nil {
		return err
	}
	if def.When != nil {
		_, err = e.store.SetIfAbsent(def.Name, value)
		return err
	}
	return e.store.Set(def.Name, value)
}

// Run executes target and everything it depends on. An empty target runs
// the pipeline default. The returned BuildResult is always non-nil and
// reflects whatever completed, including on failure and cancellation.
func (e *Engine) Run(ctx context.Context, target string) (*BuildResult, error) {
	start := time.Now()
	if target == "" {
		target = e.pipeline.Default
	}

	result := &BuildResult{
		RunID:    e.runID,
		Pipeline: e.pipeline.Name,
		Target:   target,
	}

	if _, ok := e.index[target]; !ok {
		return result, fmt.Errorf("target %q: %w", target, rigerrors.ErrTaskNotFound)
	}

	e.logger.Info().
		Str("run_id", e.runID).
		Str("pipeline", e.pipeline.Name).
		Str("target", target).
		Msg("build started")

	var err error
	if err = e.ResolveProperties(); err == nil {
		err = e.runTask(ctx, target)
	}

	result.Outcomes = e.order
	result.Duration = time.Since(start)

	evt := e.logger.Info()
	if err != nil {
		evt = e.logger.Error().Err(err)
	}
	succeeded, failed, skipped := result.Counts()
	evt.Str("run_id", e.runID).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Int("skipped", skipped).
		Dur("duration", result.Duration).
		Msg("build finished")

	return result, err
}

// runTask executes one task: guard, dependencies, then body. Completed
// tasks are memoized; re-entry returns the recorded outcome without
// re-executing.
func (e *Engine) runTask(ctx context.Context, id string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	task := e.index[id]
	switch e.status(id) {
	case constants.TaskStatusSucceeded, constants.TaskStatusSkipped:
		return nil
	case constants.TaskStatusFailed:
		if task.FailFast() {
			return e.outcomes[id].Err
		}
		return nil
	case constants.TaskStatusRunning:
		// Depends cycles fail at load time; a call chain that reaches
		// back into a running caller lands here.
		return fmt.Errorf("task %q re-entered while running: %w", id, rigerrors.ErrCyclicDependency)
	case constants.TaskStatusPending:
	default:
	}

	if err := e.transition(id, constants.TaskStatusRunning); err != nil {
		return err
	}
	start := time.Now()

	skip, reason, err := e.guardSatisfied(task)
	if err != nil {
		return e.recordFailure(task, start, "", err)
	}
	if skip {
		e.logger.Info().Str("task", id).Str("reason", reason).Msg("task skipped")
		if terr := e.transition(id, constants.TaskStatusSkipped); terr != nil {
			return terr
		}
		e.record(&TaskOutcome{TaskID: id, Status: constants.TaskStatusSkipped, Reason: reason, Duration: time.Since(start)})
		return nil
	}

	for _, dep := range task.Depends {
		if err := e.runTask(ctx, dep); err != nil {
			if ctxutil.Canceled(ctx) != nil {
				e.revertPending(id)
				return err
			}
			return e.recordFailure(task, start, "", rigerrors.Wrapf(err, "dependency %q of task %q failed", dep, id))
		}
	}

	if err := ctxutil.Canceled(ctx); err != nil {
		e.revertPending(id)
		return err
	}

	e.logger.Info().Str("task", id).Msg("task started")
	output, err := e.runBody(ctx, task)
	if err != nil {
		return e.recordFailure(task, start, output, err)
	}

	if terr := e.transition(id, constants.TaskStatusSucceeded); terr != nil {
		return terr
	}
	e.record(&TaskOutcome{TaskID: id, Status: constants.TaskStatusSucceeded, Duration: time.Since(start)})
	e.logger.Info().Str("task", id).Dur("duration", time.Since(start)).Msg("task succeeded")
	return nil
}

// guardSatisfied evaluates the task guard. A true skip means the body and
// the dependency walk are both bypassed; the task still satisfies its
// dependents.
func (e *Engine) guardSatisfied(task *domain.TaskDef) (skip bool, reason string, err error) {
	if task.If != "" && !e.store.Has(task.If) {
		return true, fmt.Sprintf("property %q not set", task.If), nil
	}
	if task.Unless != "" && e.store.Has(task.Unless) {
		return true, fmt.Sprintf("property %q set", task.Unless), nil
	}
	if task.When != nil {
		ok, everr := e.eval.Eval(task.When)
		if everr != nil {
			return false, "", rigerrors.Wrapf(everr, "task %q guard", task.ID)
		}
		if !ok {
			return true, "condition not met", nil
		}
	}
	return false, "", nil
}

// runBody dispatches on the task's body kind. Validation guarantees at
// most one kind is present; a task with none is a pure aggregation node.
func (e *Engine) runBody(ctx context.Context, task *domain.TaskDef) (string, error) {
	switch {
	case len(task.Run) > 0:
		return e.runInvocations(ctx, task)
	case len(task.Call) > 0:
		return "", e.runCalls(ctx, task)
	case task.Check != nil:
		return "", e.runCheck(task)
	case len(task.Fetch) > 0:
		return "", e.runFetches(ctx, task)
	case task.Stage != nil:
		return "", e.runStage(task)
	default:
		return "", nil
	}
}

func (e *Engine) runCalls(ctx context.Context, task *domain.TaskDef) error {
	for i := range task.Call {
		call := &task.Call[i]
		if err := e.runCall(ctx, call); err != nil {
			return err
		}
	}
	return nil
}

// runCall pushes the call-scoped property overlay, runs the callee and
// releases the overlay on every exit path.
func (e *Engine) runCall(ctx context.Context, call *domain.CallDef) error {
	overrides, err := e.store.ExpandMap(call.Props)
	if err != nil {
		return rigerrors.Wrapf(err, "call %q props", call.Task)
	}
	scope := e.store.Push(overrides)
	defer e.store.Release(scope)
	return e.invokeCall(ctx, call.Task)
}

// invokeCall executes the callee under the pushed overlay. A call is a
// parameterized invocation, not a graph edge: the callee body runs on
// every call even when it already completed, so the same task may run
// repeatedly under different bindings. Its dependencies are still reached
// through runTask and stay memoized.
func (e *Engine) invokeCall(ctx context.Context, id string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if e.status(id) == constants.TaskStatusRunning || e.calling[id] {
		return fmt.Errorf("task %q called while already executing: %w", id, rigerrors.ErrCyclicDependency)
	}

	task := e.index[id]
	e.calling[id] = true
	defer delete(e.calling, id)
	start := time.Now()

	skip, reason, err := e.guardSatisfied(task)
	if err != nil {
		return e.failInvocation(task, start, "", err)
	}
	if skip {
		e.logger.Info().Str("task", id).Str("reason", reason).Msg("call skipped")
		e.recordInvocation(&TaskOutcome{TaskID: id, Status: constants.TaskStatusSkipped, Reason: reason, Duration: time.Since(start)})
		return nil
	}

	for _, dep := range task.Depends {
		if derr := e.runTask(ctx, dep); derr != nil {
			if ctxutil.Canceled(ctx) != nil {
				return derr
			}
			return e.failInvocation(task, start, "", rigerrors.Wrapf(derr, "dependency %q of task %q failed", dep, id))
		}
	}
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	e.logger.Info().Str("task", id).Msg("call started")
	output, err := e.runBody(ctx, task)
	if err != nil {
		return e.failInvocation(task, start, output, err)
	}
	e.recordInvocation(&TaskOutcome{TaskID: id, Status: constants.TaskStatusSucceeded, Duration: time.Since(start)})
	e.logger.Info().Str("task", id).Dur("duration", time.Since(start)).Msg("call succeeded")
	return nil
}

// failInvocation records a failed call invocation and applies the callee's
// failure policy. Unlike recordFailure it leaves the task state machine
// untouched; call invocations are not part of the memoized graph.
func (e *Engine) failInvocation(task *domain.TaskDef, start time.Time, output string, cause error) error {
	wrapped := fmt.Errorf("task %q: %w: %w", task.ID, rigerrors.ErrTaskFailed, cause)
	e.recordInvocation(&TaskOutcome{
		TaskID:   task.ID,
		Status:   constants.TaskStatusFailed,
		Output:   output,
		Duration: time.Since(start),
		Err:      wrapped,
	})

	if task.FailFast() {
		e.logger.Error().Str("task", task.ID).Err(cause).Msg("call failed")
		return wrapped
	}
	e.logger.Warn().Str("task", task.ID).Err(cause).Msg("call failed (failonerror disabled, continuing)")
	return nil
}

// runCheck condenses suite result documents and fails when any suite
// recorded a failing case. The condensed reports are written out before
// the failure is returned.
func (e *Engine) runCheck(task *domain.TaskDef) error {
	paths, err := e.store.ExpandAll(task.Check.Suites)
	if err != nil {
		return rigerrors.Wrapf(err, "task %q suites", task.ID)
	}
	for i, p := range paths {
		if !filepath.IsAbs(p) {
			paths[i] = filepath.Join(e.cfg.Workspace.ResultsDir, p)
		}
	}

	outcome, checkErr := e.agg.CheckAllSuites(paths)
	if werr := e.agg.WriteCondensed(outcome, e.cfg.Workspace.ResultsDir); werr != nil {
		e.logger.Warn().Err(werr).Msg("failed to write condensed failure reports")
	}
	return checkErr
}

func (e *Engine) runFetches(ctx context.Context, task *domain.TaskDef) error {
	for i := range task.Fetch {
		f := &task.Fetch[i]
		path, err := e.store.Expand(f.Path)
		if err != nil {
			return rigerrors.Wrapf(err, "task %q fetch path", task.ID)
		}
		url, err := e.store.Expand(f.URL)
		if err != nil {
			return rigerrors.Wrapf(err, "task %q fetch url", task.ID)
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(e.cfg.Workspace.Root, path)
		}
		if err := e.stager.EnsurePresent(path, e.fetcher(ctx, url)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runStage(task *domain.TaskDef) error {
	outputs, err := e.store.ExpandAll(task.Stage.Outputs)
	if err != nil {
		return rigerrors.Wrapf(err, "task %q outputs", task.ID)
	}
	for i, o := range outputs {
		if !filepath.IsAbs(o) {
			outputs[i] = filepath.Join(e.cfg.Workspace.Root, o)
		}
	}

	dest := task.Stage.Dest
	if dest != "" {
		if dest, err = e.store.Expand(dest); err != nil {
			return rigerrors.Wrapf(err, "task %q dest", task.ID)
		}
	}
	switch {
	case dest == "":
		dest = e.cfg.Workspace.DistDir
	case !filepath.IsAbs(dest):
		dest = filepath.Join(e.cfg.Workspace.Root, dest)
	}
	return e.stager.Stage(outputs, dest)
}

// recordFailure transitions a task to Failed and applies the failure
// policy: fail-fast failures propagate, fail-soft failures are recorded
// and swallowed so the build continues.
func (e *Engine) recordFailure(task *domain.TaskDef, start time.Time, output string, cause error) error {
	wrapped := fmt.Errorf("task %q: %w: %w", task.ID, rigerrors.ErrTaskFailed, cause)
	if terr := e.transition(task.ID, constants.TaskStatusFailed); terr != nil {
		return terr
	}
	e.record(&TaskOutcome{
		TaskID:   task.ID,
		Status:   constants.TaskStatusFailed,
		Output:   output,
		Duration: time.Since(start),
		Err:      wrapped,
	})

	if task.FailFast() {
		e.logger.Error().Str("task", task.ID).Err(cause).Msg("task failed")
		return wrapped
	}
	e.logger.Warn().Str("task", task.ID).Err(cause).Msg("task failed (failonerror disabled, continuing)")
	return nil
}

func (e *Engine) record(o *TaskOutcome) {
	e.outcomes[o.TaskID] = o
	e.order = append(e.order, o)
}

// recordInvocation appends a call outcome without touching the per-task
// memo, so repeated calls to the same callee each keep their own entry.
func (e *Engine) recordInvocation(o *TaskOutcome) {
	e.order = append(e.order, o)
}

// sortedKeys returns map keys in sorted order for deterministic binding.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
