package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rigbuild/rig/internal/domain"
	rigerrors "github.com/rigbuild/rig/internal/errors"
	"github.com/rigbuild/rig/internal/logging"
)

// maxOutputLineSize bounds a single captured subprocess output line.
const maxOutputLineSize = 1024 * 1024

// runInvocations executes the task's Run list in order, stopping at the
// first failure. The combined output of the failing invocation is
// returned so failures surface the subprocess output verbatim.
func (e *Engine) runInvocations(ctx context.Context, task *domain.TaskDef) (string, error) {
	for i := range task.Run {
		inv := &task.Run[i]
		output, err := e.runInvocation(ctx, task.ID, inv)
		if err != nil {
			return output, err
		}
	}
	return "", nil
}

// runInvocation runs one external process to completion. Command, args,
// dir and env values are property-expanded first. Termination on timeout
// or cancellation is two-phase: SIGTERM, then SIGKILL after the configured
// grace wait.
func (e *Engine) runInvocation(ctx context.Context, taskID string, inv *domain.Invocation) (string, error) {
	command, args, dir, envOverrides, err := e.expandInvocation(inv)
	if err != nil {
		return "", err
	}

	timeout := inv.Timeout.Std()
	if timeout == 0 {
		timeout = e.cfg.Exec.DefaultTimeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, command, args...)
	cmd.Dir = dir
	cmd.Env = e.buildEnv(envOverrides)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = e.cfg.Exec.GraceWait

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", rigerrors.Wrapf(err, "command %q", command)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", rigerrors.Wrapf(err, "command %q", command)
	}

	e.logger.Debug().
		Str("task", taskID).
		Str("command", command).
		Strs("args", args).
		Str("dir", dir).
		Msg("subprocess starting")

	start := time.Now()
	if err = cmd.Start(); err != nil {
		return "", fmt.Errorf("command %q: %v: %w", command, err, rigerrors.ErrSubprocessFailure)
	}

	var mu sync.Mutex
	var lines []string
	pump := func(r io.Reader, stream string) error {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxOutputLineSize)
		for sc.Scan() {
			line := logging.FilterSensitiveValue(sc.Text())
			e.logger.Debug().Str("task", taskID).Str("stream", stream).Msg(line)
			mu.Lock()
			lines = append(lines, line)
			mu.Unlock()
		}
		return sc.Err()
	}

	g := new(errgroup.Group)
	g.Go(func() error { return pump(stdout, "stdout") })
	g.Go(func() error { return pump(stderr, "stderr") })
	pumpErr := g.Wait()
	waitErr := cmd.Wait()
	output := strings.Join(lines, "\n")

	if waitErr != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return output, fmt.Errorf("command %q timed out after %s: %w", command, timeout, rigerrors.ErrSubprocessTimeout)
		case ctx.Err() != nil:
			return output, rigerrors.Wrapf(ctx.Err(), "command %q interrupted", command)
		default:
			return output, fmt.Errorf("command %q exited with code %d: %w", command, cmd.ProcessState.ExitCode(), rigerrors.ErrSubprocessFailure)
		}
	}
	if pumpErr != nil {
		e.logger.Warn().Err(pumpErr).Str("command", command).Msg("subprocess output capture incomplete")
	}

	e.logger.Debug().
		Str("task", taskID).
		Str("command", command).
		Dur("duration", time.Since(start)).
		Msg("subprocess finished")
	return "", nil
}

// expandInvocation resolves property references in every invocation field
// and anchors a relative working directory at the workspace root.
func (e *Engine) expandInvocation(inv *domain.Invocation) (command string, args []string, dir string, env map[string]string, err error) {
	if command, err = e.store.Expand(inv.Command); err != nil {
		return "", nil, "", nil, err
	}
	if args, err = e.store.ExpandAll(inv.Args); err != nil {
		return "", nil, "", nil, err
	}
	if dir, err = e.store.Expand(inv.Dir); err != nil {
		return "", nil, "", nil, err
	}
	switch {
	case dir == "":
		dir = e.cfg.Workspace.Root
	case !filepath.IsAbs(dir):
		dir = filepath.Join(e.cfg.Workspace.Root, dir)
	}
	if env, err = e.store.ExpandMap(inv.Env); err != nil {
		return "", nil, "", nil, err
	}
	return command, args, dir, env, nil
}

// buildEnv layers the subprocess environment: the inherited process
// environment, then every property as RIG_PROP_*, then the invocation's
// own overrides. Later entries win.
func (e *Engine) buildEnv(overrides map[string]string) []string {
	env := append(os.Environ(), e.store.Environ()...)
	for _, k := range sortedKeys(overrides) {
		env = append(env, k+"="+overrides[k])
	}
	return env
}
