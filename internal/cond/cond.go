// Package cond evaluates platform and filesystem conditions.
//
// Conditions are pure predicates over host facts (OS family, architecture)
// and filesystem facts (path existence) at evaluation time. Results are
// never cached across calls: filesystem state may change between
// evaluations within a run, and gating on staleness is the point of the
// exists atom.
package cond

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rigbuild/rig/internal/domain"
	rigerrors "github.com/rigbuild/rig/internal/errors"
)

// Evaluator evaluates domain.ConditionDef expressions against the host.
type Evaluator struct {
	workspaceRoot string
	goos          string
	goarch        string
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithPlatform overrides the detected OS and architecture. Used in tests.
func WithPlatform(goos, goarch string) Option {
	return func(e *Evaluator) {
		e.goos = goos
		e.goarch = goarch
	}
}

// New creates an evaluator. Relative exists: paths resolve against
// workspaceRoot.
func New(workspaceRoot string, opts ...Option) *Evaluator {
	e := &Evaluator{
		workspaceRoot: workspaceRoot,
		goos:          runtime.GOOS,
		goarch:        runtime.GOARCH,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GOOS returns the evaluator's effective operating system.
func (e *Evaluator) GOOS() string {
	return e.goos
}

// GOARCH returns the evaluator's effective architecture.
func (e *Evaluator) GOARCH() string {
	return e.goarch
}

// Eval evaluates the condition. A def with several atoms set is their
// conjunction. An empty def is an evaluation error, not a silent true.
func (e *Evaluator) Eval(c *domain.ConditionDef) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("nil condition: %w", rigerrors.ErrConditionEvaluation)
	}

	evaluated := false

	if c.OS != "" {
		evaluated = true
		if !e.matchOS(c.OS) {
			return false, nil
		}
	}
	if c.Arch != "" {
		evaluated = true
		if !strings.EqualFold(c.Arch, e.goarch) {
			return false, nil
		}
	}
	if c.Exists != "" {
		evaluated = true
		if !e.pathExists(c.Exists) {
			return false, nil
		}
	}
	if len(c.All) > 0 {
		evaluated = true
		for i := range c.All {
			ok, err := e.Eval(&c.All[i])
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	}
	if len(c.Any) > 0 {
		evaluated = true
		matched := false
		for i := range c.Any {
			ok, err := e.Eval(&c.Any[i])
			if err != nil {
				return false, err
			}
			if ok {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
	}
	if c.Not != nil {
		evaluated = true
		ok, err := e.Eval(c.Not)
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}

	if !evaluated {
		return false, fmt.Errorf("empty condition: %w", rigerrors.ErrConditionEvaluation)
	}
	return true, nil
}

// matchOS matches an OS family name against the host GOOS.
func (e *Evaluator) matchOS(family string) bool {
	return MatchOS(family, e.goos)
}

// MatchOS matches an OS family name against a GOOS value.
// Recognized families: the GOOS values themselves, "mac" as an alias for
// darwin, and "unix" covering everything except windows. Task aliases use
// the same family names as os: conditions.
func MatchOS(family, goos string) bool {
	switch strings.ToLower(family) {
	case "unix":
		return goos != "windows"
	case "mac", "macos", "darwin":
		return goos == "darwin"
	default:
		return strings.EqualFold(family, goos)
	}
}

// pathExists checks the path at evaluation time, resolving relative paths
// against the workspace root.
func (e *Evaluator) pathExists(path string) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.workspaceRoot, path)
	}
	_, err := os.Stat(path)
	return err == nil
}
