package graph

import (
	"fmt"
	"strings"

	"github.com/rigbuild/rig/internal/domain"
	rigerrors "github.com/rigbuild/rig/internal/errors"
)

// Validate checks a pipeline for structural problems: duplicate or empty
// task ids, dangling dependency and call references, tasks with both run
// and call bodies, and cycles. Call edges count toward cycles because a
// call is execution of the callee; a call cycle would recurse forever.
func Validate(p *domain.Pipeline) error {
	if p == nil {
		return fmt.Errorf("nil pipeline: %w", rigerrors.ErrPipelineInvalid)
	}
	if len(p.Tasks) == 0 {
		return fmt.Errorf("pipeline declares no tasks: %w", rigerrors.ErrPipelineInvalid)
	}

	index := make(map[string]*domain.TaskDef, len(p.Tasks))
	for i := range p.Tasks {
		task := &p.Tasks[i]
		if task.ID == "" {
			return fmt.Errorf("task %d has empty id: %w", i, rigerrors.ErrPipelineInvalid)
		}
		if _, exists := index[task.ID]; exists {
			return fmt.Errorf("%q: %w", task.ID, rigerrors.ErrDuplicateTask)
		}
		index[task.ID] = task
	}

	for i := range p.Tasks {
		if err := validateTask(&p.Tasks[i], index); err != nil {
			return err
		}
	}

	if p.Default != "" {
		if _, ok := index[p.Default]; !ok {
			return fmt.Errorf("default task %q: %w", p.Default, rigerrors.ErrTaskNotFound)
		}
	}

	return detectCycles(p, index)
}

// Index returns the task lookup table for a validated pipeline.
func Index(p *domain.Pipeline) map[string]*domain.TaskDef {
	index := make(map[string]*domain.TaskDef, len(p.Tasks))
	for i := range p.Tasks {
		index[p.Tasks[i].ID] = &p.Tasks[i]
	}
	return index
}

func validateTask(task *domain.TaskDef, index map[string]*domain.TaskDef) error {
	bodies := 0
	if len(task.Run) > 0 {
		bodies++
	}
	if len(task.Call) > 0 {
		bodies++
	}
	if task.Check != nil {
		bodies++
	}
	if len(task.Fetch) > 0 {
		bodies++
	}
	if task.Stage != nil {
		bodies++
	}
	if bodies > 1 {
		return fmt.Errorf("task %q declares more than one body kind: %w", task.ID, rigerrors.ErrPipelineInvalid)
	}
	for _, dep := range task.Depends {
		if _, ok := index[dep]; !ok {
			return fmt.Errorf("task %q depends on unknown task %q: %w", task.ID, dep, rigerrors.ErrTaskNotFound)
		}
	}
	for _, call := range task.Call {
		if call.Task == "" {
			return fmt.Errorf("task %q has a call with no target: %w", task.ID, rigerrors.ErrPipelineInvalid)
		}
		if _, ok := index[call.Task]; !ok {
			return fmt.Errorf("task %q calls unknown task %q: %w", task.ID, call.Task, rigerrors.ErrTaskNotFound)
		}
	}
	for i := range task.Run {
		if task.Run[i].Command == "" {
			return fmt.Errorf("task %q run step %d has no command: %w", task.ID, i, rigerrors.ErrPipelineInvalid)
		}
	}
	if task.Check != nil && len(task.Check.Suites) == 0 {
		return fmt.Errorf("task %q check body names no suites: %w", task.ID, rigerrors.ErrPipelineInvalid)
	}
	for i := range task.Fetch {
		if task.Fetch[i].Path == "" || task.Fetch[i].URL == "" {
			return fmt.Errorf("task %q fetch entry %d needs path and url: %w", task.ID, i, rigerrors.ErrPipelineInvalid)
		}
	}
	if task.Stage != nil && len(task.Stage.Outputs) == 0 {
		return fmt.Errorf("task %q stage body names no outputs: %w", task.ID, rigerrors.ErrPipelineInvalid)
	}
	return nil
}

// detectCycles runs a three-color depth-first search over dependency and
// call edges.
func detectCycles(p *domain.Pipeline, index map[string]*domain.TaskDef) error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	colors := make(map[string]int, len(p.Tasks))

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch colors[id] {
		case gray:
			cycle := append(path, id)
			return fmt.Errorf("%s: %w", strings.Join(cycle, " -> "), rigerrors.ErrCyclicDependency)
		case black:
			return nil
		}
		colors[id] = gray
		path = append(path, id)

		task := index[id]
		for _, dep := range task.Depends {
			if err := visit(dep, path); err != nil {
				return err
			}
		}
		for _, call := range task.Call {
			if err := visit(call.Task, path); err != nil {
				return err
			}
		}

		colors[id] = black
		return nil
	}

	for i := range p.Tasks {
		if err := visit(p.Tasks[i].ID, nil); err != nil {
			return err
		}
	}
	return nil
}

// ExecutionOrder returns the order in which tasks would run for the target,
// dependencies first, each task at most once. Guards are ignored: this is
// the static plan shown by `rig graph`, not a promise that every task will
// run.
func ExecutionOrder(p *domain.Pipeline, target string) ([]string, error) {
	index := Index(p)
	if _, ok := index[target]; !ok {
		return nil, fmt.Errorf("%q: %w", target, rigerrors.ErrTaskNotFound)
	}

	var order []string
	seen := make(map[string]bool, len(p.Tasks))

	var visit func(id string)
	visit = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		task := index[id]
		for _, dep := range task.Depends {
			visit(dep)
		}
		order = append(order, id)
		for _, call := range task.Call {
			visit(call.Task)
		}
	}
	visit(target)
	return order, nil
}
