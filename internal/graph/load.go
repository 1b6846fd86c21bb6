// Package graph loads and validates pipeline documents.
//
// Loading is strict: unknown fields in the YAML document are errors, so a
// typo like `dependss:` fails the build at load time instead of silently
// dropping a dependency. All validation here is static and runs before any
// task executes; in particular, dependency cycles are a load-time error,
// never a runtime deadlock.
package graph

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/rigbuild/rig/internal/cond"
	"github.com/rigbuild/rig/internal/constants"
	"github.com/rigbuild/rig/internal/domain"
	rigerrors "github.com/rigbuild/rig/internal/errors"
)

// Load reads, parses and validates a pipeline document. Platform aliases
// are resolved for the host OS, so the returned pipeline contains only
// concrete tasks.
func Load(path string) (*domain.Pipeline, error) {
	return LoadForPlatform(path, runtime.GOOS)
}

// LoadForPlatform is Load with an explicit GOOS, used by tests and by
// `rig graph --os` to inspect another platform's resolution.
func LoadForPlatform(path, goos string) (*domain.Pipeline, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- pipeline path comes from config/flags by design
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, rigerrors.ErrPipelineNotFound)
		}
		return nil, rigerrors.Wrapf(err, "reading pipeline %s", path)
	}

	pipeline, err := Parse(data)
	if err != nil {
		return nil, rigerrors.Wrapf(err, "parsing pipeline %s", path)
	}

	resolveAliases(pipeline, goos)

	if err := Validate(pipeline); err != nil {
		return nil, err
	}
	return pipeline, nil
}

// Parse decodes a pipeline document without validating it.
func Parse(data []byte) (*domain.Pipeline, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var pipeline domain.Pipeline
	if err := dec.Decode(&pipeline); err != nil {
		return nil, fmt.Errorf("%w: %s", rigerrors.ErrPipelineInvalid, err)
	}
	if pipeline.Default == "" {
		pipeline.Default = constants.DefaultTask
	}
	return &pipeline, nil
}

// resolveAliases converts each platform alias into a concrete task whose
// body is a single call to the selected target. This replaces the original
// property-indirection pattern with an explicit lookup performed once at
// load. An alias with no match and no fallback becomes a no-op task, so
// platform-specific steps vanish cleanly on other platforms.
func resolveAliases(p *domain.Pipeline, goos string) {
	for _, alias := range p.Aliases {
		task := domain.TaskDef{
			ID:          alias.ID,
			Description: "platform alias",
		}
		if target := selectAliasTarget(&alias, goos); target != "" {
			task.Call = []domain.CallDef{{Task: target}}
		}
		p.Tasks = append(p.Tasks, task)
	}
	p.Aliases = nil
}

// selectAliasTarget prefers an exact GOOS entry, then family entries in
// sorted order so that a table with both "linux" and "unix" resolves
// deterministically.
func selectAliasTarget(alias *domain.AliasDef, goos string) string {
	if target, ok := alias.Select[goos]; ok {
		return target
	}
	families := make([]string, 0, len(alias.Select))
	for family := range alias.Select {
		families = append(families, family)
	}
	sort.Strings(families)
	for _, family := range families {
		if cond.MatchOS(family, goos) {
			return alias.Select[family]
		}
	}
	return alias.Fallback
}
