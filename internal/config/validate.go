package config

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/rigbuild/rig/internal/errors"
)

// Validate checks a Config for structural problems. It does not touch the
// filesystem; tool presence is checked separately by CheckTools because a
// missing tool only matters when a pipeline references it.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}
	if cfg.Workspace.Root == "" {
		return fmt.Errorf("workspace.root: %w", errors.ErrConfigInvalid)
	}
	if !filepath.IsAbs(cfg.Workspace.Root) {
		return fmt.Errorf("workspace.root %q must be absolute after loading: %w", cfg.Workspace.Root, errors.ErrConfigInvalid)
	}
	if cfg.Exec.GraceWait < 0 {
		return fmt.Errorf("exec.grace_wait must not be negative: %w", errors.ErrConfigInvalid)
	}
	if cfg.Exec.DefaultTimeout < 0 {
		return fmt.Errorf("exec.default_timeout must not be negative: %w", errors.ErrConfigInvalid)
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation values must not be negative: %w", errors.ErrConfigInvalid)
	}
	return nil
}

// CheckTools verifies that every named tool resolves to an executable,
// either through a configured path or via PATH lookup. Returns one error
// naming all missing tools, so the operator fixes the environment once.
func CheckTools(cfg *Config, names []string) error {
	var missing []string
	for _, name := range names {
		if path, ok := cfg.Tools[name]; ok {
			if _, err := exec.LookPath(path); err != nil {
				missing = append(missing, fmt.Sprintf("%s (%s)", name, path))
			}
			continue
		}
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%v: %w", missing, errors.ErrMissingRequiredTools)
}

// ToolPath returns the configured path for a tool, falling back to the bare
// name for PATH resolution by the OS.
func ToolPath(cfg *Config, name string) string {
	if path, ok := cfg.Tools[name]; ok && path != "" {
		return path
	}
	return name
}
