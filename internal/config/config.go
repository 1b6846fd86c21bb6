// Package config provides configuration management for rig with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (RIG_* prefix)
//  3. Project config (.rig/config.yaml under the workspace root)
//  4. Global config (~/.rig/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for rig.
type Config struct {
	// Workspace contains paths for the build workspace.
	Workspace WorkspaceConfig `yaml:"workspace" mapstructure:"workspace"`

	// Exec contains subprocess execution settings.
	Exec ExecConfig `yaml:"exec" mapstructure:"exec"`

	// Log contains file logging settings.
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Tools maps tool names to executable paths for required external
	// tools (python, java, iscc, ...). Entries are also sourced from
	// RIG_TOOL_<NAME> environment variables, which take precedence.
	// Each entry is exposed to pipelines as the property "tool.<name>".
	Tools map[string]string `yaml:"tools" mapstructure:"tools"`
}

// WorkspaceConfig contains paths for the build workspace.
type WorkspaceConfig struct {
	// Root is the workspace root directory. Relative pipeline paths,
	// working directories and exists: conditions resolve against it.
	// Default: the current directory.
	Root string `yaml:"root" mapstructure:"root"`

	// Pipeline is the pipeline document path.
	// Default: rig.yaml under the root.
	Pipeline string `yaml:"pipeline" mapstructure:"pipeline"`

	// ResultsDir receives suite result documents and condensed failure
	// reports. Default: test-results under the root.
	ResultsDir string `yaml:"results_dir" mapstructure:"results_dir"`

	// DistDir receives staged final build artifacts.
	// Default: dist under the root.
	DistDir string `yaml:"dist_dir" mapstructure:"dist_dir"`
}

// ExecConfig contains subprocess execution settings.
type ExecConfig struct {
	// GraceWait is how long to wait between SIGTERM and SIGKILL when
	// terminating an in-flight subprocess. Default: 5s.
	GraceWait time.Duration `yaml:"grace_wait" mapstructure:"grace_wait"`

	// DefaultTimeout bounds every subprocess that does not declare its own
	// timeout. Zero means no timeout: a hung subprocess hangs the build,
	// which matches the default execution model.
	DefaultTimeout time.Duration `yaml:"default_timeout" mapstructure:"default_timeout"`
}

// LogConfig contains file logging settings. Console logging is controlled
// by CLI flags, not config.
type LogConfig struct {
	// File is the log file path. Empty disables file logging.
	File string `yaml:"file" mapstructure:"file"`

	// MaxSizeMB is the maximum size of the log file before rotation.
	MaxSizeMB int `yaml:"max_size_mb" mapstructure:"max_size_mb"`

	// MaxBackups is the number of rotated log files to keep.
	MaxBackups int `yaml:"max_backups" mapstructure:"max_backups"`

	// MaxAgeDays is the maximum age of rotated log files in days.
	MaxAgeDays int `yaml:"max_age_days" mapstructure:"max_age_days"`
}
