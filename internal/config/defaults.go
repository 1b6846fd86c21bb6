package config

import (
	"github.com/spf13/viper"

	"github.com/rigbuild/rig/internal/constants"
)

// DefaultConfig returns a new Config with sensible default values.
// These defaults are used as the base layer that can be overridden by
// config files, environment variables, and CLI flags.
func DefaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			// Root: empty means the current directory, resolved in Load.
			Root: "",

			// Pipeline: resolved relative to the root when not absolute.
			Pipeline: constants.DefaultPipelineFileName,

			ResultsDir: constants.ResultsDir,
			DistDir:    constants.DistDir,
		},
		Exec: ExecConfig{
			GraceWait: constants.GracefulTerminationWait,

			// DefaultTimeout: zero keeps the blocking execution model; a
			// hung subprocess hangs the build unless the pipeline declares
			// per-invocation timeouts.
			DefaultTimeout: 0,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
		Tools: map[string]string{},
	}
}

// setDefaults registers default values on a viper instance so that partial
// config files merge over a complete base.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("workspace.root", d.Workspace.Root)
	v.SetDefault("workspace.pipeline", d.Workspace.Pipeline)
	v.SetDefault("workspace.results_dir", d.Workspace.ResultsDir)
	v.SetDefault("workspace.dist_dir", d.Workspace.DistDir)
	v.SetDefault("exec.grace_wait", d.Exec.GraceWait)
	v.SetDefault("exec.default_timeout", d.Exec.DefaultTimeout)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
}
