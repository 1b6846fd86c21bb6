package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rigbuild/rig/internal/config"
	rigerrors "github.com/rigbuild/rig/internal/errors"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

// globalLogger and globalConfig are initialized in the root command's
// PersistentPreRunE and read by subcommands via GetLogger and GetConfig.
var (
	globalLogger zerolog.Logger //nolint:gochecknoglobals // CLI logger requires global access
	globalConfig *config.Config //nolint:gochecknoglobals // CLI config requires global access
	globalMu     sync.RWMutex   //nolint:gochecknoglobals // Protects the two above
)

// GetLogger returns the initialized logger. Only valid after the root
// command's PersistentPreRunE has executed.
func GetLogger() zerolog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// GetConfig returns the loaded configuration. Only valid after the root
// command's PersistentPreRunE has executed.
func GetConfig() *config.Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// newRootCmd creates the root command for the rig CLI.
func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "rig",
		Short: "rig - declarative task-graph build orchestrator",
		Long: `rig runs builds described as a task graph in a pipeline document.

Tasks declare dependencies, guards and bodies (subprocess runs, sub-task
calls, test-result checks, prerequisite fetches, artifact staging). rig
resolves the graph, runs each required task at most once and stops at the
first failure unless a task opts out with failonerror: false.`,
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := BindGlobalFlags(v, cmd); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}

			if !IsValidOutputFormat(flags.Output) {
				return fmt.Errorf("%w: %q must be one of %v", rigerrors.ErrInvalidOutputFormat, flags.Output, ValidOutputFormats())
			}

			cfg, err := config.LoadWithOverrides(cmd.Context(), config.Overrides{
				WorkspaceRoot: flags.Workspace,
				Pipeline:      flags.Pipeline,
			})
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger := InitLogger(flags.Verbose, flags.Quiet, cfg.Log)

			globalMu.Lock()
			globalLogger = logger
			globalConfig = cfg
			globalMu.Unlock()

			return nil
		},
		// SilenceUsage prevents printing usage on error.
		SilenceUsage: true,
	}

	AddGlobalFlags(cmd, flags)

	AddRunCommand(cmd)
	AddCheckCommand(cmd)
	AddGraphCommand(cmd)
	AddValidateCommand(cmd)
	AddPropsCommand(cmd)

	return cmd
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command with the provided context and build info.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, info)
	defer CloseLogFile()
	return cmd.ExecuteContext(ctx)
}
