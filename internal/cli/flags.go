// Package cli provides the command-line interface for rig.
package cli

import (
	stderrors "errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rigbuild/rig/internal/constants"
	rigerrors "github.com/rigbuild/rig/internal/errors"
)

// Exit codes for the CLI.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0
	// ExitError indicates a build or general error.
	ExitError = 1
	// ExitInvalidInput indicates invalid user input.
	ExitInvalidInput = 2
)

// Output format constants.
const (
	// OutputText is the default human-readable output format.
	OutputText = "text"
	// OutputJSON is the machine-readable JSON output format.
	OutputJSON = "json"
)

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// Output specifies the output format (text or json).
	Output string
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses non-essential output (warn level only).
	Quiet bool
	// Workspace overrides the workspace root directory.
	Workspace string
	// Pipeline overrides the pipeline document path.
	Pipeline string
}

// AddGlobalFlags adds global flags to a command. These flags are available
// to all subcommands via PersistentFlags.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputText, "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential output")
	cmd.PersistentFlags().StringVarP(&flags.Workspace, "workspace", "w", "", "workspace root directory (default: current directory)")
	cmd.PersistentFlags().StringVarP(&flags.Pipeline, "pipeline", "p", "", "pipeline document path (default: rig.yaml under the workspace root)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// BindGlobalFlags binds global flags to viper for environment variable
// support with the RIG_ prefix (RIG_OUTPUT, RIG_VERBOSE, ...).
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command) error {
	rootFlags := cmd.Root().PersistentFlags()

	for _, name := range []string{"output", "verbose", "quiet", "workspace", "pipeline"} {
		if err := v.BindPFlag(name, rootFlags.Lookup(name)); err != nil {
			return err
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()

	return nil
}

// ValidOutputFormats returns the list of valid output format values.
func ValidOutputFormats() []string {
	return []string{OutputText, OutputJSON}
}

// IsValidOutputFormat checks if the given format is a valid output format.
func IsValidOutputFormat(format string) bool {
	for _, valid := range ValidOutputFormats() {
		if format == valid {
			return true
		}
	}
	return false
}

// ExitCodeForError maps an error to the process exit code. Nil is success,
// user input problems are ExitInvalidInput, everything else (including
// build failures) is ExitError.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case stderrors.Is(err, rigerrors.ErrInvalidOutputFormat),
		stderrors.Is(err, rigerrors.ErrTaskNotFound),
		stderrors.Is(err, rigerrors.ErrPipelineNotFound),
		stderrors.Is(err, rigerrors.ErrPipelineInvalid):
		return ExitInvalidInput
	case isInvalidInputError(err.Error()):
		return ExitInvalidInput
	default:
		return ExitError
	}
}

// isInvalidInputError catches cobra's built-in flag validation errors.
func isInvalidInputError(errMsg string) bool {
	invalidInputPatterns := []string{
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"invalid argument",
		"if any flags in the group",
		"required flag",
		"unknown command",
	}

	for _, pattern := range invalidInputPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
