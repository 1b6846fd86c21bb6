package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rigbuild/rig/internal/config"
	"github.com/rigbuild/rig/internal/graph"
)

// AddValidateCommand adds the validate command to the root command.
func AddValidateCommand(root *cobra.Command) {
	root.AddCommand(newValidateCmd())
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the pipeline document without running it",
		Long: `Validate the pipeline document.

Checks structure (unique task ids, one body kind per task, well-formed
bodies), reference integrity (depends and call targets exist) and graph
acyclicity. With --tools, also verifies that every configured external
tool resolves to an executable.

Examples:
  rig validate
  rig validate --tools
  rig validate --pipeline ci/rig.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checkTools, _ := cmd.Flags().GetBool("tools")
			return runValidate(cmd.Context(), cmd.OutOrStdout(), checkTools)
		},
	}

	cmd.Flags().Bool("tools", false, "also verify configured tools are on this machine")

	return cmd
}

func runValidate(_ context.Context, w io.Writer, checkTools bool) error {
	logger := GetLogger()
	cfg := GetConfig()
	CheckNoColor()

	pipeline, err := graph.Load(cfg.Workspace.Pipeline)
	if err != nil {
		return err
	}
	if err = graph.Validate(pipeline); err != nil {
		return err
	}

	logger.Debug().
		Str("pipeline", pipeline.Name).
		Int("tasks", len(pipeline.Tasks)).
		Msg("pipeline validated")

	if checkTools {
		names := make([]string, 0, len(cfg.Tools))
		for name := range cfg.Tools {
			names = append(names, name)
		}
		if err = config.CheckTools(cfg, names); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintln(w, styleSuccess.Render(fmt.Sprintf("✓ %s is valid (%d tasks)", cfg.Workspace.Pipeline, len(pipeline.Tasks))))
	return nil
}
