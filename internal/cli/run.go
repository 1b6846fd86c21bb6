package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rigbuild/rig/internal/engine"
	"github.com/rigbuild/rig/internal/graph"
	"github.com/rigbuild/rig/internal/signal"
)

// AddRunCommand adds the run command to the root command.
func AddRunCommand(root *cobra.Command) {
	root.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [target]",
		Short: "Run a pipeline target and everything it depends on",
		Long: `Run a target task from the pipeline document.

Without a target the pipeline's default task runs. Dependencies execute
first, each at most once; the build stops at the first failing task unless
that task declares failonerror: false.

Examples:
  rig run
  rig run package.windows
  rig run test --verbose
  rig run build --pipeline ci/rig.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return runRun(cmd.Context(), cmd, cmd.OutOrStdout(), target)
		},
	}
}

func runRun(ctx context.Context, cmd *cobra.Command, w io.Writer, target string) error {
	logger := GetLogger()
	cfg := GetConfig()
	outputFormat := cmd.Flag("output").Value.String()
	CheckNoColor()

	h := signal.NewHandler(ctx)
	defer h.Stop()
	ctx = h.Context()

	pipeline, err := graph.Load(cfg.Workspace.Pipeline)
	if err != nil {
		return err
	}
	if err = graph.Validate(pipeline); err != nil {
		return err
	}

	e := engine.New(pipeline, cfg, logger)
	result, runErr := e.Run(ctx, target)

	select {
	case <-h.Interrupted():
		logger.Warn().Msg("build interrupted")
	default:
	}

	if outputFormat == OutputJSON {
		if err := writeResultJSON(w, result, runErr); err != nil {
			return err
		}
		return runErr
	}

	_, _ = fmt.Fprint(w, renderSummary(result))
	return runErr
}

// runResultDocument is the JSON shape emitted by `rig run --output json`.
type runResultDocument struct {
	*engine.BuildResult

	Error string `json:"error,omitempty"`
}

func writeResultJSON(w io.Writer, result *engine.BuildResult, runErr error) error {
	doc := runResultDocument{BuildResult: result}
	if runErr != nil {
		doc.Error = runErr.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
