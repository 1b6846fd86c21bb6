package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rigbuild/rig/internal/engine"
	"github.com/rigbuild/rig/internal/graph"
	"github.com/rigbuild/rig/internal/logging"
)

// AddPropsCommand adds the props command to the root command.
func AddPropsCommand(root *cobra.Command) {
	root.AddCommand(newPropsCmd())
}

func newPropsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "props",
		Short: "Show the resolved property set for this host",
		Long: `Resolve and print the property set a build on this host would see.

Built-in, tool and pipeline-declared properties are resolved exactly as
at build start, including conditional bindings for the current platform.
Values of sensitive-looking properties are redacted.

Examples:
  rig props
  rig props --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProps(cmd.Context(), cmd, cmd.OutOrStdout())
		},
	}
}

func runProps(_ context.Context, cmd *cobra.Command, w io.Writer) error {
	logger := GetLogger()
	cfg := GetConfig()
	outputFormat := cmd.Flag("output").Value.String()

	pipeline, err := graph.Load(cfg.Workspace.Pipeline)
	if err != nil {
		return err
	}
	if err = graph.Validate(pipeline); err != nil {
		return err
	}

	e := engine.New(pipeline, cfg, logger)
	if err = e.ResolveProperties(); err != nil {
		return err
	}

	store := e.Store()
	values := make(map[string]string)
	for _, name := range store.Names() {
		value, _ := store.Get(name)
		values[name] = logging.RedactIfSensitive(name, value)
	}

	if outputFormat == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	}

	for _, name := range store.Names() {
		_, _ = fmt.Fprintf(w, "%s=%s\n", name, values[name])
	}
	return nil
}
