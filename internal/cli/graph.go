package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rigbuild/rig/internal/graph"
)

// AddGraphCommand adds the graph command to the root command.
func AddGraphCommand(root *cobra.Command) {
	root.AddCommand(newGraphCmd())
}

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph [target]",
		Short: "Show the execution order for a target",
		Long: `Show the tasks a target would run, in execution order.

Guards are not evaluated: the listing is the static dependency closure, so
tasks that would be skipped at run time still appear.

Examples:
  rig graph
  rig graph package.windows
  rig graph --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return runGraph(cmd.Context(), cmd, cmd.OutOrStdout(), target)
		},
	}
}

type graphDocument struct {
	Target string      `json:"target"`
	Tasks  []graphTask `json:"tasks"`
}

type graphTask struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Depends     []string `json:"depends,omitempty"`
}

func runGraph(_ context.Context, cmd *cobra.Command, w io.Writer, target string) error {
	cfg := GetConfig()
	outputFormat := cmd.Flag("output").Value.String()
	CheckNoColor()

	pipeline, err := graph.Load(cfg.Workspace.Pipeline)
	if err != nil {
		return err
	}
	if err = graph.Validate(pipeline); err != nil {
		return err
	}
	if target == "" {
		target = pipeline.Default
	}

	order, err := graph.ExecutionOrder(pipeline, target)
	if err != nil {
		return err
	}

	index := graph.Index(pipeline)
	doc := graphDocument{Target: target}
	for _, id := range order {
		task := index[id]
		doc.Tasks = append(doc.Tasks, graphTask{
			ID:          task.ID,
			Description: task.Description,
			Depends:     task.Depends,
		})
	}

	if outputFormat == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	_, _ = fmt.Fprintln(w, styleHeader.Render(fmt.Sprintf("execution order for %q:", target)))
	for i, task := range doc.Tasks {
		line := fmt.Sprintf("%3d. %s", i+1, task.ID)
		if task.Description != "" {
			line += styleMuted.Render("  " + task.Description)
		}
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}
