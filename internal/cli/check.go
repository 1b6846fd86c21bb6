package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rigbuild/rig/internal/constants"
	"github.com/rigbuild/rig/internal/ctxutil"
	"github.com/rigbuild/rig/internal/report"
)

// AddCheckCommand adds the check command to the root command.
func AddCheckCommand(root *cobra.Command) {
	root.AddCommand(newCheckCmd())
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [suite-result ...]",
		Short: "Condense suite results and fail when any case failed",
		Long: `Check externally produced suite result documents.

Without arguments every suite result in the results directory is checked.
Passing and skipped cases are dropped; failing and erroring cases are
written to per-suite condensed failure reports next to the originals.
The command fails when any suite recorded a failing case. A result file
that does not exist counts as "suite did not run", not as a failure.

Examples:
  rig check
  rig check python.json java.json
  rig check --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd, cmd.OutOrStdout(), args)
		},
	}
}

func runCheck(ctx context.Context, cmd *cobra.Command, w io.Writer, args []string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	logger := GetLogger()
	cfg := GetConfig()
	outputFormat := cmd.Flag("output").Value.String()
	CheckNoColor()

	paths, err := suitePaths(cfg.Workspace.ResultsDir, args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		logger.Warn().Str("dir", cfg.Workspace.ResultsDir).Msg("no suite results found")
	}

	agg := report.NewAggregator(logger)
	outcome, checkErr := agg.CheckAllSuites(paths)
	if werr := agg.WriteCondensed(outcome, cfg.Workspace.ResultsDir); werr != nil {
		logger.Warn().Err(werr).Msg("failed to write condensed failure reports")
	}

	if outputFormat == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcome); err != nil {
			return err
		}
		return checkErr
	}

	_, _ = fmt.Fprint(w, renderCheckOutcome(outcome))
	return checkErr
}

// suitePaths resolves the suite result documents to check: explicit
// arguments when given (relative against the results dir), otherwise every
// result document in the results dir except condensed reports.
func suitePaths(resultsDir string, args []string) ([]string, error) {
	if len(args) > 0 {
		paths := make([]string, len(args))
		for i, a := range args {
			if filepath.IsAbs(a) {
				paths[i] = a
			} else {
				paths[i] = filepath.Join(resultsDir, a)
			}
		}
		return paths, nil
	}

	matches, err := filepath.Glob(filepath.Join(resultsDir, "*.json"))
	if err != nil {
		return nil, err
	}
	paths := matches[:0]
	for _, m := range matches {
		if strings.HasSuffix(m, constants.CondensedReportSuffix) {
			continue
		}
		paths = append(paths, m)
	}
	sort.Strings(paths)
	return paths, nil
}
