package report

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rigbuild/rig/internal/constants"
	"github.com/rigbuild/rig/internal/domain"
	rigerrors "github.com/rigbuild/rig/internal/errors"
)

// WriteCondensed writes one condensed failure report per suite to the
// results directory, named <suite>.failures.json. Suites with no failures
// still get a report so a clean run is distinguishable from a missing one.
func (a *Aggregator) WriteCondensed(outcome *domain.AggregateOutcome, resultsDir string) error {
	if err := os.MkdirAll(resultsDir, 0o750); err != nil {
		return rigerrors.Wrap(err, "creating results directory")
	}

	for i := range outcome.Reports {
		report := &outcome.Reports[i]
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return rigerrors.Wrapf(err, "marshaling condensed report for %s", report.Suite)
		}
		path := filepath.Join(resultsDir, report.Suite+constants.CondensedReportSuffix)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return rigerrors.Wrapf(err, "writing condensed report %s", path)
		}
		a.logger.Info().
			Str("suite", report.Suite).
			Str("path", path).
			Int("failures", len(report.Failures)).
			Msg("wrote condensed failure report")
	}
	return nil
}
