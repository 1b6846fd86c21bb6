// Package report condenses externally produced test suite results and
// aggregates failures across suites.
//
// Suite result documents are an external schema: test runner subprocesses
// write them to known paths and rig only reads them. The condensed view
// keeps failing and erroring cases only, preserving suite and case names
// so an operator can triage without re-running.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/rigbuild/rig/internal/domain"
	rigerrors "github.com/rigbuild/rig/internal/errors"
)

// Aggregator reads suite result documents and produces condensed failure
// reports.
type Aggregator struct {
	logger zerolog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(logger zerolog.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Condense reads one suite result document and returns its condensed
// failure report: only failing and erroring cases, passing and skipped
// cases dropped.
func (a *Aggregator) Condense(path string) (*domain.FailureReport, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- result paths come from the pipeline document
	if err != nil {
		return nil, rigerrors.Wrapf(err, "reading suite result %s", path)
	}

	var suite domain.SuiteResult
	if err := json.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", path, err, rigerrors.ErrInvalidSuiteResult)
	}
	if suite.Suite == "" {
		// Fall back to the file name so diagnostics always name a suite.
		suite.Suite = trimResultExt(filepath.Base(path))
	}

	report := &domain.FailureReport{Suite: suite.Suite}
	for _, tc := range suite.Cases {
		if tc.Status.IsFailing() {
			report.Failures = append(report.Failures, tc)
		}
	}

	a.logger.Debug().
		Str("suite", report.Suite).
		Int("cases", len(suite.Cases)).
		Int("failures", len(report.Failures)).
		Msg("condensed suite result")

	return report, nil
}

// CheckAllSuites condenses each path and unions the failures. Missing
// input files are tolerated as "no results" to accommodate suites that did
// not run; they are recorded in the outcome for visibility. The outcome is
// always non-nil so callers can write and render whatever condensed; the
// error names an unreadable document or a representative failing case.
func (a *Aggregator) CheckAllSuites(paths []string) (*domain.AggregateOutcome, error) {
	outcome := &domain.AggregateOutcome{}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			a.logger.Warn().Str("path", path).Msg("suite result missing, treating as no results")
			outcome.MissingSuites = append(outcome.MissingSuites, path)
			continue
		}
		report, err := a.Condense(path)
		if err != nil {
			return outcome, err
		}
		outcome.Reports = append(outcome.Reports, *report)
	}

	if !outcome.Failed() {
		return outcome, nil
	}

	suite, tc, _ := outcome.Representative()
	return outcome, fmt.Errorf("%d failing case(s) across %d suite(s), first: %s/%s: %w",
		outcome.TotalFailures(), len(outcome.Reports), suite, tc.Name, rigerrors.ErrAggregateTestFailure)
}

// trimResultExt strips the `.json` extension from a result file name.
func trimResultExt(name string) string {
	ext := filepath.Ext(name)
	if ext == ".json" {
		return name[:len(name)-len(ext)]
	}
	return name
}
