package domain

import "github.com/rigbuild/rig/internal/constants"

// SuiteResult is a structured test-result document produced externally by a
// test runner subprocess and written to a known path. rig only reads these;
// the schema is an external contract.
type SuiteResult struct {
	// Suite is the suite name (e.g. "cellprofiler", "java").
	Suite string `json:"suite"`

	// Cases are the individual test case results.
	Cases []TestCase `json:"cases"`
}

// TestCase is one case within a suite result document.
type TestCase struct {
	// Name is the test case name (e.g. "test_segmentation").
	Name string `json:"name"`

	// Status is pass, fail, error or skip.
	Status constants.CaseStatus `json:"status"`

	// Message carries the failure or error message when present.
	Message string `json:"message,omitempty"`
}

// FailureReport is the condensed view of one suite: only failing and
// erroring cases, with suite and case names preserved for diagnostics.
type FailureReport struct {
	// Suite is the originating suite name.
	Suite string `json:"suite"`

	// Failures are the non-passing cases.
	Failures []TestCase `json:"failures"`
}

// Empty reports whether the suite had no failing or erroring cases.
func (r *FailureReport) Empty() bool {
	return len(r.Failures) == 0
}

// AggregateOutcome is the union of condensed reports across all suites
// checked in one build. Presence of any failure is a build-terminating
// condition.
type AggregateOutcome struct {
	// Reports holds one condensed report per suite that produced results.
	Reports []FailureReport `json:"reports"`

	// MissingSuites lists result paths that did not exist. Suites that did
	// not run are tolerated as "no results", not treated as failures.
	MissingSuites []string `json:"missing_suites,omitempty"`
}

// Failed reports whether any suite recorded a failing or erroring case.
func (o *AggregateOutcome) Failed() bool {
	for i := range o.Reports {
		if !o.Reports[i].Empty() {
			return true
		}
	}
	return false
}

// TotalFailures counts failing and erroring cases across all suites.
func (o *AggregateOutcome) TotalFailures() int {
	n := 0
	for i := range o.Reports {
		n += len(o.Reports[i].Failures)
	}
	return n
}

// Representative returns one failing case for operator triage: the first
// failure of the first failing suite. ok is false when nothing failed.
func (o *AggregateOutcome) Representative() (suite string, testCase TestCase, ok bool) {
	for i := range o.Reports {
		if !o.Reports[i].Empty() {
			return o.Reports[i].Suite, o.Reports[i].Failures[0], true
		}
	}
	return "", TestCase{}, false
}
