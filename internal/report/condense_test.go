package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigbuild/rig/internal/constants"
	"github.com/rigbuild/rig/internal/domain"
	rigerrors "github.com/rigbuild/rig/internal/errors"
)

func writeSuite(t *testing.T, dir, name string, suite domain.SuiteResult) string {
	t.Helper()
	data, err := json.Marshal(suite)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func passingSuite(name string) domain.SuiteResult {
	return domain.SuiteResult{
		Suite: name,
		Cases: []domain.TestCase{
			{Name: "test_open", Status: constants.CaseStatusPass},
			{Name: "test_close", Status: constants.CaseStatusPass},
			{Name: "test_slow", Status: constants.CaseStatusSkip},
		},
	}
}

func TestCondense(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(zerolog.Nop())

	t.Run("keeps only failing and erroring cases", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := writeSuite(t, dir, "cellprofiler.json", domain.SuiteResult{
			Suite: "cellprofiler",
			Cases: []domain.TestCase{
				{Name: "test_open", Status: constants.CaseStatusPass},
				{Name: "test_segmentation", Status: constants.CaseStatusFail, Message: "mask mismatch"},
				{Name: "test_tracking", Status: constants.CaseStatusError, Message: "IndexError"},
				{Name: "test_slow", Status: constants.CaseStatusSkip},
			},
		})

		report, err := agg.Condense(path)
		require.NoError(t, err)
		assert.Equal(t, "cellprofiler", report.Suite)
		require.Len(t, report.Failures, 2)
		assert.Equal(t, "test_segmentation", report.Failures[0].Name)
		assert.Equal(t, "mask mismatch", report.Failures[0].Message)
		assert.Equal(t, "test_tracking", report.Failures[1].Name)
	})

	t.Run("all passing produces empty report", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := writeSuite(t, dir, "java.json", passingSuite("java"))

		report, err := agg.Condense(path)
		require.NoError(t, err)
		assert.True(t, report.Empty())
	})

	t.Run("suite name falls back to file name", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := writeSuite(t, dir, "nameless.json", domain.SuiteResult{
			Cases: []domain.TestCase{{Name: "t", Status: constants.CaseStatusFail}},
		})

		report, err := agg.Condense(path)
		require.NoError(t, err)
		assert.Equal(t, "nameless", report.Suite)
	})

	t.Run("malformed document rejected", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

		_, err := agg.Condense(path)
		assert.ErrorIs(t, err, rigerrors.ErrInvalidSuiteResult)
	})
}

func TestCheckAllSuites(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(zerolog.Nop())

	t.Run("names representative failing case", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		passing := writeSuite(t, dir, "java.json", passingSuite("java"))
		failing := writeSuite(t, dir, "cellprofiler.json", domain.SuiteResult{
			Suite: "cellprofiler",
			Cases: []domain.TestCase{
				{Name: "test_segmentation", Status: constants.CaseStatusFail, Message: "boom"},
			},
		})

		outcome, err := agg.CheckAllSuites([]string{passing, failing})
		require.Error(t, err)
		assert.ErrorIs(t, err, rigerrors.ErrAggregateTestFailure)
		assert.Contains(t, err.Error(), "test_segmentation")
		require.NotNil(t, outcome)
		assert.True(t, outcome.Failed())
		assert.Equal(t, 1, outcome.TotalFailures())
	})

	t.Run("all passing succeeds", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		a := writeSuite(t, dir, "a.json", passingSuite("a"))
		b := writeSuite(t, dir, "b.json", passingSuite("b"))

		outcome, err := agg.CheckAllSuites([]string{a, b})
		require.NoError(t, err)
		assert.False(t, outcome.Failed())
	})

	t.Run("missing file tolerated, real failures still aggregated", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		passing := writeSuite(t, dir, "java.json", passingSuite("java"))
		failing := writeSuite(t, dir, "cp.json", domain.SuiteResult{
			Suite: "cp",
			Cases: []domain.TestCase{{Name: "test_measure", Status: constants.CaseStatusError}},
		})
		missing := filepath.Join(dir, "never-ran.json")

		outcome, err := agg.CheckAllSuites([]string{passing, missing, failing})
		require.Error(t, err)
		assert.ErrorIs(t, err, rigerrors.ErrAggregateTestFailure)
		assert.Contains(t, err.Error(), "test_measure")
		assert.Equal(t, []string{missing}, outcome.MissingSuites)
	})

	t.Run("malformed document returns partial outcome", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		passing := writeSuite(t, dir, "java.json", passingSuite("java"))
		bad := writeSuite(t, dir, "python.json", domain.SuiteResult{})
		require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))

		outcome, err := agg.CheckAllSuites([]string{passing, bad})
		require.Error(t, err)
		assert.ErrorIs(t, err, rigerrors.ErrInvalidSuiteResult)
		require.NotNil(t, outcome, "callers write and render the outcome unconditionally")
		require.Len(t, outcome.Reports, 1)
		assert.Equal(t, "java", outcome.Reports[0].Suite)
	})

	t.Run("missing file alone is not a failure", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		passing := writeSuite(t, dir, "java.json", passingSuite("java"))
		missing := filepath.Join(dir, "never-ran.json")

		outcome, err := agg.CheckAllSuites([]string{passing, missing})
		require.NoError(t, err)
		assert.False(t, outcome.Failed())
		assert.Equal(t, []string{missing}, outcome.MissingSuites)
	})
}

func TestWriteCondensed(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(zerolog.Nop())
	dir := t.TempDir()
	failing := writeSuite(t, dir, "cellprofiler.json", domain.SuiteResult{
		Suite: "cellprofiler",
		Cases: []domain.TestCase{
			{Name: "test_segmentation", Status: constants.CaseStatusFail, Message: "boom"},
			{Name: "test_open", Status: constants.CaseStatusPass},
		},
	})

	outcome, err := agg.CheckAllSuites([]string{failing})
	require.Error(t, err)

	resultsDir := filepath.Join(dir, "out")
	require.NoError(t, agg.WriteCondensed(outcome, resultsDir))

	data, err := os.ReadFile(filepath.Join(resultsDir, "cellprofiler.failures.json"))
	require.NoError(t, err)

	var report domain.FailureReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "cellprofiler", report.Suite)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "test_segmentation", report.Failures[0].Name)
}
