package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigbuild/rig/internal/config"
	"github.com/rigbuild/rig/internal/constants"
	"github.com/rigbuild/rig/internal/domain"
	rigerrors "github.com/rigbuild/rig/internal/errors"
	"github.com/rigbuild/rig/internal/stage"
)

func writeSuiteResult(t *testing.T, cfg *config.Config, name string, suite domain.SuiteResult) {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.Workspace.ResultsDir, 0o750))
	data, err := json.Marshal(suite)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Workspace.ResultsDir, name), data, 0o600))
}

func TestRunCheckFailingSuite(t *testing.T) {
	cfg := testConfig(t)
	writeSuiteResult(t, cfg, "python.json", domain.SuiteResult{
		Suite: "python",
		Cases: []domain.TestCase{
			{Name: "test_ok", Status: constants.CaseStatusPass},
			{Name: "test_segmentation", Status: constants.CaseStatusFail, Message: "boom"},
		},
	})

	p := &domain.Pipeline{
		Name: "checks",
		Tasks: []domain.TaskDef{
			{ID: "test-report", Check: &domain.CheckDef{Suites: []string{"python.json", "java.json"}}},
		},
	}

	e := newTestEngine(t, p, cfg)
	_, err := e.Run(context.Background(), "test-report")
	require.ErrorIs(t, err, rigerrors.ErrAggregateTestFailure)
	assert.Equal(t, constants.TaskStatusFailed, e.status("test-report"))

	// The condensed report is written even though the check fails the build.
	condensed := filepath.Join(cfg.Workspace.ResultsDir, "python"+constants.CondensedReportSuffix)
	data, rerr := os.ReadFile(condensed)
	require.NoError(t, rerr)
	var report domain.FailureReport
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "test_segmentation", report.Failures[0].Name)
}

func TestRunCheckPassingAndMissingSuites(t *testing.T) {
	cfg := testConfig(t)
	writeSuiteResult(t, cfg, "python.json", domain.SuiteResult{
		Suite: "python",
		Cases: []domain.TestCase{{Name: "test_ok", Status: constants.CaseStatusPass}},
	})

	p := &domain.Pipeline{
		Name: "checks",
		Tasks: []domain.TaskDef{
			{ID: "test-report", Check: &domain.CheckDef{Suites: []string{"python.json", "never-ran.json"}}},
		},
	}

	e := newTestEngine(t, p, cfg)
	_, err := e.Run(context.Background(), "test-report")
	require.NoError(t, err, "a suite that never ran is not a failure")
	assert.Equal(t, constants.TaskStatusSucceeded, e.status("test-report"))
}

func TestRunCheckMalformedSuiteResult(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Workspace.ResultsDir, 0o750))
	bad := filepath.Join(cfg.Workspace.ResultsDir, "python.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))

	p := &domain.Pipeline{
		Name: "checks",
		Tasks: []domain.TaskDef{
			{ID: "test-report", Check: &domain.CheckDef{Suites: []string{"python.json"}}},
		},
	}

	e := newTestEngine(t, p, cfg)
	result, err := e.Run(context.Background(), "test-report")
	require.ErrorIs(t, err, rigerrors.ErrInvalidSuiteResult)
	require.NotNil(t, result)
	assert.Equal(t, constants.TaskStatusFailed, e.status("test-report"))
}

func TestRunFetchOnlyWhenMissing(t *testing.T) {
	cfg := testConfig(t)
	var fetches atomic.Int32
	factory := func(_ context.Context, url string) stage.FetchFunc {
		return func(path string) error {
			fetches.Add(1)
			return os.WriteFile(path, []byte(url), 0o600)
		}
	}

	pipeline := func() *domain.Pipeline {
		return &domain.Pipeline{
			Name: "fetches",
			Tasks: []domain.TaskDef{
				{ID: "prereqs", Fetch: []domain.FetchDef{{
					Path: "vendor/runtime.zip",
					URL:  "https://example.com/runtime-{runtime.version}.zip",
				}}},
			},
			Properties: []domain.PropertyDef{{Name: "runtime.version", Value: "3.8"}},
		}
	}

	e := newTestEngine(t, pipeline(), cfg, WithFetcherFactory(factory))
	_, err := e.Run(context.Background(), "prereqs")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetches.Load())

	fetched := filepath.Join(cfg.Workspace.Root, "vendor", "runtime.zip")
	data, err := os.ReadFile(fetched)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/runtime-3.8.zip", string(data), "url is property-expanded")

	// A second run sees the artifact and never re-fetches.
	e2 := newTestEngine(t, pipeline(), cfg, WithFetcherFactory(factory))
	_, err = e2.Run(context.Background(), "prereqs")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetches.Load())
}

func TestRunFetchFailure(t *testing.T) {
	cfg := testConfig(t)
	factory := func(_ context.Context, _ string) stage.FetchFunc {
		return func(_ string) error {
			return rigerrors.ErrFetchFailed
		}
	}

	p := &domain.Pipeline{
		Name: "fetches",
		Tasks: []domain.TaskDef{
			{ID: "prereqs", Fetch: []domain.FetchDef{{Path: "vendor/runtime.zip", URL: "https://example.com/x"}}},
		},
	}

	e := newTestEngine(t, p, cfg, WithFetcherFactory(factory))
	_, err := e.Run(context.Background(), "prereqs")
	require.ErrorIs(t, err, rigerrors.ErrFetchFailed)
	assert.NoFileExists(t, filepath.Join(cfg.Workspace.Root, "vendor", "runtime.zip"))
}

func TestRunStageDefaultsToDistDir(t *testing.T) {
	cfg := testConfig(t)
	buildDir := filepath.Join(cfg.Workspace.Root, "build")
	require.NoError(t, os.MkdirAll(buildDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "app-1.0.exe"), []byte("bin"), 0o600))

	// A stale artifact from a previous build sits in the dist dir.
	require.NoError(t, os.MkdirAll(cfg.Workspace.DistDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Workspace.DistDir, "app-0.9.exe"), []byte("old"), 0o600))

	p := &domain.Pipeline{
		Name: "staging",
		Tasks: []domain.TaskDef{
			{ID: "dist", Stage: &domain.StageDef{Outputs: []string{"build/*.exe"}}},
		},
	}

	e := newTestEngine(t, p, cfg)
	_, err := e.Run(context.Background(), "dist")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(cfg.Workspace.DistDir, "app-1.0.exe"))
	assert.NoFileExists(t, filepath.Join(cfg.Workspace.DistDir, "app-0.9.exe"))
}

func TestRunStageExplicitDest(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Workspace.Root, "report.pdf"), []byte("doc"), 0o600))

	p := &domain.Pipeline{
		Name: "staging",
		Properties: []domain.PropertyDef{
			{Name: "release.dir", Value: "releases/v1"},
		},
		Tasks: []domain.TaskDef{
			{ID: "publish", Stage: &domain.StageDef{Outputs: []string{"*.pdf"}, Dest: "{release.dir}"}},
		},
	}

	e := newTestEngine(t, p, cfg)
	_, err := e.Run(context.Background(), "publish")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cfg.Workspace.Root, "releases", "v1", "report.pdf"))
}
