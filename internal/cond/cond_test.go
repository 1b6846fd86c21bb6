package cond

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigbuild/rig/internal/domain"
	rigerrors "github.com/rigbuild/rig/internal/errors"
)

func TestEvalOS(t *testing.T) {
	t.Parallel()

	e := New(t.TempDir(), WithPlatform("linux", "amd64"))

	tests := []struct {
		name string
		cond domain.ConditionDef
		want bool
	}{
		{"matching os", domain.ConditionDef{OS: "linux"}, true},
		{"case insensitive", domain.ConditionDef{OS: "Linux"}, true},
		{"non-matching os", domain.ConditionDef{OS: "windows"}, false},
		{"unix family covers linux", domain.ConditionDef{OS: "unix"}, true},
		{"mac alias does not match linux", domain.ConditionDef{OS: "mac"}, false},
		{"matching arch", domain.ConditionDef{Arch: "amd64"}, true},
		{"non-matching arch", domain.ConditionDef{Arch: "arm64"}, false},
		{"os and arch conjunction", domain.ConditionDef{OS: "linux", Arch: "arm64"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := e.Eval(&tt.cond)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalOSFamilies(t *testing.T) {
	t.Parallel()

	darwin := New(t.TempDir(), WithPlatform("darwin", "arm64"))
	windows := New(t.TempDir(), WithPlatform("windows", "amd64"))

	got, err := darwin.Eval(&domain.ConditionDef{OS: "mac"})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = darwin.Eval(&domain.ConditionDef{OS: "unix"})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = windows.Eval(&domain.ConditionDef{OS: "unix"})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvalExists(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	present := filepath.Join(root, "prereq.jar")
	require.NoError(t, os.WriteFile(present, []byte("jar"), 0o600))

	e := New(root)

	t.Run("relative path resolves against workspace", func(t *testing.T) {
		t.Parallel()
		got, err := e.Eval(&domain.ConditionDef{Exists: "prereq.jar"})
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("absolute path honored", func(t *testing.T) {
		t.Parallel()
		got, err := e.Eval(&domain.ConditionDef{Exists: present})
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("missing path is false", func(t *testing.T) {
		t.Parallel()
		got, err := e.Eval(&domain.ConditionDef{Exists: "missing.jar"})
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("no caching across evaluations", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		ev := New(dir)
		cond := &domain.ConditionDef{Exists: "late.bin"}

		got, err := ev.Eval(cond)
		require.NoError(t, err)
		require.False(t, got)

		require.NoError(t, os.WriteFile(filepath.Join(dir, "late.bin"), []byte("x"), 0o600))
		got, err = ev.Eval(cond)
		require.NoError(t, err)
		assert.True(t, got, "second evaluation must see the new file")
	})
}

func TestEvalComposites(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jar"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.jar"), nil, 0o600))

	e := New(root, WithPlatform("linux", "amd64"))

	t.Run("all of two existing files", func(t *testing.T) {
		t.Parallel()
		got, err := e.Eval(&domain.ConditionDef{All: []domain.ConditionDef{
			{Exists: "a.jar"},
			{Exists: "b.jar"},
		}})
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("all fails when one missing", func(t *testing.T) {
		t.Parallel()
		got, err := e.Eval(&domain.ConditionDef{All: []domain.ConditionDef{
			{Exists: "a.jar"},
			{Exists: "c.jar"},
		}})
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("any succeeds on first match", func(t *testing.T) {
		t.Parallel()
		got, err := e.Eval(&domain.ConditionDef{Any: []domain.ConditionDef{
			{OS: "windows"},
			{OS: "linux"},
		}})
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("not inverts", func(t *testing.T) {
		t.Parallel()
		got, err := e.Eval(&domain.ConditionDef{Not: &domain.ConditionDef{Exists: "c.jar"}})
		require.NoError(t, err)
		assert.True(t, got, "fetch-gating pattern: run only when artifact missing")
	})
}

func TestEvalErrors(t *testing.T) {
	t.Parallel()

	e := New(t.TempDir())

	_, err := e.Eval(nil)
	assert.ErrorIs(t, err, rigerrors.ErrConditionEvaluation)

	_, err = e.Eval(&domain.ConditionDef{})
	assert.ErrorIs(t, err, rigerrors.ErrConditionEvaluation)

	_, err = e.Eval(&domain.ConditionDef{All: []domain.ConditionDef{{}}})
	assert.ErrorIs(t, err, rigerrors.ErrConditionEvaluation, "errors propagate through composites")
}
