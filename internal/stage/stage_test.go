package stage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rigerrors "github.com/rigbuild/rig/internal/errors"
)

func TestEnsurePresent(t *testing.T) {
	t.Parallel()

	t.Run("fetches when missing", func(t *testing.T) {
		t.Parallel()
		s := New(zerolog.Nop())
		path := filepath.Join(t.TempDir(), "jars", "ij.jar")

		calls := 0
		fetch := func(p string) error {
			calls++
			return os.WriteFile(p, []byte("jar-bytes"), 0o600)
		}

		require.NoError(t, s.EnsurePresent(path, fetch))
		assert.Equal(t, 1, calls)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "jar-bytes", string(data))
	})

	t.Run("idempotent: second call never fetches", func(t *testing.T) {
		t.Parallel()
		s := New(zerolog.Nop())
		path := filepath.Join(t.TempDir(), "ij.jar")

		calls := 0
		fetch := func(p string) error {
			calls++
			return os.WriteFile(p, []byte("x"), 0o600)
		}

		require.NoError(t, s.EnsurePresent(path, fetch))
		require.NoError(t, s.EnsurePresent(path, fetch))
		assert.Equal(t, 1, calls)
	})

	t.Run("failed fetch leaves nothing behind", func(t *testing.T) {
		t.Parallel()
		s := New(zerolog.Nop())
		path := filepath.Join(t.TempDir(), "ij.jar")

		err := s.EnsurePresent(path, func(string) error {
			return errors.New("network down")
		})
		require.ErrorIs(t, err, rigerrors.ErrFetchFailed)

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "no artifact after failed fetch")

		// Next run retries because the path is still missing.
		require.NoError(t, s.EnsurePresent(path, func(p string) error {
			return os.WriteFile(p, []byte("ok"), 0o600)
		}))
	})
}

func TestStage(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, path, content string) {
		t.Helper()
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	t.Run("copies matching outputs", func(t *testing.T) {
		t.Parallel()
		s := New(zerolog.Nop())
		src := t.TempDir()
		dest := filepath.Join(t.TempDir(), "dist")
		write(t, filepath.Join(src, "app-1.2.exe"), "new installer")

		require.NoError(t, s.Stage([]string{filepath.Join(src, "*.exe")}, dest))

		data, err := os.ReadFile(filepath.Join(dest, "app-1.2.exe"))
		require.NoError(t, err)
		assert.Equal(t, "new installer", string(data))
	})

	t.Run("removes stale artifacts first", func(t *testing.T) {
		t.Parallel()
		s := New(zerolog.Nop())
		src := t.TempDir()
		dest := t.TempDir()
		write(t, filepath.Join(src, "app-2.0.exe"), "fresh")
		write(t, filepath.Join(dest, "app-1.0.exe"), "stale")

		require.NoError(t, s.Stage([]string{filepath.Join(src, "*.exe")}, dest))

		entries, err := os.ReadDir(dest)
		require.NoError(t, err)
		require.Len(t, entries, 1, "destination holds exactly the latest build")
		assert.Equal(t, "app-2.0.exe", entries[0].Name())
	})

	t.Run("non-matching files at destination untouched", func(t *testing.T) {
		t.Parallel()
		s := New(zerolog.Nop())
		src := t.TempDir()
		dest := t.TempDir()
		write(t, filepath.Join(src, "app.exe"), "fresh")
		write(t, filepath.Join(dest, "README.txt"), "keep me")

		require.NoError(t, s.Stage([]string{filepath.Join(src, "*.exe")}, dest))

		_, err := os.Stat(filepath.Join(dest, "README.txt"))
		assert.NoError(t, err)
	})
}

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	t.Run("downloads to path", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("binary payload"))
		}))
		defer srv.Close()

		path := filepath.Join(t.TempDir(), "artifact.bin")
		fetch := HTTPFetcher(context.Background(), srv.URL)
		require.NoError(t, fetch(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "binary payload", string(data))
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		fetch := HTTPFetcher(context.Background(), srv.URL)
		err := fetch(filepath.Join(t.TempDir(), "artifact.bin"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}
