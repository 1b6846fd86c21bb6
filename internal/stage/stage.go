// Package stage performs the filesystem side effects of a build: fetching
// missing prerequisite binaries and staging finalized outputs.
//
// All operations are leaf-task material with idempotent semantics:
// EnsurePresent is a no-op when the artifact already exists, and Stage
// always leaves the destination reflecting exactly the latest build.
package stage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	rigerrors "github.com/rigbuild/rig/internal/errors"
)

// FetchFunc retrieves an artifact to the given path. Implementations are
// typically network retrievals; see HTTPFetcher.
type FetchFunc func(path string) error

// Stager performs artifact filesystem operations.
type Stager struct {
	logger zerolog.Logger
}

// New creates a Stager.
func New(logger zerolog.Logger) *Stager {
	return &Stager{logger: logger}
}

// EnsurePresent invokes fetch only when path does not exist. Safe to call
// every run: a satisfied path never triggers a second fetch. The fetch
// writes to a temporary sibling first so a failed retrieval never leaves a
// half-written artifact that would satisfy the next existence check.
func (s *Stager) EnsurePresent(path string, fetch FetchFunc) error {
	if _, err := os.Stat(path); err == nil {
		s.logger.Debug().Str("path", path).Msg("prerequisite already present")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return rigerrors.Wrapf(err, "creating directory for %s", path)
	}

	tmp := path + ".fetching"
	if err := fetch(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("fetching %s: %s: %w", path, err, rigerrors.ErrFetchFailed)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return rigerrors.Wrapf(err, "moving fetched artifact to %s", path)
	}

	s.logger.Info().Str("path", path).Msg("fetched missing prerequisite")
	return nil
}

// Stage deletes stale files at dest matching each output pattern's base
// name, then copies the fresh matches in. The destination ends up holding
// exactly the latest build's artifacts, never a mix of old and new.
func (s *Stager) Stage(outputs []string, dest string) error {
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return rigerrors.Wrapf(err, "creating destination %s", dest)
	}

	staged := 0
	for _, pattern := range outputs {
		if err := s.deleteStale(pattern, dest); err != nil {
			return err
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("bad output pattern %q: %s: %w", pattern, err, rigerrors.ErrStageFailed)
		}
		for _, src := range matches {
			target := filepath.Join(dest, filepath.Base(src))
			if err := copyFile(src, target); err != nil {
				return fmt.Errorf("staging %s: %s: %w", src, err, rigerrors.ErrStageFailed)
			}
			s.logger.Info().Str("src", src).Str("dest", target).Msg("staged artifact")
			staged++
		}
	}

	s.logger.Info().Int("count", staged).Str("dest", dest).Msg("staging complete")
	return nil
}

// deleteStale removes files at dest whose names match the pattern's base.
func (s *Stager) deleteStale(pattern, dest string) error {
	stale, err := filepath.Glob(filepath.Join(dest, filepath.Base(pattern)))
	if err != nil {
		return fmt.Errorf("bad output pattern %q: %s: %w", pattern, err, rigerrors.ErrStageFailed)
	}
	for _, old := range stale {
		if err := os.Remove(old); err != nil {
			return rigerrors.Wrapf(err, "removing stale artifact %s", old)
		}
		s.logger.Debug().Str("path", old).Msg("removed stale artifact")
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src) //#nosec G304 -- paths come from the pipeline document
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()) //#nosec G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
