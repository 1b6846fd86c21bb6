// Package main provides the entry point for the rig CLI.
package main

import (
	"context"
	"os"

	"github.com/rigbuild/rig/internal/cli"
)

// Build information, set at build time via ldflags.
var (
	version = "" //nolint:gochecknoglobals // Set via ldflags
	commit  = "" //nolint:gochecknoglobals // Set via ldflags
	date    = "" //nolint:gochecknoglobals // Set via ldflags
)

func main() {
	ctx := context.Background()
	err := cli.Execute(ctx, cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})
	os.Exit(cli.ExitCodeForError(err))
}
