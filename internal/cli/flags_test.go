package cli

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	rigerrors "github.com/rigbuild/rig/internal/errors"
)

func TestIsValidOutputFormat(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidOutputFormat(OutputText))
	assert.True(t, IsValidOutputFormat(OutputJSON))
	assert.False(t, IsValidOutputFormat("yaml"))
	assert.False(t, IsValidOutputFormat(""))
}

func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil is success", err: nil, want: ExitSuccess},
		{name: "build failure", err: rigerrors.ErrTaskFailed, want: ExitError},
		{name: "subprocess failure", err: rigerrors.ErrSubprocessFailure, want: ExitError},
		{name: "unknown target", err: rigerrors.ErrTaskNotFound, want: ExitInvalidInput},
		{name: "missing pipeline", err: rigerrors.ErrPipelineNotFound, want: ExitInvalidInput},
		{name: "invalid pipeline", err: rigerrors.ErrPipelineInvalid, want: ExitInvalidInput},
		{name: "invalid output format", err: rigerrors.ErrInvalidOutputFormat, want: ExitInvalidInput},
		{name: "cobra unknown flag", err: stderrors.New(`unknown flag: --bogus`), want: ExitInvalidInput},
		{name: "cobra unknown command", err: stderrors.New(`unknown command "frobnicate" for "rig"`), want: ExitInvalidInput},
		{name: "generic error", err: stderrors.New("disk on fire"), want: ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExitCodeForError(tt.err))
		})
	}
}
