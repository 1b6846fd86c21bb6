// Package ctxutil provides context helpers shared across the engine and CLI.
package ctxutil

import "context"

// Canceled reports whether the context is done, returning its error
// (Canceled or DeadlineExceeded) or nil. Long-running operations call it
// at entry so an interrupted build stops before starting new work.
//
// ctx.Err() already returns nil while the context is live, so no select
// is needed.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}
