// Package signal provides graceful interruption handling for rig commands.
//
// An interrupted build cancels the run context; the engine terminates the
// in-flight subprocess and leaves unstarted tasks untouched.
//
// Import rules:
//   - CAN import: std lib only
//   - MUST NOT import: internal packages
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler cancels a context when SIGINT or SIGTERM is received.
type Handler struct {
	ctx         context.Context //nolint:containedctx // handler manages the context lifecycle
	cancel      context.CancelFunc
	interrupted chan struct{}
	done        chan struct{}
	once        sync.Once
	stopOnce    sync.Once
	sigChan     chan os.Signal
}

// NewHandler starts listening for SIGINT and SIGTERM. Callers run the
// build with Context() and call Stop() when done.
func NewHandler(parent context.Context) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ctx:         ctx,
		cancel:      cancel,
		interrupted: make(chan struct{}),
		done:        make(chan struct{}),
		// Buffered so signal.Notify never drops a signal while the
		// handler is busy.
		sigChan: make(chan os.Signal, 1),
	}

	signal.Notify(h.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go h.listen()

	return h
}

// Context returns the cancellable context for interruptible work.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Interrupted returns a channel that closes on the first received signal.
func (h *Handler) Interrupted() <-chan struct{} {
	return h.interrupted
}

// Stop stops listening and releases the handler's resources. Safe to call
// more than once.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigChan)
		close(h.done)
		h.cancel()
	})
}

func (h *Handler) handleSignal() {
	h.once.Do(func() {
		h.cancel()
		close(h.interrupted)
	})
}

// listen loops so repeated signals are drained; only the first one has
// effect.
func (h *Handler) listen() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.done:
			return
		case <-h.sigChan:
			h.handleSignal()
		}
	}
}
