package session

import (
	"log/slog"
	"time"
)

// Option configures a Coordinator during construction.
type Option func(*Coordinator)

// WithLogger sets the logger used for swallowed errors. The default discards
// everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source, mainly for tests that assert on
// lastLogin values.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithAfterLogout sets a hook that runs after a successful logout, once the
// cleared session has been published. Host applications use it to navigate
// back to their login entry point.
func WithAfterLogout(fn func()) Option {
	return func(c *Coordinator) {
		c.afterLogout = fn
	}
}

// WithBufferSize sets the per-subscriber buffer of the published snapshot
// stream. The default of 8 absorbs short bursts of state changes.
func WithBufferSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}
