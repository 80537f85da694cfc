// Package grid holds the process-wide grid condition read by every negotiation.
package grid

import "sync/atomic"

// Context exposes whether the power grid is currently stressed. The flag is
// only changed by explicit operator action. Reads never block and observe
// either the value before or after a concurrent write.
type Context struct {
	stressed atomic.Bool
}

// NewContext returns a Context initialised to the given state.
func NewContext(stressed bool) *Context {
	c := &Context{}
	c.stressed.Store(stressed)
	return c
}

// Stressed returns the latest committed value.
func (c *Context) Stressed() bool { return c.stressed.Load() }

// SetStressed atomically replaces the flag and returns the previous value.
func (c *Context) SetStressed(v bool) bool { return c.stressed.Swap(v) }

// Status returns the flag as "stressed" or "stable".
func (c *Context) Status() string {
	if c.Stressed() {
		return "stressed"
	}
	return "stable"
}
