package batch

import "sync/atomic"

// Control holds the cooperative flags of one run.
type Control struct {
	paused  atomic.Bool
	stopped atomic.Bool
}

// Pause asks the run to hold before dispatching its next group.
func (c *Control) Pause() { c.paused.Store(true) }

// Resume clears a pause.
func (c *Control) Resume() { c.paused.Store(false) }

// Stop asks the run to finish early. A stopped run is also unpaused so the
// pause poll exits.
func (c *Control) Stop() {
	c.stopped.Store(true)
	c.paused.Store(false)
}

// Paused reports whether a pause is pending.
func (c *Control) Paused() bool { return c.paused.Load() }

// Stopped reports whether Stop was called.
func (c *Control) Stopped() bool { return c.stopped.Load() }
