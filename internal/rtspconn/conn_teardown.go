package rtspconn

import "github.com/wangyl/rtspd/internal/rtspmsg"

// handleTeardown implements spec §4.3: a Source tears down its Mount, a
// Client drops its subscriptions. The actual release work is shared with
// stop() via cleanup, so a disconnect that never sends TEARDOWN still
// releases everything it owns.
func (c *Connection) handleTeardown(req *rtspmsg.Request) *rtspmsg.Response {
	c.cleanup()
	c.role = RoleUnknown
	c.state = StateInit
	return c.respond(rtspmsg.StatusOK, req)
}

// stop runs cleanup exactly once and closes the socket. It is called from
// Serve's deferred cleanup on every exit path: normal TEARDOWN, read
// error, and panic recovery.
func (c *Connection) stop() {
	c.stopOnce.Do(func() {
		c.cleanup()
		c.netConn.Close()
	})
}

// cleanup releases everything this connection owns. Closing a Listener
// twice, or unsubscribing from a Stream this connection never subscribed
// to, are both no-ops, so cleanup is safe to call from both
// handleTeardown and stop() without double-release bugs.
func (c *Connection) cleanup() {
	if c.sourceMount != nil {
		for idx, l := range c.listeners {
			l.Close()
			delete(c.listeners, idx)
		}
		for idx, conns := range c.pendingConns {
			conns[0].Close()
			conns[1].Close()
			delete(c.pendingConns, idx)
		}
		if m, ok := c.deps.Registry.Lookup(c.sourceMountPath); ok && m == c.sourceMount && m.SourceConn() == "" {
			// Announced but never recorded: the entry is still this
			// connection's own and has no recorded owner to match against.
			c.deps.Registry.Unmount(c.sourceMountPath)
		} else {
			c.deps.Registry.UnmountIfOwnedBy(c.sourceMountPath, c.id)
		}
		c.sourceMount = nil
	}

	if c.clientMount != nil {
		for idx, stream := range c.subscriptions {
			stream.Unsubscribe(c.id)
			delete(c.subscriptions, idx)
		}
		c.clientMount = nil
	}
}
