// Package server owns the listening socket, the parser->router->pipeline
// loop for each accepted connection, keep-alive policy, and cooperative
// shutdown.
package server

import (
	"net"
	"sync"
	"time"
)

// Connection is the per-connection record the spec calls for: keep-alive
// timeout/max-request limits, a closed flag, and the read/write halves.
// It is shared (by pointer) between the connection's own goroutine and any
// handler that inspects it via a Request's back-reference, so every field
// access goes through the RWMutex — "keep-alive header processing takes a
// write lock briefly, handlers take a read lock" (spec §5).
type Connection struct {
	mu sync.RWMutex

	id   string
	conn net.Conn

	keepaliveTimeout *time.Duration
	keepaliveMax     *int
	closeRequested   bool
	closed           bool
}

func newConnection(id string, conn net.Conn) *Connection {
	return &Connection{id: id, conn: conn}
}

func (c *Connection) ID() string { return c.id }

// KeepaliveTimeout returns the configured idle timeout, if any was set by a
// Keep-Alive request header.
func (c *Connection) KeepaliveTimeout() (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.keepaliveTimeout == nil {
		return 0, false
	}
	return *c.keepaliveTimeout, true
}

// KeepaliveMax returns the remaining request budget, if any was set.
func (c *Connection) KeepaliveMax() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.keepaliveMax == nil {
		return 0, false
	}
	return *c.keepaliveMax, true
}

func (c *Connection) CloseRequested() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closeRequested
}

func (c *Connection) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// SetCloseAfterRequest marks the connection to be closed once the
// in-flight request finishes, per a "Connection: close" header.
func (c *Connection) SetCloseAfterRequest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeRequested = true
}

// SetKeepalive installs the timeout/max advertised by a Keep-Alive request
// header. Either may be absent (nil) if the header omitted that field.
func (c *Connection) SetKeepalive(timeout *time.Duration, max *int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timeout != nil {
		c.keepaliveTimeout = timeout
	}
	if max != nil {
		c.keepaliveMax = max
	}
}

// decrementMax consumes one request from the keep-alive budget, reporting
// whether the connection has now exhausted it.
func (c *Connection) decrementMax() (exhausted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keepaliveMax == nil {
		return false
	}
	*c.keepaliveMax--
	return *c.keepaliveMax <= 0
}

func (c *Connection) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
