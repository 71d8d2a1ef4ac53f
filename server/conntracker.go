package server

import "sync"

// connTracker is the connection registry a Request's back-reference looks
// up into. It exists so the Request never holds an owning pointer to its
// Connection: the Connection outlives the Request, and the Request may
// outlive the handler call if one captures it, so the only safe shared
// handle is an ID plus a registry lookup (grounded on the original
// project's own ConnTracker/ConnId design, not a Rust-specific workaround).
type connTracker struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

func newConnTracker() *connTracker {
	return &connTracker{conns: make(map[string]*Connection)}
}

func (t *connTracker) add(c *Connection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[c.id] = c
}

func (t *connTracker) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, id)
}

func (t *connTracker) get(id string) (*Connection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.conns[id]
	return c, ok
}

// Lookup resolves a Request's ConnID back to its Connection record. Returns
// ok false once the connection has been torn down (e.g. a handler captured
// the request past the connection's lifetime).
func (t *connTracker) Lookup(id string) (*Connection, bool) {
	return t.get(id)
}
