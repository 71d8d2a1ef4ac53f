// Package lb implements the reverse-proxy handler: an ordered set of
// Backends, a Picker policy choosing which one serves each request, and the
// glue that forwards a request through the chosen Backend's Client.
package lb

import (
	"context"
	"fmt"
	"sync"

	"github.com/webforge/webforge/client"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
)

// Backend is the abstraction a Picker selects among: connect lazily, then
// send requests through the resulting Client.
type Backend interface {
	Connect(ctx context.Context) error
	SendRequest(ctx context.Context, req *request.Request) (*response.Response, error)
	Addr() string
}

// HTTPBackend is the plain-TCP Backend implementation. It lazily
// maintains a single Client, reconnecting if a previous one died.
// TLSServerName, when set, records the SNI hostname a TLS-wrapped
// transport would use; this core has no TLS implementation (Non-goal), so
// the field is inert here but present for a caller wiring a real shim.
type HTTPBackend struct {
	addr          string
	TLSServerName string

	mu     sync.Mutex
	client *client.Client
}

func NewHTTPBackend(addr string) *HTTPBackend {
	return &HTTPBackend{addr: addr}
}

func (b *HTTPBackend) Addr() string { return b.addr }

func (b *HTTPBackend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil && !b.client.Closed() {
		return nil
	}
	c, err := client.Dial(ctx, b.addr)
	if err != nil {
		return err
	}
	b.client = c
	return nil
}

func (b *HTTPBackend) SendRequest(ctx context.Context, req *request.Request) (*response.Response, error) {
	if err := b.Connect(ctx); err != nil {
		return nil, fmt.Errorf("lb: backend %s: %w", b.addr, err)
	}
	b.mu.Lock()
	c := b.client
	b.mu.Unlock()

	resp, err := c.SendRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lb: backend %s: %w", b.addr, err)
	}
	return resp, nil
}
