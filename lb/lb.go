package lb

import (
	"context"
	"sync"

	"github.com/webforge/webforge/handler"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
)

// Lb is the load-balancer handler: it owns an ordered, read-shared list of
// Backends, a Picker, and a map of header rewrites applied to the cloned
// request before it's forwarded (notably Host, to preserve backend
// virtual-host routing).
type Lb struct {
	mu       sync.RWMutex
	backends []Backend
	picker   Picker
	rewrites map[string]string
}

func New(backends []Backend, picker Picker, headerRewrites map[string]string) *Lb {
	bs := make([]Backend, len(backends))
	copy(bs, backends)
	rw := make(map[string]string, len(headerRewrites))
	for k, v := range headerRewrites {
		rw[k] = v
	}
	return &Lb{backends: bs, picker: picker, rewrites: rw}
}

// Backends returns the live backend slice under its guarding lock, so a
// caller implementing admin-driven mutation can take a write lock itself
// (spec §5: "mutation... requires write mode").
func (l *Lb) Backends() ([]Backend, *sync.RWMutex) {
	return l.backends, &l.mu
}

// AddBackend appends b under a write lock.
func (l *Lb) AddBackend(b Backend) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backends = append(l.backends, b)
}

func (l *Lb) Handle(r *request.Request, w *response.Writer) handler.Action {
	l.mu.RLock()
	backends := l.backends
	l.mu.RUnlock()

	idx, err := l.picker.Pick(len(backends))
	if err != nil {
		return handler.ErrFailed(err.Error())
	}

	clone := cloneRequest(r)
	for header, value := range l.rewrites {
		clone.Headers().Set(header, value)
	}

	resp, err := backends[idx].SendRequest(context.Background(), clone)
	if err != nil {
		return handler.ErrStatus(response.StatusBadGateway)
	}

	if err := w.Send(resp); err != nil {
		return handler.ErrFailed(err.Error())
	}
	return handler.Done()
}

// cloneRequest makes a shallow copy of r suitable for forwarding: same
// method/URL/version/body, but an independent Headers map so rewrites
// don't mutate the original inbound request.
func cloneRequest(r *request.Request) *request.Request {
	clone := request.New()
	clone.SetMethod(r.Method())
	clone.SetVersion(r.Version())
	clone.SetURL(r.URL())
	clone.SetBody(r.Body())
	for _, name := range r.Headers().Names() {
		for _, v := range r.Headers().GetAll(name) {
			clone.Headers().Add(name, v)
		}
	}
	return clone
}
