// Package router matches an incoming request's method and path against a
// registered set of route patterns and yields the matched handler plus any
// extracted path parameters.
package router

import (
	"strings"
	"sync"

	"github.com/webforge/webforge/handler"
	"github.com/webforge/webforge/request"
)

// Params is the set of named path parameters extracted from a match, e.g.
// pattern "/files/:name" against "/files/a.txt" yields {"name": "a.txt"}.
type Params map[string]string

type segmentKind int

const (
	segLiteral segmentKind = iota
	segWildcard
	segNamed
)

type segment struct {
	kind segmentKind
	text string // literal text, or the captured name for segNamed
}

func parsePattern(pattern string) []segment {
	parts := splitPath(pattern)
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		switch {
		case p == "*":
			segs = append(segs, segment{kind: segWildcard})
		case strings.HasPrefix(p, ":") && len(p) > 1:
			segs = append(segs, segment{kind: segNamed, text: p[1:]})
		default:
			segs = append(segs, segment{kind: segLiteral, text: p})
		}
	}
	return segs
}

// Route is one registered (method-set, pattern) -> Handler mapping.
type Route struct {
	methods map[request.Method]bool // nil means "any method"
	pattern []segment
	handler handler.Handler
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// match attempts to match path against the route's pattern, returning the
// extracted params, the matched prefix (the subset of path the pattern
// consumed), and whether it matched at all.
func (rt *Route) match(path string) (Params, string, bool) {
	pathSegs := splitPath(path)
	pattern := rt.pattern

	if len(pathSegs) < len(pattern) {
		// Path shorter than pattern is not matched here; matchFlexible handles
		// the one case (a lone trailing "*") where it can still match.
		return nil, "", false
	}

	params := Params{}
	for i, ps := range pattern {
		switch ps.kind {
		case segWildcard:
			// A wildcard in any position but the last still only consumes one
			// segment; a pattern ending in "*" additionally may consume a
			// shorter-than-pattern path (handled below), but mid-pattern it
			// behaves like any other single-segment matcher.
		case segNamed:
			params[ps.text] = pathSegs[i]
		case segLiteral:
			if pathSegs[i] != ps.text {
				return nil, "", false
			}
		}
	}

	consumed := len(pattern)
	if consumed == 0 {
		// The root pattern "/" consumes no segments, so nothing is stripped.
		return params, "", true
	}
	matchedSegs := pathSegs[:consumed]
	prefix := "/" + strings.Join(matchedSegs, "/")
	return params, prefix, true
}

// Router holds registered routes in insertion order and a default route for
// unmatched requests. Registration happens at setup time; lookups happen
// concurrently from connection goroutines, so the route table is guarded by
// an RWMutex even though in practice routes are registered once up front.
type Router struct {
	mu      sync.RWMutex
	routes  []*Route
	dflt    handler.Handler
}

func New() *Router {
	return &Router{}
}

// Handle registers pattern, optionally restricted to methods (no methods
// means any method matches), against h. The first registered route whose
// pattern matches wins, so more specific routes should be registered first.
func (r *Router) Handle(pattern string, h handler.Handler, methods ...request.Method) {
	var methodSet map[request.Method]bool
	if len(methods) > 0 {
		methodSet = make(map[request.Method]bool, len(methods))
		for _, m := range methods {
			methodSet[m] = true
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, &Route{
		methods: methodSet,
		pattern: parsePattern(pattern),
		handler: h,
	})
}

// Default registers the handler invoked when no route matches, typically a
// 404 producer.
func (r *Router) Default(h handler.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dflt = h
}

// Match returns the handler registered for req's method and path, along
// with the matched prefix and extracted params. If nothing matches, it
// returns the default handler (possibly nil if none was registered) with ok
// false.
func (r *Router) Match(req *request.Request) (h handler.Handler, prefix string, params Params, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path := req.Path()
	// A lone trailing wildcard may absorb a path shorter than the pattern
	// (spec §4.2: "path shorter than pattern: match only if the remaining
	// pattern is exactly a single *"); every other case requires splitPath
	// lengths to line up inside match().
	for _, rt := range r.routes {
		if rt.methods != nil && !rt.methods[req.Method()] {
			continue
		}
		if p, prefix, matched := rt.matchFlexible(path); matched {
			return rt.handler, prefix, p, true
		}
	}
	return r.dflt, "", nil, false
}

// matchFlexible handles both the lockstep case (match) and the
// shorter-path-absorbed-by-trailing-wildcard case the spec calls out
// separately.
func (rt *Route) matchFlexible(path string) (Params, string, bool) {
	pathSegs := splitPath(path)
	if len(pathSegs) >= len(rt.pattern) {
		return rt.match(path)
	}
	// path shorter than pattern: only ok if the remaining (unconsumed)
	// pattern is exactly one trailing "*".
	if len(rt.pattern) != len(pathSegs)+1 {
		return nil, "", false
	}
	last := rt.pattern[len(rt.pattern)-1]
	if last.kind != segWildcard {
		return nil, "", false
	}
	params := Params{}
	for i := 0; i < len(pathSegs); i++ {
		switch rt.pattern[i].kind {
		case segNamed:
			params[rt.pattern[i].text] = pathSegs[i]
		case segLiteral:
			if pathSegs[i] != rt.pattern[i].text {
				return nil, "", false
			}
		case segWildcard:
		}
	}
	prefix := "/" + strings.Join(pathSegs, "/")
	return params, prefix, true
}
