// Package request models an HTTP/1.1 request as built up by the parser and
// consumed by routers and handlers.
package request

import (
	"net/url"
	"strings"

	"github.com/webforge/webforge/internal/body"
	"github.com/webforge/webforge/internal/cookie"
	"github.com/webforge/webforge/internal/headers"
)

type Method int

const (
	GET Method = iota
	HEAD
	POST
	PUT
	OPTIONS
	CONNECT
	DELETE
	TRACE
	PATCH
)

var methodNames = map[Method]string{
	GET:     "GET",
	HEAD:    "HEAD",
	POST:    "POST",
	PUT:     "PUT",
	OPTIONS: "OPTIONS",
	CONNECT: "CONNECT",
	DELETE:  "DELETE",
	TRACE:   "TRACE",
	PATCH:   "PATCH",
}

var namesToMethod = func() map[string]Method {
	m := make(map[string]Method, len(methodNames))
	for k, v := range methodNames {
		m[v] = k
	}
	return m
}()

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return "UNKNOWN"
}

// MethodFromString resolves a wire method token, reporting false if it is
// not one of the fixed set this core understands.
func MethodFromString(s string) (Method, bool) {
	m, ok := namesToMethod[s]
	return m, ok
}

// Request is the data model the parser fills in and handlers consume.
// The connection back-reference is a string key into the connection
// registry maintained by server.Server, not an owning pointer — Request
// values may outlive the goroutine writing to the registry, and the
// registry outlives any one request.
type Request struct {
	method      Method
	url         *url.URL
	version     string
	headers     *headers.Headers
	body        *body.Body
	handlerPath string
	connID      string
}

func New() *Request {
	return &Request{
		method:  GET,
		version: "HTTP/1.1",
		headers: headers.NewHeaders(),
	}
}

func (r *Request) Method() Method        { return r.method }
func (r *Request) SetMethod(m Method)    { r.method = m }
func (r *Request) Version() string       { return r.version }
func (r *Request) SetVersion(v string)   { r.version = v }
func (r *Request) Headers() *headers.Headers {
	return r.headers
}
func (r *Request) Body() *body.Body     { return r.body }
func (r *Request) SetBody(b *body.Body) { r.body = b }
func (r *Request) URL() *url.URL        { return r.url }
func (r *Request) SetURL(u *url.URL)    { r.url = u }

// SetTarget resolves target (the request-line's request-target) against
// base and stores the result.
func (r *Request) SetTarget(base *url.URL, target string) error {
	u, err := base.Parse(target)
	if err != nil {
		return err
	}
	r.url = u
	return nil
}

// SetHandlerPath records the path prefix a router consumed, so Path()
// returns the request's path with that prefix stripped.
func (r *Request) SetHandlerPath(prefix string) { r.handlerPath = prefix }
func (r *Request) HandlerPath() string          { return r.handlerPath }

func (r *Request) SetConnID(id string) { r.connID = id }
func (r *Request) ConnID() string      { return r.connID }

// AbsPath returns the full, unstripped URL path.
func (r *Request) AbsPath() string {
	if r.url == nil {
		return ""
	}
	return r.url.Path
}

// Path returns the URL path with the matched route prefix (if any) stripped.
func (r *Request) Path() string {
	abs := r.AbsPath()
	if r.handlerPath == "" {
		return abs
	}
	return strings.TrimPrefix(abs, r.handlerPath)
}

func (r *Request) Host() string {
	if h := r.headers.GetFirst("host"); h != "" {
		return h
	}
	if r.url != nil {
		return r.url.Host
	}
	return ""
}

// QueryParams returns the parsed query string as a flat key->first-value
// map. Repeated keys keep only the first occurrence.
func (r *Request) QueryParams() map[string]string {
	if r.url == nil {
		return nil
	}
	vals := r.url.Query()
	out := make(map[string]string, len(vals))
	for k, v := range vals {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// PostParams parses an application/x-www-form-urlencoded buffered body.
// The second return value is false when the request has no such
// Content-Type, so callers can tell "wrong content-type" apart from "form
// parsed but empty" without relying on a nil-map check.
func (r *Request) PostParams() (map[string]string, bool) {
	ct := r.headers.GetFirst("content-type")
	if !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		return nil, false
	}
	out := make(map[string]string)
	if r.body == nil || r.body.Mode() != body.Buffered {
		return out, true
	}
	raw, _ := r.body.Bytes()
	for _, part := range strings.Split(string(raw), "&") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 {
			out[kv[0]] = kv[1]
		}
	}
	return out, true
}

// Cookies parses the request's Cookie header into name->value pairs.
func (r *Request) Cookies() map[string]string {
	raw := r.headers.GetFirst("cookie")
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return out
}

// Serialize renders the request line, headers, and any buffered body back
// to wire form. Chunked bodies are not re-serialized (callers streaming a
// chunked request should write the body separately).
func (r *Request) Serialize() []byte {
	var out []byte
	out = append(out, methodNames[r.method]...)
	out = append(out, ' ')
	out = append(out, r.AbsPath()...)
	out = append(out, ' ')
	out = append(out, "HTTP/1.1"...)
	out = append(out, '\r', '\n')
	out = append(out, r.headers.Serialize()...)
	out = append(out, '\r', '\n')
	if r.body != nil && r.body.Mode() == body.Buffered {
		b, _ := r.body.Bytes()
		out = append(out, b...)
	}
	return out
}

// CookieJar parses the request's cookies into cookie.Cookie values, useful
// when flags (not just name/value) matter to a handler.
func (r *Request) CookieJar() []*cookie.Cookie {
	raw := r.headers.GetAll("cookie")
	out := make([]*cookie.Cookie, 0, len(raw))
	for _, line := range raw {
		c, err := cookie.Parse("Cookie: " + line)
		if err == nil {
			out = append(out, c)
		}
	}
	return out
}
