package handlers

import (
	"bytes"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webforge/webforge/internal/parser"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
)

func newReq(t *testing.T, path string) (*request.Request, *bytes.Buffer, *response.Writer) {
	t.Helper()
	r := request.New()
	base, err := url.Parse("http://example.test")
	require.NoError(t, err)
	require.NoError(t, r.SetTarget(base, path))
	buf := &bytes.Buffer{}
	return r, buf, response.NewWriter(buf)
}

func TestStatusHandler(t *testing.T) {
	s := NewStatus(response.StatusOK, []byte("hi"), map[string]string{"X-Test": "1"})
	r, buf, w := newReq(t, "/")

	action := s.Handle(r, w)
	assert.True(t, action.IsDone())

	p := parser.NewResponseParser()
	_, perr := p.ParseBuf(buf.Bytes())
	require.NoError(t, perr)
	require.True(t, p.IsComplete())
	assert.Equal(t, 200, p.Response().Status().Code)
	assert.Equal(t, "1", p.Response().Headers().Get("X-Test"))
	content, err := p.Response().Body().Bytes()
	require.NoError(t, err)
	assert.Equal(t, "hi", string(content))
}

func TestRedirectHandler(t *testing.T) {
	rd := NewRedirect("/new-location")
	r, buf, w := newReq(t, "/old")

	action := rd.Handle(r, w)
	assert.True(t, action.IsDone())

	p := parser.NewResponseParser()
	_, perr := p.ParseBuf(buf.Bytes())
	require.NoError(t, perr)
	require.True(t, p.IsComplete())
	assert.Equal(t, 301, p.Response().Status().Code)
	assert.Equal(t, "/new-location", p.Response().Headers().Get("Location"))
}

func TestRewriterAppendsTrailingSlash(t *testing.T) {
	// E3: (.*)([^/]$) -> $1$2/ on /foo/bar redirects to /foo/bar/.
	rw, err := NewRewriter(`(.*)([^/]$)`, `$1$2/`)
	require.NoError(t, err)

	r, buf, w := newReq(t, "/foo/bar")
	action := rw.Handle(r, w)
	assert.True(t, action.IsDone())

	p := parser.NewResponseParser()
	_, perr := p.ParseBuf(buf.Bytes())
	require.NoError(t, perr)
	require.True(t, p.IsComplete())
	assert.Equal(t, 301, p.Response().Status().Code)
	assert.Equal(t, "/foo/bar/", p.Response().Headers().Get("Location"))

	// On /foo/bar/ already trailing-slashed, no-op: Next, nothing written.
	r2, buf2, w2 := newReq(t, "/foo/bar/")
	action2 := rw.Handle(r2, w2)
	assert.True(t, action2.IsNext())
	assert.Empty(t, buf2.Bytes())
}

func TestFileHandlerServesFileAndIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	f := NewFile(dir)

	r, buf, w := newReq(t, "/a.txt")
	action := f.Handle(r, w)
	assert.True(t, action.IsDone())
	p := parser.NewResponseParser()
	_, perr := p.ParseBuf(buf.Bytes())
	require.NoError(t, perr)
	require.True(t, p.IsComplete())
	content, err := p.Response().Body().Bytes()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
	assert.Equal(t, "text/plain", p.Response().Headers().Get("Content-Type"))

	r2, buf2, w2 := newReq(t, "/")
	action2 := f.Handle(r2, w2)
	assert.True(t, action2.IsDone())
	p2 := parser.NewResponseParser()
	_, perr2 := p2.ParseBuf(buf2.Bytes())
	require.NoError(t, perr2)
	require.True(t, p2.IsComplete())
	idx, _ := p2.Response().Body().Bytes()
	assert.Contains(t, string(idx), "sub/")
	assert.Contains(t, string(idx), "a.txt")
}

func TestFileHandlerRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	f := NewFile(dir)

	r, _, w := newReq(t, "/../../../etc/passwd")
	action := f.Handle(r, w)
	assert.True(t, action.IsError())
	status, ok := action.Status()
	require.True(t, ok)
	assert.Equal(t, 404, status.Code)
}
