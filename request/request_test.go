package request

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webforge/webforge/internal/body"
)

func newTestRequest(t *testing.T, target string) *Request {
	t.Helper()
	r := New()
	base, err := url.Parse("http://example.test")
	require.NoError(t, err)
	require.NoError(t, r.SetTarget(base, target))
	return r
}

func TestQueryParams(t *testing.T) {
	r := newTestRequest(t, "/search?q=cats&limit=10")
	got := r.QueryParams()
	assert.Equal(t, "cats", got["q"])
	assert.Equal(t, "10", got["limit"])
}

func TestPostParamsWrongContentType(t *testing.T) {
	r := newTestRequest(t, "/submit")
	r.Headers().Set("Content-Type", "application/json")
	b := body.NewBuffered(2)
	require.NoError(t, b.AppendBody([]byte("{}")))
	r.SetBody(b)

	params, ok := r.PostParams()
	assert.False(t, ok)
	assert.Nil(t, params)
}

func TestPostParamsParsesForm(t *testing.T) {
	r := newTestRequest(t, "/submit")
	r.Headers().Set("Content-Type", "application/x-www-form-urlencoded")
	raw := []byte("a=1&b=2")
	b := body.NewBuffered(len(raw))
	require.NoError(t, b.AppendBody(raw))
	r.SetBody(b)

	params, ok := r.PostParams()
	require.True(t, ok)
	assert.Equal(t, "1", params["a"])
	assert.Equal(t, "2", params["b"])
}

func TestPostParamsNoBodyStillTrue(t *testing.T) {
	r := newTestRequest(t, "/submit")
	r.Headers().Set("Content-Type", "application/x-www-form-urlencoded")

	params, ok := r.PostParams()
	assert.True(t, ok)
	assert.Empty(t, params)
}

func TestCookies(t *testing.T) {
	r := newTestRequest(t, "/")
	r.Headers().Set("Cookie", "a=1; b=2")
	got := r.Cookies()
	assert.Equal(t, "1", got["a"])
	assert.Equal(t, "2", got["b"])
}

func TestHostFallsBackToURL(t *testing.T) {
	r := newTestRequest(t, "/")
	assert.Equal(t, "example.test", r.Host())

	r.Headers().Set("Host", "override.test")
	assert.Equal(t, "override.test", r.Host())
}

func TestPathStripsHandlerPrefix(t *testing.T) {
	r := newTestRequest(t, "/api/widgets/1")
	r.SetHandlerPath("/api")
	assert.Equal(t, "/widgets/1", r.Path())
	assert.Equal(t, "/api/widgets/1", r.AbsPath())
}
