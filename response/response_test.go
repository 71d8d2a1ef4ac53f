package response

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webforge/webforge/internal/body"
	"github.com/webforge/webforge/internal/cookie"
)

func TestWriterSendBuffered(t *testing.T) {
	var buf bytes.Buffer
	resp := New(StatusOK)
	b := body.NewBuffered(5)
	require.NoError(t, b.AppendBody([]byte("hello")))
	resp.SetBody(b)
	resp.SetHeader("content-type", "text/plain")

	require.NoError(t, NewWriter(&buf).Send(resp))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, out, "Content-Length: 5\r\n")
	assert.Contains(t, out, "Content-Type: text/plain\r\n")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\nhello"))
}

func TestWriterSendChunked(t *testing.T) {
	var buf bytes.Buffer
	resp := New(StatusOK)
	b := body.NewChunked()
	require.NoError(t, b.PushChunk([]byte("12345")))
	require.NoError(t, b.PushChunk([]byte("1234567890")))
	require.NoError(t, b.EndChunked())
	resp.SetBody(b)

	require.NoError(t, NewWriter(&buf).Send(resp))

	out := buf.String()
	assert.Contains(t, out, "Transfer-Encoding: chunked\r\n")
	assert.Contains(t, out, "5\r\n12345\r\n")
	assert.Contains(t, out, "a\r\n1234567890\r\n")
	assert.True(t, strings.HasSuffix(out, "0\r\n\r\n"))
}

func TestWriterSendSetsCookie(t *testing.T) {
	var buf bytes.Buffer
	resp := New(StatusOK)
	resp.AddCookie(cookie.New("session", "abc").PushFlag(cookie.HttpOnlyFlag()))

	require.NoError(t, NewWriter(&buf).Send(resp))
	assert.Contains(t, buf.String(), "Set-Cookie: session=abc; HttpOnly\r\n")
}
