package client

import (
	"context"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webforge/webforge/request"
)

func fakeBackend(t *testing.T, reply string) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		_, _ = conn.Read(buf) // drain the request
		_, _ = conn.Write([]byte(reply))
	}()
	return l.Addr().String()
}

func TestClientSendRequestBuffered(t *testing.T) {
	addr := fakeBackend(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhi")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer c.Close()

	req := request.New()
	base, _ := url.Parse("http://" + addr)
	require.NoError(t, req.SetTarget(base, "/"))

	resp, err := c.SendRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status().Code)
	b, err := resp.Body().Bytes()
	require.NoError(t, err)
	assert.Equal(t, "hi", string(b))
}

// E2: chunked response.
func TestClientSendRequestChunked(t *testing.T) {
	addr := fakeBackend(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\n12345\r\nA\r\n1234567890\r\n0\r\n\r\n")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer c.Close()

	req := request.New()
	base, _ := url.Parse("http://" + addr)
	require.NoError(t, req.SetTarget(base, "/"))

	resp, err := c.SendRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status().Code)
	full, err := resp.Body().FullConcatenated()
	require.NoError(t, err)
	assert.Equal(t, "123451234567890", string(full))
}
