package server

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webforge/webforge/handler"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
	"github.com/webforge/webforge/router"
)

func startTestServer(t *testing.T, r *router.Router) (*Server, string) {
	t.Helper()
	s := New("127.0.0.1:0", r, nil)
	require.NoError(t, s.Start())
	<-s.Ready()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, s.Addr().String()
}

// E1: POST with content-length.
func TestServerPostWithContentLength(t *testing.T) {
	r := router.New()
	r.Handle("/", handler.HandlerFunc(func(req *request.Request, w *response.Writer) handler.Action {
		b, _ := req.Body().Bytes()
		resp := response.New(response.StatusOK)
		require.Equal(t, "hello world", string(b))
		require.Equal(t, "/", req.Path())
		require.Equal(t, request.POST, req.Method())
		_ = w.Send(resp)
		return handler.Done()
	}))
	_, addr := startTestServer(t, r)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 11\r\n\r\nhello world"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "200")
}

// E4: keep-alive max=2 allows exactly two requests before the connection
// closes.
func TestServerKeepAliveMax(t *testing.T) {
	r := router.New()
	r.Handle("/", handler.HandlerFunc(func(req *request.Request, w *response.Writer) handler.Action {
		_ = w.Send(response.New(response.StatusOK))
		return handler.Done()
	}))
	_, addr := startTestServer(t, r)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	reader := bufio.NewReader(conn)

	firstReq := "GET / HTTP/1.1\r\nHost: x\r\nKeep-Alive: max=2\r\n\r\n"
	plainReq := "GET / HTTP/1.1\r\nHost: x\r\n\r\n"
	for i := 0; i < 2; i++ {
		if i == 0 {
			_, err = conn.Write([]byte(firstReq))
		} else {
			_, err = conn.Write([]byte(plainReq))
		}
		require.NoError(t, err)
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		assert.Contains(t, line, "200")
		// drain headers
		for {
			l, _ := reader.ReadString('\n')
			if l == "\r\n" || l == "" {
				break
			}
		}
	}

	// Third request: connection should already be closed by the server.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	if err == nil {
		_, err = reader.ReadByte()
	}
	assert.Error(t, err)
}

// Two requests written in a single TCP write (pipelining, or just the
// kernel coalescing two small writes) must both be served, in order: the
// second request's bytes, read past the first message's end in the same
// reader.Read call, must not be dropped.
func TestServerPipelinedRequestsInOneWrite(t *testing.T) {
	r := router.New()
	r.Handle("/first", handler.HandlerFunc(func(req *request.Request, w *response.Writer) handler.Action {
		resp := response.New(response.StatusOK)
		resp.SetHeader("X-Which", "first")
		_ = w.Send(resp)
		return handler.Done()
	}))
	r.Handle("/second", handler.HandlerFunc(func(req *request.Request, w *response.Writer) handler.Action {
		resp := response.New(response.StatusOK)
		resp.SetHeader("X-Which", "second")
		_ = w.Send(resp)
		return handler.Done()
	}))
	_, addr := startTestServer(t, r)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	both := "GET /first HTTP/1.1\r\nHost: x\r\n\r\n" + "GET /second HTTP/1.1\r\nHost: x\r\n\r\n"
	_, err = conn.Write([]byte(both))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	for _, want := range []string{"first", "second"} {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		assert.Contains(t, line, "200")

		var which string
		for {
			l, rerr := reader.ReadString('\n')
			require.NoError(t, rerr)
			if l == "\r\n" {
				break
			}
			if strings.HasPrefix(l, "X-Which:") {
				which = strings.TrimSpace(strings.TrimPrefix(l, "X-Which:"))
			}
		}
		assert.Equal(t, want, which)
	}
}
