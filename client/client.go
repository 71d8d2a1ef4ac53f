// Package client implements the outbound mirror of server: it parses a
// target address, opens a TCP socket, and sends a request.Request to get
// back a response.Response, running the send and receive halves
// concurrently over independent read/write halves of the same connection.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/webforge/webforge/internal/parser"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
)

var (
	ErrConnectionError = errors.New("client: connection error")
	ErrConnectionBroken = errors.New("client: connection broken")
	ErrSend             = errors.New("client: send error")
	ErrRecv              = errors.New("client: recv error")
	ErrResponse          = errors.New("client: response error")
	ErrInternal          = errors.New("client: internal error")
)

// Client owns one TCP connection (IPv4 or IPv6, chosen by net.Dial) to a
// single backend address and sends requests over it one at a time.
type Client struct {
	addr string
	conn net.Conn
	dead atomic.Bool
}

// Dial connects to addr ("host:port"); addr may resolve to either an IPv4
// or IPv6 address, net.Dial's normal resolution rules apply.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnectionError, addr, err)
	}
	return &Client{addr: addr, conn: conn}, nil
}

// Closed reports whether the underlying socket has observed EOF or error
// on a previous SendRequest.
func (c *Client) Closed() bool { return c.dead.Load() }

func (c *Client) Close() error {
	c.dead.Store(true)
	return c.conn.Close()
}

const readBufSize = 4096

// SendRequest writes req's wire form to the connection and concurrently
// reads the response, via a two-task send/receive pair joined by an
// errgroup (spec §4.5/§5: "sending and receiving run concurrently").
func (c *Client) SendRequest(ctx context.Context, req *request.Request) (*response.Response, error) {
	if c.dead.Load() {
		return nil, ErrConnectionBroken
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if _, err := c.conn.Write(req.Serialize()); err != nil {
			c.dead.Store(true)
			return fmt.Errorf("%w: %v", ErrSend, err)
		}
		return nil
	})

	var resp *response.Response
	g.Go(func() error {
		p := parser.NewResponseParser()
		buf := make([]byte, readBufSize)
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			n, err := c.conn.Read(buf)
			if n > 0 {
				if _, perr := p.ParseBuf(buf[:n]); perr != nil {
					return fmt.Errorf("%w: %v", ErrResponse, perr)
				}
				if p.IsComplete() {
					resp = p.Response()
					return nil
				}
			}
			if err != nil {
				c.dead.Store(true)
				if p.State() == parser.InBody || p.State() == parser.InHeaders || p.State() == parser.EndChunkedBody {
					if eerr := p.ParseEOF(); eerr != nil {
						return fmt.Errorf("%w: %v", ErrRecv, eerr)
					}
					resp = p.Response()
					return nil
				}
				return fmt.Errorf("%w: %v", ErrRecv, err)
			}
		}
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrInternal
	}
	return resp, nil
}
