package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/webforge/webforge/handler"
	"github.com/webforge/webforge/internal/body"
	"github.com/webforge/webforge/internal/parser"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
	"github.com/webforge/webforge/router"
)

// readBufSize is the per-read chunk size fed to the parser; it has no
// bearing on correctness (the parser tolerates any split) and only bounds
// how much unparsed data one syscall can bring in at a time.
const readBufSize = 4096

// Server owns the listening socket, the connection registry, and the
// accept loop. It runs the Parser->Router->Pipeline loop for every
// accepted connection and enforces keep-alive policy.
type Server struct {
	addr   string
	router *router.Router
	logger *logrus.Logger

	tracker *connTracker

	mu       sync.Mutex
	listener net.Listener

	readyCh     chan struct{}
	shutdownCh  chan struct{}
	group       *errgroup.Group

	defaultKeepaliveTimeout time.Duration
}

// New returns a Server that will listen on addr and dispatch through r.
func New(addr string, r *router.Router, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		addr:                    addr,
		router:                  r,
		logger:                  logger,
		tracker:                 newConnTracker(),
		readyCh:                 make(chan struct{}),
		shutdownCh:              make(chan struct{}),
		defaultKeepaliveTimeout: 75 * time.Second,
	}
}

// Ready returns a channel closed once the listener is bound and the accept
// loop is running.
func (s *Server) Ready() <-chan struct{} { return s.readyCh }

// Start binds the listener and runs the accept loop in the background. It
// returns once the listener is bound (or binding failed).
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	g, _ := errgroup.WithContext(context.Background())
	s.group = g

	close(s.readyCh)
	g.Go(func() error {
		s.acceptLoop()
		return nil
	})
	return nil
}

// Addr returns the bound listener's address. Valid only after Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdownCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.WithError(err).Warn("server: transient accept error")
			continue
		}

		s.group.Go(func() error {
			s.handleConn(conn)
			return nil
		})
	}
}

// Shutdown stops accepting new connections and waits (bounded by ctx) for
// in-flight connections to finish naturally or hit their keep-alive
// timeout, per the cooperative-shutdown contract in spec §4.4/§5.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.shutdownCh)

	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		_ = l.Close()
	}

	done := make(chan error, 1)
	go func() { done <- s.group.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	id := uuid.NewString()
	c := newConnection(id, conn)
	s.tracker.add(c)
	defer func() {
		c.markClosed()
		s.tracker.remove(id)
	}()

	reader := bufio.NewReaderSize(conn, readBufSize)
	baseURL := s.requestBaseURL(conn)

	// pending holds bytes already read off the wire that belong to the next
	// request but were not consumed by the one just served, because a
	// single Read returned a pipelined client's next message tacked onto
	// the tail of the current one. It is threaded into the next
	// serveOneRequest call instead of being dropped.
	var pending []byte

	for {
		leftover, exhausted, err := s.serveOneRequest(conn, reader, c, baseURL, pending)
		pending = leftover
		if err != nil || exhausted {
			return
		}

		if c.CloseRequested() {
			return
		}

		if len(pending) > 0 {
			continue
		}

		timeout := s.defaultKeepaliveTimeout
		if t, ok := c.KeepaliveTimeout(); ok {
			timeout = t
		}
		if timeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(timeout))
		}
		if _, err := reader.Peek(1); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Time{})
	}
}

func (s *Server) requestBaseURL(conn net.Conn) *url.URL {
	host := "localhost"
	if conn.LocalAddr() != nil {
		host = conn.LocalAddr().String()
	}
	u, err := url.Parse("http://" + host)
	if err != nil {
		u, _ = url.Parse("http://localhost")
	}
	return u
}

// serveOneRequest reads, parses, routes, and dispatches exactly one
// request on conn, then applies the resulting Connection header policy.
// initial is unconsumed bytes carried over from the previous request's
// read (already belonging to this one); leftover is the same concept
// handed back for whatever request comes after this one. exhausted
// reports whether the connection's keep-alive request budget has now run
// out and the caller should stop looping.
func (s *Server) serveOneRequest(conn net.Conn, reader *bufio.Reader, c *Connection, baseURL *url.URL, initial []byte) (leftover []byte, exhausted bool, err error) {
	p := parser.NewRequestParser(baseURL)
	readBuf := make([]byte, readBufSize)

	var pipelineWG sync.WaitGroup
	headersApplied := false
	dispatched := false

	dispatch := func() {
		req := p.Request()
		req.SetConnID(c.ID())
		s.runPipeline(req, response.NewWriter(conn))
	}

	// feed hands chunk to the parser and, if the message completes inside
	// it, returns the trailing unconsumed bytes (the start of whatever
	// follows on the wire) so the caller can carry them forward instead of
	// discarding them.
	feed := func(chunk []byte) (rest []byte, done bool, ferr error) {
		consumed, perr := p.ParseBuf(chunk)
		if perr != nil {
			return nil, false, perr
		}
		if p.Ready() && !headersApplied {
			headersApplied = true
			s.applyConnectionHeaders(p.Request(), c)
			if req := p.Request(); req.Body() != nil && req.Body().Mode() == body.Chunked {
				dispatched = true
				pipelineWG.Add(1)
				go func() {
					defer pipelineWG.Done()
					dispatch()
				}()
			}
		}
		if p.IsComplete() {
			rest = append([]byte(nil), chunk[consumed:]...)
			return rest, true, nil
		}
		return nil, false, nil
	}

	complete := false
	if len(initial) > 0 {
		rest, done, ferr := feed(initial)
		if ferr != nil {
			s.writeParseError(conn, ferr)
			return nil, true, ferr
		}
		if done {
			leftover = rest
			complete = true
		}
	}

	for !complete {
		n, readErr := reader.Read(readBuf)
		if n > 0 {
			rest, done, ferr := feed(readBuf[:n])
			if ferr != nil {
				s.writeParseError(conn, ferr)
				return nil, true, ferr
			}
			if done {
				leftover = rest
				complete = true
			}
		}
		if !complete && readErr != nil {
			if p.State() == parser.InBody || p.State() == parser.InHeaders || p.State() == parser.EndChunkedBody {
				if eerr := p.ParseEOF(); eerr != nil {
					return nil, true, eerr
				}
				complete = true
			} else {
				return nil, true, readErr
			}
		}
	}

	if !dispatched {
		dispatch()
	} else {
		pipelineWG.Wait()
	}

	if c.decrementMax() {
		return leftover, true, nil
	}
	return leftover, false, nil
}

func (s *Server) applyConnectionHeaders(req *request.Request, c *Connection) {
	h := req.Headers()
	if strings.EqualFold(strings.TrimSpace(h.GetFirst("connection")), "close") {
		c.SetCloseAfterRequest()
	}
	if ka := h.GetFirst("keep-alive"); ka != "" {
		var timeout *time.Duration
		var max *int
		for _, part := range strings.Split(ka, ",") {
			kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
			if len(kv) != 2 {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(kv[0]))
			val := strings.TrimSpace(kv[1])
			switch key {
			case "timeout":
				if n, err := strconv.Atoi(val); err == nil {
					d := time.Duration(n) * time.Second
					timeout = &d
				}
			case "max":
				if n, err := strconv.Atoi(val); err == nil {
					max = &n
				}
			}
		}
		c.SetKeepalive(timeout, max)
	}
}

func (s *Server) runPipeline(req *request.Request, w *response.Writer) {
	h, prefix, _, matched := s.router.Match(req)
	req.SetHandlerPath(prefix)

	if !matched && h == nil {
		_ = w.Send(response.New(response.StatusNotFound))
		return
	}

	action := h.Handle(req, w)
	if status, ok := action.Status(); ok {
		_ = w.Send(response.New(status))
		return
	}
	if msg, ok := action.FailMsg(); ok {
		s.logger.WithField("err", msg).Error("server: handler failed")
		resp := response.New(response.StatusInternalServerError)
		b := body.NewBuffered(len(msg))
		_ = b.AppendBody([]byte(msg))
		resp.SetBody(b)
		_ = w.Send(resp)
		return
	}
}

func (s *Server) writeParseError(conn net.Conn, err error) {
	s.logger.WithError(err).Warn("server: parse error, closing connection")
	w := response.NewWriter(conn)
	resp := response.New(response.StatusBadRequest)
	msg := []byte(fmt.Sprintf("bad request: %s", err))
	b := body.NewBuffered(len(msg))
	_ = b.AppendBody(msg)
	resp.SetBody(b)
	resp.SetHeader("Connection", "close")
	_ = w.Send(resp)
}

// ConnectionByID exposes the connection registry to handlers that need to
// inspect keep-alive fields via a Request's back-reference.
func (s *Server) ConnectionByID(id string) (*Connection, bool) {
	return s.tracker.Lookup(id)
}
