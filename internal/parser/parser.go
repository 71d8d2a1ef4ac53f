// Package parser implements the incremental HTTP/1.1 message parser: a
// byte-driven state machine that builds a request.Request or a
// response.Response as bytes arrive, in arbitrarily small chunks.
package parser

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/webforge/webforge/internal/body"
	"github.com/webforge/webforge/internal/headers"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
)

type State int

const (
	StartRequest State = iota
	StartResponse
	InMethod
	InStatusLine
	InHeaders
	InBody
	InChunkedBodySize
	InChunkedBodyContent
	InChunkComplete
	EndChunkedBody
	ParseComplete
)

var stateNames = map[State]string{
	StartRequest:         "StartRequest",
	StartResponse:        "StartResponse",
	InMethod:             "InMethod",
	InStatusLine:         "InStatusLine",
	InHeaders:            "InHeaders",
	InBody:               "InBody",
	InChunkedBodySize:    "InChunkedBodySize",
	InChunkedBodyContent: "InChunkedBodyContent",
	InChunkComplete:      "InChunkComplete",
	EndChunkedBody:       "EndChunkedBody",
	ParseComplete:        "ParseComplete",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "Unknown"
}

// permittedFrom maps a target state to the set of states it may be entered
// from. Any transition not listed here fails with InvalidStateTransition.
var permittedFrom = map[State][]State{
	InMethod:             {StartRequest},
	InStatusLine:         {StartResponse},
	InHeaders:            {InMethod, InStatusLine},
	InBody:               {InHeaders},
	InChunkedBodySize:    {InHeaders, InChunkComplete},
	InChunkedBodyContent: {InChunkedBodySize},
	InChunkComplete:      {InChunkedBodyContent},
	EndChunkedBody:       {InChunkComplete, InChunkedBodySize},
	ParseComplete:        {EndChunkedBody, InBody, InHeaders},
}

type InvalidStateTransitionError struct {
	From, To State
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("parser: invalid state transition: %s -> %s", e.From, e.To)
}

var (
	ErrUnexpectedState     = fmt.Errorf("parser: unexpected state")
	ErrUnexpectedEOF       = fmt.Errorf("parser: unexpected eof")
	ErrInvalidChunkSize    = fmt.Errorf("parser: invalid chunk size")
	ErrNonNumericChunkSize = fmt.Errorf("parser: non-numeric chunk size")
)

type BadMethodLineError struct{ Line string }

func (e *BadMethodLineError) Error() string { return "parser: bad method line: " + e.Line }

type BadHeaderLineError struct{ Line string }

func (e *BadHeaderLineError) Error() string { return "parser: bad header line: " + e.Line }

type BadStatusLineError struct{ Line string }

func (e *BadStatusLineError) Error() string { return "parser: bad status line: " + e.Line }

type InvalidMethodError struct{ Method string }

func (e *InvalidMethodError) Error() string { return "parser: invalid method: " + e.Method }

type InvalidPathError struct{ Path string }

func (e *InvalidPathError) Error() string { return "parser: invalid path: " + e.Path }

type BodyError struct{ Msg string }

func (e *BodyError) Error() string { return "parser: body error: " + e.Msg }

// Parser drives a Message (Request xor Response) from raw bytes fed via
// ParseBuf. Line-oriented states accumulate into buf; ParseBuf is called
// repeatedly as more bytes arrive, possibly split at any byte boundary.
type Parser struct {
	baseURL *url.URL
	state   State

	isRequest bool
	req       *request.Request
	resp      *response.Response

	buf      []byte
	chunkBuf []byte

	expectedChunkSize int
	chunkPos          int

	ready bool
}

// NewRequestParser returns a Parser that builds a request.Request, resolving
// request-target tokens against baseURL.
func NewRequestParser(baseURL *url.URL) *Parser {
	return &Parser{
		baseURL:   baseURL,
		state:     StartRequest,
		isRequest: true,
		req:       request.New(),
		buf:       make([]byte, 0, 256),
	}
}

// NewResponseParser returns a Parser that builds a response.Response.
func NewResponseParser() *Parser {
	return &Parser{
		state: StartResponse,
		resp:  response.New(response.StatusOK),
		buf:   make([]byte, 0, 256),
	}
}

func (p *Parser) Ready() bool        { return p.ready }
func (p *Parser) IsComplete() bool   { return p.state == ParseComplete }
func (p *Parser) State() State       { return p.state }
func (p *Parser) Request() *request.Request   { return p.req }
func (p *Parser) Response() *response.Response { return p.resp }

func (p *Parser) headers() *headers.Headers {
	if p.isRequest {
		return p.req.Headers()
	}
	return p.resp.Headers()
}

func (p *Parser) setBody(b *body.Body) {
	if p.isRequest {
		p.req.SetBody(b)
	} else {
		p.resp.SetBody(b)
	}
}

func (p *Parser) body() *body.Body {
	if p.isRequest {
		return p.req.Body()
	}
	return p.resp.Body()
}

func (p *Parser) updateState(target State) error {
	allowed := permittedFrom[target]
	ok := false
	for _, s := range allowed {
		if s == p.state {
			ok = true
			break
		}
	}
	if !ok {
		return &InvalidStateTransitionError{From: p.state, To: target}
	}
	p.state = target
	return nil
}

func (p *Parser) commitMethod() error {
	line := string(p.buf)
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return &BadMethodLineError{Line: line}
	}

	method, ok := request.MethodFromString(parts[0])
	if !ok {
		return &InvalidMethodError{Method: parts[0]}
	}
	p.req.SetMethod(method)

	if p.baseURL == nil {
		return &InvalidPathError{Path: parts[1]}
	}
	if err := p.req.SetTarget(p.baseURL, parts[1]); err != nil {
		return &InvalidPathError{Path: parts[1]}
	}
	p.req.SetVersion(parts[2])

	p.buf = p.buf[:0]
	return nil
}

func (p *Parser) commitStatusLine() error {
	line := string(p.buf)
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return &BadStatusLineError{Line: line}
	}

	code, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 16)
	if err != nil {
		return &BadStatusLineError{Line: line}
	}

	p.resp.SetStatus(response.Status{Code: int(code), Text: strings.TrimSpace(parts[2])})
	p.buf = p.buf[:0]
	return nil
}

// commitHeader hands one accumulated header line (InHeaders accumulates up
// to, but not including, the '\n' that triggers this call; a bare '\n' line
// ending leaves no trailing '\r') to headers.Headers.Parse, so the same
// colon/trim/token validation backs both the incremental wire parser and
// anything parsing a whole header block at once.
func (p *Parser) commitHeader() error {
	line := p.buf
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	defer func() { p.buf = p.buf[:0] }()

	data := make([]byte, 0, len(line)+2)
	data = append(data, line...)
	data = append(data, '\r', '\n')

	h := p.headers()
	_, blankLine, err := h.Parse(data)
	if err != nil {
		return &BadHeaderLineError{Line: string(line)}
	}
	if !blankLine {
		return nil
	}

	// Blank line ends the header block and selects body mode.
	hasBody := false
	newState := InBody

	if cl := h.GetFirst("content-length"); cl != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(cl)); err == nil && n != 0 {
			hasBody = true
			p.setBody(body.NewBuffered(n))
		}
	}

	if h.HasToken("transfer-encoding", "chunked") {
		p.setBody(body.NewChunked())
		newState = InChunkedBodySize
		hasBody = true
	}

	p.ready = true

	if hasBody {
		return p.updateState(newState)
	}
	return p.parseEOF()
}

func (p *Parser) commitChunkSize() error {
	n, err := strconv.ParseUint(strings.TrimSpace(string(p.buf)), 16, 32)
	if err != nil {
		return ErrNonNumericChunkSize
	}
	p.expectedChunkSize = int(n)
	p.chunkPos = 0
	p.buf = p.buf[:0]
	return nil
}

func (p *Parser) commitChunk() {
	chunk := make([]byte, len(p.chunkBuf))
	copy(chunk, p.chunkBuf)
	_ = p.body().PushChunk(chunk)
	p.chunkBuf = p.chunkBuf[:0]
}

func (p *Parser) commitLine() error {
	switch p.state {
	case StartRequest, StartResponse:
		return nil
	case InMethod:
		if err := p.commitMethod(); err != nil {
			return err
		}
		return p.updateState(InHeaders)
	case InStatusLine:
		if err := p.commitStatusLine(); err != nil {
			return err
		}
		return p.updateState(InHeaders)
	case InHeaders:
		return p.commitHeader()
	default:
		return ErrUnexpectedState
	}
}

func (p *Parser) consume(c byte) { p.buf = append(p.buf, c) }

func (p *Parser) consumeChunk(c byte) { p.chunkBuf = append(p.chunkBuf, c) }

func (p *Parser) consumeBody(b []byte) (bool, error) {
	body := p.body()
	if body == nil {
		return false, &BodyError{Msg: "no body allocated"}
	}
	if err := body.AppendBody(b); err != nil {
		return false, &BodyError{Msg: err.Error()}
	}
	return body.FullContentsLoaded(), nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}

// ParseBuf feeds buf into the state machine. It may be called any number of
// times with arbitrarily sized (including single-byte) slices; the parser
// carries partial line/chunk state between calls.
//
// It returns consumed, the count of leading bytes of buf that belong to
// this message. Once the message reaches ParseComplete mid-buffer (a
// pipelined request/response sharing one read with whatever comes next),
// ParseBuf stops there instead of scanning the rest: buf[consumed:] was
// never looked at and the caller must carry it into the next message's
// parser rather than drop it, mirroring the teacher's RequestFromReader
// shifting leftover bytes to the front of its buffer for the next parse.
func (p *Parser) ParseBuf(buf []byte) (consumed int, err error) {
	if p.state == ParseComplete {
		return 0, nil
	}

	// Fast path: already draining a buffered body, skip per-byte dispatch.
	if p.state == InBody {
		take := buf
		if remaining := p.body().Remaining(); len(take) > remaining {
			take = take[:remaining]
		}
		done, berr := p.consumeBody(take)
		if berr != nil {
			return len(take), berr
		}
		if done {
			if eerr := p.parseEOF(); eerr != nil {
				return len(take), eerr
			}
		}
		return len(take), nil
	}

	for i, c := range buf {
		switch p.state {
		case StartRequest:
			if !isSpace(c) {
				p.consume(c)
				if err := p.updateState(InMethod); err != nil {
					return i, err
				}
			}
		case StartResponse:
			if !isSpace(c) {
				p.consume(c)
				if err := p.updateState(InStatusLine); err != nil {
					return i, err
				}
			}
		case InMethod, InHeaders, InStatusLine:
			if c == '\n' {
				if err := p.commitLine(); err != nil {
					return i, err
				}
			} else {
				p.consume(c)
			}
		case InChunkedBodySize:
			if c == '\n' {
				if err := p.commitChunkSize(); err != nil {
					return i, err
				}
				if p.expectedChunkSize == 0 {
					if err := p.updateState(EndChunkedBody); err != nil {
						return i, err
					}
				} else if err := p.updateState(InChunkedBodyContent); err != nil {
					return i, err
				}
			} else if isHexDigit(c) {
				p.consume(c)
			}
		case InChunkedBodyContent:
			p.consumeChunk(c)
			p.chunkPos++
			if p.chunkPos == p.expectedChunkSize {
				if err := p.updateState(InChunkComplete); err != nil {
					return i, err
				}
				p.commitChunk()
				p.buf = p.buf[:0]
			}
		case InChunkComplete:
			if c == '\n' {
				if err := p.updateState(InChunkedBodySize); err != nil {
					return i, err
				}
			}
		case InBody:
			done, berr := p.consumeBody([]byte{c})
			if berr != nil {
				return i, berr
			}
			if done {
				if eerr := p.parseEOF(); eerr != nil {
					return i, eerr
				}
			}
		case EndChunkedBody:
			if c == '\n' {
				if err := p.body().EndChunked(); err != nil {
					return i, &BodyError{Msg: err.Error()}
				}
				_ = p.parseEOF()
			}
		case ParseComplete:
			// unreachable: the loop returns as soon as this state is entered below
		}

		if p.state == ParseComplete {
			return i + 1, nil
		}
	}

	return len(buf), nil
}

// ParseEOF forces completion from a state where EOF is a legitimate
// terminator (InBody with an unbounded body, InHeaders with no body at all,
// or EndChunkedBody just before its final newline). Any other state at EOF
// is UnexpectedEOF.
func (p *Parser) ParseEOF() error {
	return p.parseEOF()
}

func (p *Parser) parseEOF() error {
	if p.state == ParseComplete {
		return nil
	}
	if p.state == InBody || p.state == InHeaders || p.state == EndChunkedBody {
		return p.updateState(ParseComplete)
	}
	return ErrUnexpectedEOF
}
