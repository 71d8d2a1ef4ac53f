// Package response models an HTTP/1.1 response and writes it to a
// connection, either as one buffered write or as a chunked stream.
package response

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/webforge/webforge/internal/body"
	"github.com/webforge/webforge/internal/cookie"
	"github.com/webforge/webforge/internal/headers"
)

type Status struct {
	Code int
	Text string
}

var (
	StatusOK                  = Status{200, "OK"}
	StatusMovedPermanently    = Status{301, "Moved Permanently"}
	StatusBadRequest          = Status{400, "Bad Request"}
	StatusUnauthorized        = Status{401, "Unauthorized"}
	StatusNotFound            = Status{404, "Not Found"}
	StatusInternalServerError = Status{500, "Internal Server Error"}
	StatusBadGateway          = Status{502, "Bad Gateway"}
)

// Response is the data model handlers build up before the server (or a
// handler directly, via Writer) streams it to the wire.
type Response struct {
	version string
	status  Status
	headers *headers.Headers
	cookies []*cookie.Cookie
	body    *body.Body
}

func New(status Status) *Response {
	return &Response{
		version: "HTTP/1.1",
		status:  status,
		headers: headers.NewHeaders(),
	}
}

func (r *Response) Status() Status             { return r.status }
func (r *Response) SetStatus(s Status)         { r.status = s }
func (r *Response) Headers() *headers.Headers  { return r.headers }
func (r *Response) Body() *body.Body           { return r.body }
func (r *Response) SetBody(b *body.Body)       { r.body = b }
func (r *Response) Cookies() []*cookie.Cookie  { return r.cookies }

func (r *Response) SetHeader(key, value string) *Response {
	r.headers.Set(key, value)
	return r
}

func (r *Response) AddCookie(c *cookie.Cookie) *Response {
	r.cookies = append(r.cookies, c)
	return r
}

// Writer streams status line, headers, and body to an underlying
// connection. It is ordered: WriteStatusLine, then WriteHeaders, then
// WriteBody or repeated WriteChunkedBody + Close.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) WriteStatusLine(status Status) error {
	_, err := fmt.Fprintf(w.w, "HTTP/1.1 %d %s\r\n", status.Code, status.Text)
	return err
}

// WriteHeaders writes h, followed by any cookies as Set-Cookie lines, then
// the blank line that terminates the header block.
func (w *Writer) WriteHeaders(h *headers.Headers, cookies []*cookie.Cookie) error {
	if h != nil {
		if _, err := w.w.Write(h.Serialize()); err != nil {
			return err
		}
	}
	for _, c := range cookies {
		if _, err := fmt.Fprintf(w.w, "Set-Cookie: %s\r\n", c.Serialize()); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w.w, "\r\n")
	return err
}

func (w *Writer) WriteBody(p []byte) (int, error) {
	return w.w.Write(p)
}

// WriteChunkedBody splits p into <=1024-byte chunks and writes each as a
// hex-size line, the chunk payload, and a trailing CRLF.
func (w *Writer) WriteChunkedBody(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		size := min(len(p), 1024)
		chunk := p[:size]
		p = p[size:]

		if _, err := fmt.Fprintf(w.w, "%x\r\n", len(chunk)); err != nil {
			return total, err
		}
		n, err := w.w.Write(chunk)
		total += n
		if err != nil {
			return total, err
		}
		if _, err := w.w.Write([]byte("\r\n")); err != nil {
			return total, err
		}
	}
	return total, nil
}

// Close writes the terminating zero-length chunk for a chunked response.
func (w *Writer) Close() error {
	_, err := w.w.Write([]byte("0\r\n\r\n"))
	return err
}

// Send writes resp in full: status line, headers (with Content-Length
// filled in for a buffered body, or Transfer-Encoding: chunked for a
// chunked one), and the body.
func (w *Writer) Send(resp *Response) error {
	h := resp.headers
	if h == nil {
		h = headers.NewHeaders()
	}

	var payload []byte
	chunked := resp.body != nil && resp.body.Mode() == body.Chunked

	if chunked {
		h.Set("transfer-encoding", "chunked")
		h.Remove("content-length")
	} else if resp.body != nil {
		b, _ := resp.body.Bytes()
		payload = b
		h.Set("content-length", strconv.Itoa(len(payload)))
	} else {
		h.Set("content-length", "0")
	}

	if err := w.WriteStatusLine(resp.status); err != nil {
		return err
	}
	if err := w.WriteHeaders(h, resp.cookies); err != nil {
		return err
	}

	if chunked {
		for i := 0; ; i++ {
			chunk, ok, err := resp.body.Chunk(context.Background(), i)
			if err != nil {
				return err
			}
			if !ok {
				return w.Close()
			}
			if _, err := w.WriteChunkedBody(chunk); err != nil {
				return err
			}
		}
	}

	_, err := w.WriteBody(payload)
	return err
}
