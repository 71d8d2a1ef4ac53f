// Package handlers implements the small set of built-in Handlers the spec
// names at contract level: Status, Redirect, Rewriter, Log, File, and Web.
package handlers

import (
	"github.com/webforge/webforge/handler"
	"github.com/webforge/webforge/internal/body"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
)

// Status writes a fixed status/body/header response and terminates the
// pipeline.
type Status struct {
	StatusCode response.Status
	Body       []byte
	Headers    map[string]string
}

func NewStatus(status response.Status, body []byte, headers map[string]string) *Status {
	return &Status{StatusCode: status, Body: body, Headers: headers}
}

func (s *Status) Handle(r *request.Request, w *response.Writer) handler.Action {
	resp := response.New(s.StatusCode)
	for k, v := range s.Headers {
		resp.SetHeader(k, v)
	}
	if len(s.Body) > 0 {
		b := body.NewBuffered(len(s.Body))
		_ = b.AppendBody(s.Body)
		resp.SetBody(b)
	}
	if err := w.Send(resp); err != nil {
		return handler.ErrFailed(err.Error())
	}
	return handler.Done()
}
