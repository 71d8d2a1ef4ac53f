package handlers

import (
	"github.com/webforge/webforge/handler"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
)

// Redirect emits 301 Moved Permanently with Location set to To.
type Redirect struct {
	To string
}

func NewRedirect(to string) *Redirect {
	return &Redirect{To: to}
}

func (rd *Redirect) Handle(r *request.Request, w *response.Writer) handler.Action {
	resp := response.New(response.StatusMovedPermanently)
	resp.SetHeader("Location", rd.To)
	if err := w.Send(resp); err != nil {
		return handler.ErrFailed(err.Error())
	}
	return handler.Done()
}
