package handlers

import (
	"regexp"

	"github.com/webforge/webforge/handler"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
)

// Rewriter applies a regular-expression substitution to the request's
// absolute path. If the substitution changes the path, it redirects to the
// new path with 301 and terminates the pipeline; otherwise it returns Next
// so the following handler sees the (unchanged) request.
type Rewriter struct {
	re      *regexp.Regexp
	replace string
}

// NewRewriter compiles pattern (a regexp matched against the request's
// absolute path) and replace (a $1/$2-style substitution template).
func NewRewriter(pattern, replace string) (*Rewriter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Rewriter{re: re, replace: replace}, nil
}

func (rw *Rewriter) Handle(r *request.Request, w *response.Writer) handler.Action {
	path := r.AbsPath()
	rewritten := rw.re.ReplaceAllString(path, rw.replace)
	if rewritten == path {
		return handler.Next()
	}

	resp := response.New(response.StatusMovedPermanently)
	resp.SetHeader("Location", rewritten)
	if err := w.Send(resp); err != nil {
		return handler.ErrFailed(err.Error())
	}
	return handler.Done()
}
