package handlers

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/webforge/webforge/handler"
	"github.com/webforge/webforge/internal/body"
	"github.com/webforge/webforge/internal/contenttypes"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
)

// indexFiles is tried, in order, when a directory is requested.
var indexFiles = []string{"index.html", "index.htm"}

// Web is a static-site handler distinct from File: it is restricted to a
// configured set of virtual hosts and resolves an index file for directory
// requests instead of emitting a directory listing. Grounded on the
// original project's web handler, which logs a warning (rather than
// rejecting the request outright) when Host doesn't match one of Hosts.
type Web struct {
	Root   string
	Hosts  []string
	logger *logrus.Logger
}

func NewWeb(root string, hosts []string, logger *logrus.Logger) *Web {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Web{Root: root, Hosts: hosts, logger: logger}
}

func (wb *Web) hostAllowed(host string) bool {
	if len(wb.Hosts) == 0 {
		return true
	}
	for _, h := range wb.Hosts {
		if h == host {
			return true
		}
	}
	return false
}

func (wb *Web) Handle(r *request.Request, w *response.Writer) handler.Action {
	if !wb.hostAllowed(r.Host()) {
		wb.logger.WithFields(logrus.Fields{
			"host":           r.Host(),
			"allowed_hosts":  wb.Hosts,
		}).Warn("web: request host not in allowed set, serving anyway")
	}

	f := &File{Root: wb.Root}
	full, err := f.resolve(r.Path())
	if err != nil {
		return handler.ErrStatus(response.StatusNotFound)
	}

	info, err := os.Stat(full)
	if err != nil {
		return handler.ErrStatus(response.StatusNotFound)
	}

	if info.IsDir() {
		for _, idx := range indexFiles {
			candidate := filepath.Join(full, idx)
			if data, err := os.ReadFile(candidate); err == nil {
				resp := response.New(response.StatusOK)
				resp.SetHeader("Content-Type", contenttypes.ByExt(candidate))
				b := body.NewBuffered(len(data))
				_ = b.AppendBody(data)
				resp.SetBody(b)
				if err := w.Send(resp); err != nil {
					return handler.ErrFailed(err.Error())
				}
				return handler.Done()
			}
		}
		return handler.ErrStatus(response.StatusNotFound)
	}

	return f.serveFile(full, w)
}
