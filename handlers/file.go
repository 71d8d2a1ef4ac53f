package handlers

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/webforge/webforge/handler"
	"github.com/webforge/webforge/internal/body"
	"github.com/webforge/webforge/internal/contenttypes"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
)

// File serves one filesystem path, Root. Directory requests render an HTML
// index of the directory's entries; file requests stream the file's bytes
// with a Content-Type derived from its extension.
type File struct {
	Root string
}

func NewFile(root string) *File {
	return &File{Root: root}
}

// resolve joins the request's (handler-relative) path onto Root, rejecting
// any path that would escape Root via ".." segments.
func (f *File) resolve(reqPath string) (string, error) {
	clean := filepath.Clean("/" + reqPath)
	full := filepath.Join(f.Root, clean)
	rel, err := filepath.Rel(f.Root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("handlers: path escapes root: %s", reqPath)
	}
	return full, nil
}

func (f *File) Handle(r *request.Request, w *response.Writer) handler.Action {
	full, err := f.resolve(r.Path())
	if err != nil {
		return handler.ErrStatus(response.StatusNotFound)
	}

	info, err := os.Stat(full)
	if err != nil {
		return handler.ErrStatus(response.StatusNotFound)
	}

	if info.IsDir() {
		return f.serveIndex(full, r.Path(), w)
	}
	return f.serveFile(full, w)
}

func (f *File) serveFile(full string, w *response.Writer) handler.Action {
	data, err := os.ReadFile(full)
	if err != nil {
		return handler.ErrStatus(response.StatusNotFound)
	}
	resp := response.New(response.StatusOK)
	resp.SetHeader("Content-Type", contenttypes.ByExt(full))
	b := body.NewBuffered(len(data))
	_ = b.AppendBody(data)
	resp.SetBody(b)
	if err := w.Send(resp); err != nil {
		return handler.ErrFailed(err.Error())
	}
	return handler.Done()
}

func (f *File) serveIndex(dir, reqPath string, w *response.Writer) handler.Action {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return handler.ErrStatus(response.StatusNotFound)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>Index of %s</title></head><body>\n", html.EscapeString(reqPath))
	fmt.Fprintf(&b, "<h1>Index of %s</h1>\n<ul>\n", html.EscapeString(reqPath))
	for _, name := range names {
		href := html.EscapeString(name)
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", href, href)
	}
	b.WriteString("</ul></body></html>\n")

	resp := response.New(response.StatusOK)
	resp.SetHeader("Content-Type", "text/html")
	content := []byte(b.String())
	body := body.NewBuffered(len(content))
	_ = body.AppendBody(content)
	resp.SetBody(body)
	if err := w.Send(resp); err != nil {
		return handler.ErrFailed(err.Error())
	}
	return handler.Done()
}
