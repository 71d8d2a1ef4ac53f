// Package contenttypes maps file extensions to MIME content types for the
// File and Web handlers.
package contenttypes

import "strings"

var byExt = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".txt":  "text/plain",
	".xml":  "application/xml",
	".pdf":  "application/pdf",
	".woff": "font/woff",
	".woff2": "font/woff2",
}

// ByExt returns the content type registered for name's extension, or
// "text/plain" when the extension is unknown or absent.
func ByExt(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx == -1 {
		return "text/plain"
	}
	if ct, ok := byExt[strings.ToLower(name[idx:])]; ok {
		return ct
	}
	return "text/plain"
}
