package objectstore

import (
	"path"
	"strings"
)

// DefaultContentType is used for unknown extensions.
const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".pdf":  "application/pdf",
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
	".zip":  "application/zip",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

// ContentType guesses a MIME type from the extension of name.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(Ext(name))]; ok {
		return ct
	}
	return DefaultContentType
}

// Ext returns the extension of the last path element, dot included. Names
// such as ".env" have no extension.
func Ext(name string) string {
	base := path.Base(name)
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		return ""
	}
	return base[dot:]
}
