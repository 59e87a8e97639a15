// Package media maps comic archive container extensions to MIME types for
// content negotiation when streaming files or built bundles.
package media

import (
	"path/filepath"
	"strings"
)

// MIME types for the supported comic archive containers.
const (
	MIMEComicZip    = "application/vnd.comicbook+zip"
	MIMEComicRar    = "application/vnd.comicbook-rar"
	MIMEComic7z     = "application/x-cb7"
	MIMEComicTar    = "application/x-cbt"
	MIMEZip         = "application/zip"
	MIMEOctetStream = "application/octet-stream"
)

var containerTypes = map[string]string{
	".cbz": MIMEComicZip,
	".cbr": MIMEComicRar,
	".cb7": MIMEComic7z,
	".cbt": MIMEComicTar,
	".zip": MIMEZip,
}

// TypeByName returns the MIME type for a file name based on its extension,
// falling back to application/octet-stream for unknown containers.
func TypeByName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if mime, ok := containerTypes[ext]; ok {
		return mime
	}
	return MIMEOctetStream
}

// IsComicArchive reports whether the extension names one of the four
// supported comic containers.
func IsComicArchive(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".cbz", ".cbr", ".cb7", ".cbt":
		return true
	default:
		return false
	}
}
