package parser

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dgallion1/mindgest/internal/document"
)

var mediaTypes = map[string]document.Kind{
	"application/pdf":      document.KindPDF,
	"application/x-pdf":    document.KindPDF,
	"application/epub+zip": document.KindEPUB,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": document.KindDOCX,
	"text/html":                          document.KindHTML,
	"application/xhtml+xml":              document.KindHTML,
	"text/markdown":                      document.KindMarkdown,
	"text/x-markdown":                    document.KindMarkdown,
	"text/plain":                         document.KindText,
	"text/csv":                           document.KindCSV,
	"application/x-mobipocket-ebook":     document.KindMOBI,
	"application/vnd.amazon.ebook":       document.KindAZW3,
	"application/vnd.amazon.mobi8-ebook": document.KindAZW3,
}

var extensions = map[string]document.Kind{
	".pdf":      document.KindPDF,
	".epub":     document.KindEPUB,
	".docx":     document.KindDOCX,
	".html":     document.KindHTML,
	".htm":      document.KindHTML,
	".xhtml":    document.KindHTML,
	".md":       document.KindMarkdown,
	".markdown": document.KindMarkdown,
	".txt":      document.KindText,
	".text":     document.KindText,
	".csv":      document.KindCSV,
	".mobi":     document.KindMOBI,
	".prc":      document.KindMOBI,
	".azw":      document.KindAZW3,
	".azw3":     document.KindAZW3,
}

// untrustedMediaTypes carry no format information.
var untrustedMediaTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
}

// Resolve maps a declared media type and file name to a Descriptor. A known
// media type wins over the file extension. maxBytes <= 0 disables the size
// check.
func Resolve(mediaType, filename string, size, maxBytes int64) (document.Descriptor, error) {
	kind := document.KindUnknown
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil && !untrustedMediaTypes[mt] {
		kind = mediaTypes[strings.ToLower(mt)]
	}
	if kind == document.KindUnknown {
		kind = extensions[strings.ToLower(filepath.Ext(filename))]
	}
	if kind == document.KindUnknown {
		return document.Descriptor{}, fmt.Errorf("%w: %q (%s)", document.ErrUnsupportedFormat, filename, mediaType)
	}
	if maxBytes > 0 && size > maxBytes {
		return document.Descriptor{}, fmt.Errorf("%w: %d bytes exceeds %d", document.ErrFileTooLarge, size, maxBytes)
	}
	return document.Descriptor{Name: filename, SizeBytes: size, Kind: kind}, nil
}

// SupportedExtensions lists the file extensions Resolve recognises.
func SupportedExtensions() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	return out
}
