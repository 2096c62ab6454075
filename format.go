package doc2pub

import (
	"mime"
	"path/filepath"
	"strings"
)

// Format is a canonical input format tag.
type Format string

// Supported input formats.
const (
	FormatUnknown  Format = ""
	FormatPDF      Format = "pdf"
	FormatDOC      Format = "doc"
	FormatDOCX     Format = "docx"
	FormatTXT      Format = "txt"
	FormatHTML     Format = "html"
	FormatEPUB     Format = "epub"
	FormatMarkdown Format = "md"

	// FormatMarkdownLong is only produced by the extension fallback when the
	// MIME registration for .markdown is unavailable.
	FormatMarkdownLong Format = "markdown"
)

// mimeFormats maps MIME media types to format tags.
var mimeFormats = map[string]Format{
	"application/pdf":    FormatPDF,
	"application/msword": FormatDOC,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FormatDOCX,
	"text/plain":           FormatTXT,
	"text/html":            FormatHTML,
	"application/epub+zip": FormatEPUB,
	"text/markdown":        FormatMarkdown,
	"text/x-markdown":      FormatMarkdown,
}

// extensionFallback lists extensions accepted as-is when MIME lookup fails.
var extensionFallback = map[string]Format{
	"pdf":      FormatPDF,
	"doc":      FormatDOC,
	"docx":     FormatDOCX,
	"txt":      FormatTXT,
	"html":     FormatHTML,
	"epub":     FormatEPUB,
	"md":       FormatMarkdown,
	"markdown": FormatMarkdownLong,
}

func init() {
	// System MIME tables rarely know markdown.
	_ = mime.AddExtensionType(".md", "text/markdown")
	_ = mime.AddExtensionType(".markdown", "text/markdown")
}

// Detect classifies path by its extension. It never touches the filesystem.
// Returns FormatUnknown when neither the MIME table nor the extension
// fallback recognizes the extension.
func Detect(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return FormatUnknown
	}

	if typ := mime.TypeByExtension(ext); typ != "" {
		if mediaType, _, err := mime.ParseMediaType(typ); err == nil {
			if f, ok := mimeFormats[mediaType]; ok {
				return f
			}
		}
	}

	if f, ok := extensionFallback[strings.TrimPrefix(ext, ".")]; ok {
		return f
	}
	return FormatUnknown
}

// IsMarkdown reports whether f is either markdown tag.
func (f Format) IsMarkdown() bool {
	return f == FormatMarkdown || f == FormatMarkdownLong
}

// Known reports whether f is a supported format tag.
func (f Format) Known() bool {
	for _, known := range extensionFallback {
		if f == known {
			return true
		}
	}
	return false
}

// SupportedExtensions returns the extensions accepted by Detect, dot-prefixed.
func SupportedExtensions() []string {
	return []string{".pdf", ".doc", ".docx", ".txt", ".html", ".htm", ".epub", ".md", ".markdown"}
}
