package webgrab

import (
	"bytes"
	"net/url"
	"path"
	"strings"
)

// ResourceType is the classification bucket that drives where a resource is
// stored and how it is validated. Values double as directory names.
type ResourceType string

// Resource types.
const (
	HTML      ResourceType = "html"
	Images    ResourceType = "images"
	Videos    ResourceType = "videos"
	Documents ResourceType = "documents"
	Skip      ResourceType = "skip"
)

// ResourceTypes lists every persistable type in reporting order.
var ResourceTypes = []ResourceType{HTML, Images, Videos, Documents}

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	switch t {
	case HTML, Images, Videos, Documents, Skip:
		return true
	}
	return false
}

// DefaultExt returns the canonical file extension for t, including the dot.
// Skip has no extension.
func (t ResourceType) DefaultExt() string {
	switch t {
	case HTML:
		return ".html"
	case Images:
		return ".jpg"
	case Videos:
		return ".mp4"
	case Documents:
		return ".pdf"
	}
	return ""
}

// AcceptsExt reports whether ext (with or without the dot, any case) is an
// extension files of type t may carry.
func (t ResourceType) AcceptsExt(ext string) bool {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return false
	}
	switch t {
	case HTML:
		return ext == "html" || ext == "htm"
	case Images:
		return imageExts[ext]
	case Videos:
		return videoExts[ext]
	case Documents:
		return documentExts[ext]
	}
	return false
}

var (
	webExts      = set("html", "htm", "xhtml", "php", "asp", "aspx", "jsp")
	imageExts    = set("jpg", "jpeg", "png", "gif", "svg", "webp", "bmp", "ico", "tif", "tiff")
	videoExts    = set("mp4", "webm", "avi", "mov", "wmv", "flv", "mkv", "ogv", "m4v")
	documentExts = set(
		"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "txt", "rtf", "csv",
		"odt", "ods", "odp", "epub", "mobi", "zip", "rar", "tar", "gz",
	)
)

// documentHints mark a .pdf URL as a real document rather than a generated page.
var documentHints = []string{"resume", "cv", "/documents/", "/docs/", "/publications/"}

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// Classify maps a URL to a resource type by its extension.
// Non-crawlable targets are Skip. URLs without an extension are pages.
func Classify(rawURL string) ResourceType {
	t, _ := ClassifyURL(rawURL)
	return t
}

// ClassifyURL is like Classify but also reports whether the verdict came from
// an explicit media extension (image, video or document). Callers that already
// hold a declared type should only let the URL override it when ok is true.
func ClassifyURL(rawURL string) (t ResourceType, ok bool) {
	if !IsCrawlable(rawURL) {
		return Skip, false
	}

	lower := strings.ToLower(strings.TrimSpace(rawURL))
	p := urlPath(lower)
	ext := strings.TrimPrefix(path.Ext(p), ".")

	switch {
	case ext == "" || webExts[ext]:
		return HTML, false
	case imageExts[ext]:
		return Images, true
	case videoExts[ext]:
		return Videos, true
	case ext == "pdf":
		if containsAny(lower, documentHints) {
			return Documents, true
		}
		stem := strings.TrimSuffix(path.Base(p), path.Ext(p))
		if isDigits(stem) {
			return HTML, false
		}
		return Documents, true
	case documentExts[ext]:
		return Documents, true
	}

	if containsAny(lower, documentHints) {
		return Documents, false
	}
	return HTML, false
}

func urlPath(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		return u.Path
	}
	if idx := strings.IndexAny(raw, "?#"); idx != -1 {
		return raw[:idx]
	}
	return raw
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	gif87a    = []byte("GIF87a")
	gif89a    = []byte("GIF89a")
	pdfMagic  = []byte("%PDF-")

	htmlMarkers = [][]byte{
		[]byte("<!doctype html"),
		[]byte("<html"),
		[]byte("<head"),
		[]byte("<body"),
	}
)

// sniffLen is how much of the content is scanned for HTML markers.
const sniffLen = 1024

// ClassifyContent sniffs content bytes: image magic numbers, the PDF
// signature, then HTML markers in the first kilobyte. Anything else is
// treated as a document.
func ClassifyContent(content []byte) ResourceType {
	switch {
	case bytes.HasPrefix(content, jpegMagic),
		bytes.HasPrefix(content, pngMagic),
		bytes.HasPrefix(content, gif87a),
		bytes.HasPrefix(content, gif89a):
		return Images
	case bytes.HasPrefix(content, pdfMagic):
		return Documents
	case hasHTMLMarker(content):
		return HTML
	}
	return Documents
}

// IsHTML reports whether content looks like an HTML document.
func IsHTML(content []byte) bool {
	if len(bytes.TrimSpace(content)) == 0 || bytes.HasPrefix(content, pdfMagic) {
		return false
	}
	return hasHTMLMarker(content)
}

func hasHTMLMarker(content []byte) bool {
	h := bytes.ToLower(head(content))
	for _, m := range htmlMarkers {
		if bytes.Contains(h, m) {
			return true
		}
	}
	return false
}

// StartsWithHTML reports whether the first kilobyte of content opens with an
// HTML document marker. Binary files saved under a media type that start this
// way are error pages.
func StartsWithHTML(content []byte) bool {
	h := bytes.ToLower(bytes.TrimSpace(head(content)))
	return bytes.HasPrefix(h, htmlMarkers[0]) || bytes.HasPrefix(h, htmlMarkers[1])
}

// HasPDFSignature reports whether content begins with the PDF magic bytes.
func HasPDFSignature(content []byte) bool {
	return bytes.HasPrefix(content, pdfMagic)
}

func head(content []byte) []byte {
	if len(content) > sniffLen {
		return content[:sniffLen]
	}
	return content
}

// ClassifyContentType maps a Content-Type header to a resource type.
// The bool result is false for types that carry no resource (e.g. JSON).
func ClassifyContentType(contentType string) (ResourceType, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	switch {
	case ct == "", ct == "text/html", ct == "application/xhtml+xml":
		return HTML, true
	case strings.HasPrefix(ct, "image/"):
		return Images, true
	case strings.HasPrefix(ct, "video/"):
		return Videos, true
	case ct == "application/pdf", ct == "application/msword":
		return Documents, true
	}
	return Skip, false
}
