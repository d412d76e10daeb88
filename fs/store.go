// Package fs stores crawled resources in a directory tree on local disk.
package fs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/webgrab"
)

// Ensure Store implements webgrab.Persister at compile time.
var _ webgrab.Persister = (*Store)(nil)

// Validation thresholds.
const (
	// DefaultMinImageBytes is the size below which an image is considered corrupted.
	DefaultMinImageBytes = 100
	// suspiciousBytes is the size below which videos and PDFs are flagged.
	suspiciousBytes = 1024
)

// unsafeChars matches characters not allowed in file names.
var unsafeChars = regexp.MustCompile(`[^\w\-.]`)

// Store validates resources and writes them under root:
//
//	<root>/html/
//	<root>/files/images/
//	<root>/files/videos/
//	<root>/files/documents/
//
// It is safe for concurrent use.
type Store struct {
	root          string
	minImageBytes int

	mu     sync.Mutex
	claims map[string]string // path -> URL written this run
}

// Option configures a Store.
type Option func(*Store)

// WithMinImageBytes overrides the corrupted-image threshold.
func WithMinImageBytes(n int) Option {
	return func(s *Store) {
		s.minImageBytes = n
	}
}

// NewStore creates a Store rooted at root. Call Init before saving.
func NewStore(root string, opts ...Option) *Store {
	s := &Store{
		root:          root,
		minImageBytes: DefaultMinImageBytes,
		claims:        make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the output directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory holding resources of type t.
func (s *Store) Dir(t webgrab.ResourceType) string {
	if t == webgrab.HTML {
		return filepath.Join(s.root, "html")
	}
	return filepath.Join(s.root, "files", string(t))
}

// Init creates the output tree.
func (s *Store) Init() error {
	for _, t := range webgrab.ResourceTypes {
		if err := os.MkdirAll(s.Dir(t), 0755); err != nil {
			return webgrab.Errorf(webgrab.EUNAVAILABLE, "create output directory: %v", err)
		}
	}
	return nil
}

// Save stores the resource at rawURL. Only an explicit media extension in
// the URL overrides the declared type. A URL that classifies by default
// (no extension, or one no type claims) keeps the declared type, so a page
// sniffed as an image still lands in images. Existing files are kept and
// content is not requested. Invalid content is rejected without leaving a
// file behind.
func (s *Store) Save(ctx context.Context, rawURL string, declared webgrab.ResourceType, content webgrab.ContentFunc) (*webgrab.Outcome, error) {
	t := declared
	if byURL, ok := webgrab.ClassifyURL(rawURL); ok && byURL != t {
		t = byURL
	}
	if t == webgrab.Skip || !t.Valid() {
		return &webgrab.Outcome{Reason: fmt.Sprintf("unsupported resource type %q", t)}, nil
	}

	name := FileName(rawURL, t)
	fullPath := s.claim(filepath.Join(s.Dir(t), name), rawURL)
	file := &webgrab.PersistedFile{URL: rawURL, Type: t, Path: fullPath}

	if _, err := os.Stat(fullPath); err == nil {
		return &webgrab.Outcome{File: file, Existing: true}, nil
	}

	body, err := content(ctx)
	if err != nil {
		s.release(fullPath, rawURL)
		return nil, err
	}

	if reason := s.validate(t, fullPath, body); reason != "" {
		s.release(fullPath, rawURL)
		return &webgrab.Outcome{Reason: reason}, nil
	}

	if err := writeFile(fullPath, body); err != nil {
		s.release(fullPath, rawURL)
		return nil, err
	}

	return &webgrab.Outcome{File: file, Warning: warning(t, fullPath, body)}, nil
}

// claim reserves p for rawURL. A path already claimed by another URL this
// run gets a hash suffix.
func (s *Store) claim(p, rawURL string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.claims[p]; ok && owner != rawURL {
		ext := filepath.Ext(p)
		p = strings.TrimSuffix(p, ext) + "_" + shortHash(rawURL) + ext
	}
	s.claims[p] = rawURL
	return p
}

func (s *Store) release(p, rawURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims[p] == rawURL {
		delete(s.claims, p)
	}
}

func (s *Store) validate(t webgrab.ResourceType, p string, body []byte) string {
	switch {
	case t == webgrab.Images && len(body) < s.minImageBytes:
		return fmt.Sprintf("image likely corrupted (%d bytes)", len(body))
	case t != webgrab.HTML && webgrab.StartsWithHTML(body):
		return fmt.Sprintf("HTML content saved as %s", t)
	case t == webgrab.Documents && isPDF(p) && !webgrab.HasPDFSignature(body):
		return "invalid PDF signature"
	}
	return ""
}

func warning(t webgrab.ResourceType, p string, body []byte) string {
	switch {
	case t == webgrab.Videos && len(body) < suspiciousBytes:
		return fmt.Sprintf("video suspiciously small (%d bytes)", len(body))
	case t == webgrab.Documents && isPDF(p) && len(body) < suspiciousBytes:
		return fmt.Sprintf("PDF suspiciously small (%d bytes)", len(body))
	}
	return ""
}

func isPDF(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".pdf")
}

// writeFile writes body through a temporary file so readers never observe a
// partial file.
func writeFile(p string, body []byte) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".webgrab-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// FileName derives the on-disk name for a resource of type t at rawURL.
// Pages are named after their last path segment (index.html for the root)
// and always end in .html or .htm. Other resources keep their base name;
// names without an extension become <hash><default ext> and names with an
// extension foreign to t get t's default extension.
func FileName(rawURL string, t webgrab.ResourceType) string {
	var p string
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}

	trimmed := strings.Trim(p, "/")
	base := ""
	if trimmed != "" {
		base = path.Base(trimmed)
	}
	ext := path.Ext(base)

	var name string
	switch {
	case t == webgrab.HTML && base == "":
		name = "index.html"
	case t == webgrab.HTML && ext == "":
		name = base + ".html"
	case t == webgrab.HTML && !t.AcceptsExt(ext):
		name = strings.TrimSuffix(base, ext) + ".html"
	case t == webgrab.HTML:
		name = base
	case base == "" || ext == "" || ext == base:
		name = ComputeHash(rawURL) + t.DefaultExt()
	case !t.AcceptsExt(ext):
		name = strings.TrimSuffix(base, ext) + t.DefaultExt()
	default:
		name = base
	}
	return Sanitize(name)
}

// Sanitize replaces every character outside letters, digits, '_', '-' and
// '.' with '_'.
func Sanitize(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// ComputeHash computes a stable hash of s using xxhash.
func ComputeHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

func shortHash(s string) string {
	return ComputeHash(s)[:8]
}
