package main_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/webgrab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 200)...)

// newSite serves a two-page site with one image. /flaky answers 404 until
// healed is set.
func newSite(t *testing.T, healed *atomic.Bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><body>
<a href="/about">About</a>
<a href="/flaky">Flaky</a>
<a href="https://elsewhere.example/">Elsewhere</a>
<img src="/logo.png">
</body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><a href="/">Home</a></body></html>`))
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if healed == nil || !healed.Load() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body>back</body></html>`))
	})
	mux.HandleFunc("/logo.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func grab(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := newMain().Run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestMain_Run_MirrorsSite(t *testing.T) {
	t.Parallel()

	srv := newSite(t, nil)
	out := t.TempDir()

	stdout, err := grab(t, srv.URL+"/", "--output", out, "--delay", "0s", "--threads", "2", "--report")

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "html", "index.html"))
	assert.FileExists(t, filepath.Join(out, "html", "about.html"))
	assert.FileExists(t, filepath.Join(out, "files", "images", "logo.png"))
	assert.FileExists(t, filepath.Join(out, "report.md"))
	assert.NoFileExists(t, filepath.Join(out, "html", "flaky.html"))

	assert.Contains(t, stdout, "Pages visited: 3")
	assert.Contains(t, stdout, "Failed: 1")
	assert.Contains(t, stdout, "html: 2")
	assert.Contains(t, stdout, "images: 1")

	failed, err := os.ReadFile(filepath.Join(out, "failed_urls.txt"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/flaky\n", string(failed))

	logo, err := os.ReadFile(filepath.Join(out, "files", "images", "logo.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, logo)
}

func TestMain_Run_RerunIsIdempotent(t *testing.T) {
	t.Parallel()

	srv := newSite(t, nil)
	out := t.TempDir()
	args := []string{srv.URL + "/", "--output", out, "--delay", "0s"}

	first, err := grab(t, args...)
	require.NoError(t, err)
	second, err := grab(t, args...)
	require.NoError(t, err)

	counts := func(s string) []string {
		var lines []string
		for _, line := range strings.Split(s, "\n") {
			if strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "Pages visited") {
				lines = append(lines, line)
			}
		}
		return lines
	}
	assert.Equal(t, counts(first), counts(second))
	assert.NotEmpty(t, counts(first))
}

func TestMain_Run_RetryFailed(t *testing.T) {
	t.Parallel()

	var healed atomic.Bool
	srv := newSite(t, &healed)
	out := t.TempDir()

	_, err := grab(t, srv.URL+"/", "--output", out, "--delay", "0s")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(out, "failed_urls.txt"))

	healed.Store(true)
	stdout, err := grab(t, srv.URL+"/", "--output", out, "--delay", "0s", "--retry-failed")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Failed: 0")
	assert.FileExists(t, filepath.Join(out, "html", "flaky.html"))
	assert.NoFileExists(t, filepath.Join(out, "failed_urls.txt"))
}

func TestMain_Run_NoLinks(t *testing.T) {
	t.Parallel()

	srv := newSite(t, nil)
	out := t.TempDir()

	stdout, err := grab(t, srv.URL+"/", "--output", out, "--delay", "0s", "--no-links", "--no-resources")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Pages visited: 1")
	assert.FileExists(t, filepath.Join(out, "html", "index.html"))
	assert.NoFileExists(t, filepath.Join(out, "files", "images", "logo.png"))
}

func TestMain_Run_ConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte("threads: 0\n"), 0o644))

	_, err := grab(t, "https://example.com", "--output", dir, "--config", config)

	require.Error(t, err)
	assert.Equal(t, webgrab.EINVALID, webgrab.ErrorCode(err))
	assert.Contains(t, webgrab.ErrorMessage(err), "concurrency")
}

func TestMain_Run_SeedWithoutTrailingSlash(t *testing.T) {
	t.Parallel()

	var rootHits atomic.Int32
	site := newSite(t, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			rootHits.Add(1)
		}
		site.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	out := t.TempDir()

	stdout, err := grab(t, srv.URL, "--output", out, "--delay", "0s")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Pages visited: 3")
	assert.Contains(t, stdout, "html: 2")
	assert.Equal(t, int32(1), rootHits.Load())

	entries, err := os.ReadDir(filepath.Join(out, "html"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"index.html", "about.html"}, names)
}

func TestMain_Run_SavesMislabeledImage(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><a href="/avatar">Avatar</a></body></html>`))
	})
	mux.HandleFunc("/avatar", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(pngBytes)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	out := t.TempDir()

	stdout, err := grab(t, srv.URL+"/", "--output", out, "--delay", "0s")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Failed: 0")
	assert.Contains(t, stdout, "images: 1")

	entries, err := os.ReadDir(filepath.Join(out, "files", "images"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	saved, err := os.ReadFile(filepath.Join(out, "files", "images", entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, saved)
}
