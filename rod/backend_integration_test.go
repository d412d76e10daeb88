//go:build integration

package rod_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/webgrab"
	"github.com/fwojciec/webgrab/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scriptedPage = `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
<div id="content">Loading...</div>
<script>
document.getElementById('content').textContent = 'JavaScript Rendered';
</script>
</body>
</html>`

func newBackend(t *testing.T, opts ...rod.Option) *rod.Backend {
	t.Helper()
	manager, err := rod.NewBrowserManager()
	require.NoError(t, err)
	b := rod.NewBackend(manager, opts...)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackend_Get_ReturnsRenderedHTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(scriptedPage))
	}))
	defer srv.Close()

	b := newBackend(t)

	resp, err := b.Get(context.Background(), srv.URL, webgrab.FetchOptions{RenderJS: true, Scroll: true})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.ContentType)
	assert.Contains(t, string(resp.Body), "JavaScript Rendered")
	assert.NotContains(t, string(resp.Body), "Loading...")
}

func TestBackend_Get_ScriptsDisabledWithoutRenderJS(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(scriptedPage))
	}))
	defer srv.Close()

	b := newBackend(t)

	resp, err := b.Get(context.Background(), srv.URL, webgrab.FetchOptions{})

	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "Loading...")
}

func TestBackend_Get_ReportsStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<html><body>missing</body></html>`))
	}))
	defer srv.Close()

	b := newBackend(t)

	resp, err := b.Get(context.Background(), srv.URL, webgrab.FetchOptions{RenderJS: true})

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBackend_Get_TimeoutTriggersOnSlowPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>delayed</body></html>`))
	}))
	defer srv.Close()

	b := newBackend(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := b.Get(ctx, srv.URL, webgrab.FetchOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackend_Close_Idempotent(t *testing.T) {
	t.Parallel()

	manager, err := rod.NewBrowserManager()
	require.NoError(t, err)
	b := rod.NewBackend(manager)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestBackend_Get_AfterClose_ReturnsError(t *testing.T) {
	t.Parallel()

	manager, err := rod.NewBrowserManager()
	require.NoError(t, err)
	b := rod.NewBackend(manager)
	require.NoError(t, b.Close())

	_, err = b.Get(context.Background(), "http://example.com", webgrab.FetchOptions{})

	require.Error(t, err)
	assert.Equal(t, webgrab.EUNAVAILABLE, webgrab.ErrorCode(err))
	assert.Contains(t, webgrab.ErrorMessage(err), "closed")
}
