//go:build integration

package chromedp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/webgrab"
	"github.com/fwojciec/webgrab/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probePage = `<!DOCTYPE html>
<html>
<body>
<div id="out">pending</div>
<script>
document.getElementById('out').textContent =
  navigator.webdriver === undefined ? 'hidden:' + navigator.platform : 'exposed';
</script>
</body>
</html>`

func newBackend(t *testing.T, opts ...chromedp.Option) *chromedp.Backend {
	t.Helper()
	b, err := chromedp.NewBackend(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackend_Get_HidesAutomation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(probePage))
	}))
	defer srv.Close()

	id := chromedp.NewIdentity(nil)
	b := newBackend(t, chromedp.WithIdentity(id))

	resp, err := b.Get(context.Background(), srv.URL, webgrab.FetchOptions{RenderJS: true, Scroll: true})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.ContentType)
	assert.Contains(t, string(resp.Body), "hidden:"+id.Platform)
}

func TestBackend_Get_ReportsStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`<html><body>down</body></html>`))
	}))
	defer srv.Close()

	b := newBackend(t)

	resp, err := b.Get(context.Background(), srv.URL, webgrab.FetchOptions{})

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestBackend_Get_AfterClose_ReturnsError(t *testing.T) {
	t.Parallel()

	b, err := chromedp.NewBackend()
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err = b.Get(context.Background(), "http://example.com", webgrab.FetchOptions{})

	assert.Equal(t, webgrab.EUNAVAILABLE, webgrab.ErrorCode(err))
}
