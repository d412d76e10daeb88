package crawl_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/fwojciec/webgrab"
	"github.com/fwojciec/webgrab/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(url string, depth int) crawl.Link {
	return crawl.Link{URL: url, Depth: depth, Type: webgrab.HTML}
}

func TestFrontier_Push(t *testing.T) {
	t.Parallel()

	t.Run("rejects duplicate pending URL", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewFrontier(100)

		assert.True(t, f.Push(page("https://example.com/", 0)))
		assert.False(t, f.Push(page("https://example.com/", 1)))
		assert.Equal(t, 1, f.Len())
	})

	t.Run("never re-admits a visited URL", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewFrontier(100)
		f.Push(page("https://example.com/", 0))
		f.NextWave(10)

		assert.False(t, f.Push(page("https://example.com/", 2)))
		assert.Equal(t, 0, f.Len())
		assert.True(t, f.Visited("https://example.com/"))
	})

	t.Run("caps page links but not resources", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewFrontier(100, crawl.WithMaxPages(2))

		assert.True(t, f.Push(page("https://example.com/a", 0)))
		assert.True(t, f.Push(page("https://example.com/b", 0)))
		assert.False(t, f.Push(page("https://example.com/c", 0)))
		assert.True(t, f.Push(crawl.Link{URL: "https://example.com/x.png", Type: webgrab.Images}))
	})
}

func TestFrontier_NextWave(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(100)
	for i := range 5 {
		f.Push(page(fmt.Sprintf("https://example.com/%d", i), 0))
	}

	wave := f.NextWave(3)

	require.Len(t, wave, 3)
	assert.Equal(t, "https://example.com/0", wave[0].URL)
	assert.Equal(t, "https://example.com/2", wave[2].URL)
	assert.Equal(t, []string{"https://example.com/3", "https://example.com/4"}, f.Pending())
	for _, link := range wave {
		assert.True(t, f.Visited(link.URL))
	}

	assert.Len(t, f.NextWave(10), 2)
	assert.Empty(t, f.NextWave(10))
}

func TestFrontier_MarkFailedRequiresVisited(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(100)
	f.Push(page("https://example.com/b", 0))
	f.Push(page("https://example.com/a", 0))

	assert.False(t, f.MarkFailed("https://example.com/a"), "pending URL cannot fail")

	f.NextWave(2)
	assert.True(t, f.MarkFailed("https://example.com/b"))
	assert.True(t, f.MarkFailed("https://example.com/a"))
	assert.False(t, f.MarkFailed("https://example.com/never"))

	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, f.Failed())
}

func TestFrontier_CountsAndVisitedCount(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(100)
	f.Push(page("https://example.com/", 0))
	f.Push(crawl.Link{URL: "https://example.com/a.png", Type: webgrab.Images})
	f.NextWave(10)

	assert.Equal(t, 1, f.AddCount(webgrab.Images))
	assert.Equal(t, 2, f.AddCount(webgrab.Images))
	assert.Equal(t, 0, f.AddCount(webgrab.Skip))

	counts := f.Counts()
	assert.Equal(t, 2, counts[webgrab.Images])
	assert.Equal(t, 0, counts[webgrab.HTML])
	assert.Equal(t, 1, f.VisitedCount())
}

func TestFrontier_ConcurrentPushAdmitsOnce(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(1000)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				if f.Push(page(fmt.Sprintf("https://example.com/%d", i), 0)) {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, admitted)
	assert.Equal(t, 100, f.Len())
}
