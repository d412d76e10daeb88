package crawl

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/webgrab"
	"github.com/fwojciec/webgrab/bloom"
)

// Frontier sizing for the Bloom prefilter.
const (
	// frontierExpectedURLs is the expected number of URLs for Bloom filter sizing.
	frontierExpectedURLs = 10000
	// frontierFalsePositiveRate is the acceptable false positive rate of the prefilter.
	frontierFalsePositiveRate = 0.01
)

// Link is a frontier entry.
type Link struct {
	URL   string
	Depth int
	Type  webgrab.ResourceType
}

// Frontier holds the mutable state of one crawl: pending, visited and failed
// URLs plus per-type counts. It is safe for concurrent use.
//
// A URL is in at most one of pending and visited. Once visited it is never
// pending again. Failed URLs are always visited.
type Frontier struct {
	mu         sync.Mutex
	seen       *bloom.Filter
	pending    []Link
	pendingSet map[string]struct{}
	visited    map[string]webgrab.ResourceType
	failed     map[string]struct{}
	pages      int
	maxPages   int

	counts map[webgrab.ResourceType]*atomic.Int64
}

// FrontierOption configures a Frontier.
type FrontierOption func(*Frontier)

// WithMaxPages caps how many page links the frontier ever admits.
// Zero means no cap.
func WithMaxPages(n int) FrontierOption {
	return func(f *Frontier) {
		f.maxPages = n
	}
}

// NewFrontier creates an empty frontier sized for n expected URLs.
func NewFrontier(n uint, opts ...FrontierOption) *Frontier {
	f := &Frontier{
		seen:       bloom.NewFilter(n, frontierFalsePositiveRate),
		pendingSet: make(map[string]struct{}),
		visited:    make(map[string]webgrab.ResourceType),
		failed:     make(map[string]struct{}),
		counts:     make(map[webgrab.ResourceType]*atomic.Int64, len(webgrab.ResourceTypes)),
	}
	for _, t := range webgrab.ResourceTypes {
		f.counts[t] = new(atomic.Int64)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Push adds link to pending. It returns false if the URL is already pending
// or visited, or if the page cap has been reached.
func (f *Frontier) Push(link Link) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.known(link.URL) {
		return false
	}
	if link.Type == webgrab.HTML {
		if f.maxPages > 0 && f.pages >= f.maxPages {
			return false
		}
		f.pages++
	}

	f.seen.Add(link.URL)
	f.pendingSet[link.URL] = struct{}{}
	f.pending = append(f.pending, link)
	return true
}

// known must be called with mu held. The Bloom filter settles most lookups
// for new URLs without touching the maps.
func (f *Frontier) known(url string) bool {
	if !f.seen.MayContain(url) {
		return false
	}
	if _, ok := f.visited[url]; ok {
		return true
	}
	_, ok := f.pendingSet[url]
	return ok
}

// NextWave removes up to n links from pending in discovery order and marks
// them visited before returning them, so no URL is ever handed out twice.
func (f *Frontier) NextWave(n int) []Link {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n > len(f.pending) {
		n = len(f.pending)
	}
	if n <= 0 {
		return nil
	}

	wave := make([]Link, n)
	copy(wave, f.pending[:n])
	f.pending = f.pending[n:]

	for _, link := range wave {
		delete(f.pendingSet, link.URL)
		f.visited[link.URL] = link.Type
	}
	return wave
}

// MarkFailed records url as failed. It returns false if url was never visited.
func (f *Frontier) MarkFailed(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[url]; !ok {
		return false
	}
	f.failed[url] = struct{}{}
	return true
}

// AddCount increments the tally for t and returns the new value.
func (f *Frontier) AddCount(t webgrab.ResourceType) int {
	c, ok := f.counts[t]
	if !ok {
		return 0
	}
	return int(c.Add(1))
}

// Counts returns a snapshot of the per-type tallies.
func (f *Frontier) Counts() webgrab.ResourceCounts {
	counts := make(webgrab.ResourceCounts, len(f.counts))
	for t, c := range f.counts {
		counts[t] = int(c.Load())
	}
	return counts
}

// Failed returns the failed URLs sorted.
func (f *Frontier) Failed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	urls := make([]string, 0, len(f.failed))
	for u := range f.failed {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// VisitedCount returns how many pages have been visited. Resources handed
// out for download are visited too but are reported through Counts.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	for _, t := range f.visited {
		if t == webgrab.HTML {
			n++
		}
	}
	return n
}

// Len returns the number of pending links.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Visited reports whether url has been handed out.
func (f *Frontier) Visited(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[url]
	return ok
}

// Pending returns the pending URLs in discovery order.
func (f *Frontier) Pending() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	urls := make([]string, len(f.pending))
	for i, link := range f.pending {
		urls[i] = link.URL
	}
	return urls
}
