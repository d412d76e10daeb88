package webgrab

import "context"

// FetchOptions tune a single page fetch.
type FetchOptions struct {
	// RenderJS asks browser backends to execute JavaScript before capturing HTML.
	RenderJS bool
	// Scroll asks browser backends to scroll to the bottom to trigger lazy loading.
	Scroll bool
}

// FetchResult is what a page fetch yields. An empty HTML with a nil error is a
// soft failure. When NonHTML is set the URL turned out to serve a resource of
// that type and should be downloaded directly.
type FetchResult struct {
	HTML        string
	Resources   map[ResourceType][]string
	NonHTML     ResourceType
	ContentType string
	// Reason explains an empty result.
	Reason string
}

// Empty reports whether the fetch produced no HTML.
func (r *FetchResult) Empty() bool {
	return r == nil || r.HTML == ""
}

// Fetcher retrieves a page's HTML and the resources it embeds.
// Implementations are safe for concurrent use.
type Fetcher interface {
	// Fetch returns an error only for unrecoverable conditions such as an
	// uninitialized backend. Network trouble yields an empty result.
	Fetch(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error)

	// Close releases backend resources.
	Close() error
}

// Response is a raw response from a transport backend.
type Response struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Backend performs a single request over some transport: a plain HTTP
// client, a proxied client or a headless browser.
type Backend interface {
	Get(ctx context.Context, url string, opts FetchOptions) (*Response, error)
	Close() error
}

// Downloader retrieves the raw bytes of a resource.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Extractor finds links and embedded resources in HTML.
type Extractor interface {
	// ExtractLinks returns absolute, deduplicated, crawlable page links.
	ExtractLinks(baseURL, html string) ([]string, error)

	// ExtractResources returns absolute resource URLs grouped by type.
	ExtractResources(baseURL, html string) (map[ResourceType][]string, error)
}

// DomainLimiter enforces a minimum delay between requests to the same host.
type DomainLimiter interface {
	// Wait blocks until a request to host is allowed.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, host string) error
}
