package crawl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/webgrab"
)

// Compile-time interface verification.
var (
	_ webgrab.Fetcher    = (*Port)(nil)
	_ webgrab.Downloader = (*Port)(nil)
)

// Port turns transport backends into a Fetcher and Downloader. It applies the
// behavior every strategy shares: per-host spacing, per-attempt timeouts,
// retries, content-type routing and resource extraction.
type Port struct {
	page      webgrab.Backend
	raw       webgrab.Backend
	extractor webgrab.Extractor
	limiter   webgrab.DomainLimiter
	delays    []time.Duration
	timeout   time.Duration
}

// PortOption configures a Port.
type PortOption func(*Port)

// WithRawBackend sets the backend used for resource downloads.
// By default downloads go through the page backend.
func WithRawBackend(b webgrab.Backend) PortOption {
	return func(p *Port) {
		p.raw = b
	}
}

// WithExtractor sets the extractor used to collect embedded resources.
func WithExtractor(e webgrab.Extractor) PortOption {
	return func(p *Port) {
		p.extractor = e
	}
}

// WithLimiter sets the per-host limiter.
func WithLimiter(l webgrab.DomainLimiter) PortOption {
	return func(p *Port) {
		p.limiter = l
	}
}

// WithDelay spaces requests to each host by d.
func WithDelay(d time.Duration) PortOption {
	return func(p *Port) {
		p.limiter = NewDomainLimiter(d)
	}
}

// WithRetryDelays overrides the retry backoff.
func WithRetryDelays(delays []time.Duration) PortOption {
	return func(p *Port) {
		p.delays = delays
	}
}

// WithTimeout bounds each request attempt.
func WithTimeout(d time.Duration) PortOption {
	return func(p *Port) {
		p.timeout = d
	}
}

// NewPort creates a Port fetching pages through page.
func NewPort(page webgrab.Backend, opts ...PortOption) *Port {
	p := &Port{
		page:    page,
		delays:  DefaultRetryDelays(),
		timeout: webgrab.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.raw == nil {
		p.raw = page
	}
	return p
}

// Fetch retrieves url through the page backend. Transport failures, error
// statuses and unsupported content produce an empty result with a reason.
// Resource content types set NonHTML so the caller can download the URL
// directly, as does an HTML content type whose body sniffs as something else.
func (p *Port) Fetch(ctx context.Context, url string, opts webgrab.FetchOptions) (*webgrab.FetchResult, error) {
	if p.page == nil {
		return nil, webgrab.Errorf(webgrab.EUNAVAILABLE, "fetch backend not initialized")
	}

	resp, err := p.get(ctx, p.page, url, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &webgrab.FetchResult{Reason: err.Error()}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &webgrab.FetchResult{
			ContentType: resp.ContentType,
			Reason:      fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}, nil
	}

	typ, ok := webgrab.ClassifyContentType(resp.ContentType)
	if !ok {
		return &webgrab.FetchResult{
			ContentType: resp.ContentType,
			Reason:      fmt.Sprintf("unsupported content type %q", resp.ContentType),
		}, nil
	}
	if typ != webgrab.HTML {
		return &webgrab.FetchResult{
			NonHTML:     typ,
			ContentType: resp.ContentType,
			Reason:      fmt.Sprintf("content type %q", resp.ContentType),
		}, nil
	}
	if !webgrab.IsHTML(resp.Body) {
		if len(bytes.TrimSpace(resp.Body)) == 0 {
			return &webgrab.FetchResult{ContentType: resp.ContentType, Reason: "invalid HTML"}, nil
		}
		// Mislabeled content is routed by what the bytes say.
		sniffed := webgrab.ClassifyContent(resp.Body)
		return &webgrab.FetchResult{
			NonHTML:     sniffed,
			ContentType: resp.ContentType,
			Reason:      fmt.Sprintf("content sniffed as %s", sniffed),
		}, nil
	}

	result := &webgrab.FetchResult{
		HTML:        string(resp.Body),
		ContentType: resp.ContentType,
	}
	if p.extractor != nil {
		base := resp.FinalURL
		if base == "" {
			base = url
		}
		// A page whose resources cannot be parsed is still a page.
		if resources, err := p.extractor.ExtractResources(base, result.HTML); err == nil {
			result.Resources = resources
		}
	}
	return result, nil
}

// Download returns the raw bytes at url.
func (p *Port) Download(ctx context.Context, url string) ([]byte, error) {
	if p.raw == nil {
		return nil, webgrab.Errorf(webgrab.EUNAVAILABLE, "download backend not initialized")
	}

	resp, err := p.get(ctx, p.raw, url, webgrab.FetchOptions{})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}

// Close releases the backends.
func (p *Port) Close() error {
	var errs []error
	if p.page != nil {
		errs = append(errs, p.page.Close())
	}
	if p.raw != nil && p.raw != p.page {
		errs = append(errs, p.raw.Close())
	}
	return errors.Join(errs...)
}

func (p *Port) get(ctx context.Context, b webgrab.Backend, url string, opts webgrab.FetchOptions) (*webgrab.Response, error) {
	host := webgrab.HostOf(url)
	attempt := func(ctx context.Context, url string) (*webgrab.Response, error) {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx, host); err != nil {
				return nil, err
			}
		}
		if p.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		return b.Get(ctx, url, opts)
	}
	return FetchWithRetryDelays(ctx, url, attempt, p.delays)
}
