// Package rod provides the JavaScript-rendering transport backend built on a
// headless Chrome driven by go-rod.
package rod

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fwojciec/webgrab"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultIdleTimeout bounds the wait for the page to go idle after load.
const DefaultIdleTimeout = 2 * time.Second

// maxScrolls bounds lazy-load scrolling on infinite pages.
const maxScrolls = 10

// Ensure Backend implements webgrab.Backend at compile time.
var _ webgrab.Backend = (*Backend)(nil)

// Backend renders pages in a managed browser and returns the resulting DOM.
// Backend is safe for concurrent use by multiple goroutines.
type Backend struct {
	manager     *BrowserManager
	userAgent   string
	idleTimeout time.Duration
}

// Option configures a Backend.
type Option func(*Backend)

// WithUserAgent overrides the browser's user agent on every page.
func WithUserAgent(ua string) Option {
	return func(b *Backend) {
		b.userAgent = ua
	}
}

// WithIdleTimeout sets how long to wait for the page to settle after load.
func WithIdleTimeout(d time.Duration) Option {
	return func(b *Backend) {
		b.idleTimeout = d
	}
}

// NewBackend returns a Backend rendering pages in manager's browser.
// Closing the Backend closes the manager.
func NewBackend(manager *BrowserManager, opts ...Option) *Backend {
	b := &Backend{
		manager:     manager,
		idleTimeout: DefaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Get navigates to url and returns the rendered HTML. When opts.RenderJS is
// false scripts are disabled before navigation.
func (b *Backend) Get(ctx context.Context, url string, opts webgrab.FetchOptions) (*webgrab.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.manager == nil {
		return nil, webgrab.Errorf(webgrab.EUNAVAILABLE, "browser not initialized")
	}
	browser, release := b.manager.Acquire()
	if browser == nil {
		return nil, webgrab.Errorf(webgrab.EUNAVAILABLE, "browser closed")
	}
	defer release()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	defer page.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	page = page.Context(ctx)

	if b.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.userAgent}); err != nil {
			return nil, fmt.Errorf("setting user agent: %w", err)
		}
	}
	if !opts.RenderJS {
		if err := (proto.EmulationSetScriptExecutionDisabled{Value: true}).Call(page); err != nil {
			return nil, fmt.Errorf("disabling scripts: %w", err)
		}
	}

	status := http.StatusOK
	statusDone := make(chan struct{})
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})
	go func() {
		wait()
		close(statusDone)
	}()

	if err := page.Navigate(url); err != nil {
		return nil, err
	}
	if err := page.WaitLoad(); err != nil {
		return nil, err
	}
	if opts.RenderJS {
		// Pages that never go idle are captured as they are.
		_ = page.Timeout(b.idleTimeout).WaitIdle(b.idleTimeout)
		if opts.Scroll {
			if err := b.scroll(page); err != nil {
				return nil, err
			}
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, err
	}

	resp := &webgrab.Response{
		URL:         url,
		FinalURL:    url,
		StatusCode:  http.StatusOK,
		ContentType: "text/html",
		Body:        []byte(html),
	}
	select {
	case <-statusDone:
		resp.StatusCode = status
	default:
	}
	if info, err := page.Info(); err == nil && info.URL != "" {
		resp.FinalURL = info.URL
	}
	if obj, err := page.Eval(`() => document.contentType`); err == nil {
		if ct := obj.Value.Str(); ct != "" {
			resp.ContentType = ct
		}
	}
	return resp, nil
}

// scroll scrolls to the bottom until the document stops growing.
func (b *Backend) scroll(page *rod.Page) error {
	last := -1
	for range maxScrolls {
		obj, err := page.Eval(`() => {
			const el = document.scrollingElement || document.body;
			if (!el) return 0;
			window.scrollTo(0, el.scrollHeight);
			return el.scrollHeight;
		}`)
		if err != nil {
			return fmt.Errorf("scrolling: %w", err)
		}
		height := obj.Value.Int()
		if height == last {
			return nil
		}
		last = height
		_ = page.Timeout(b.idleTimeout).WaitIdle(b.idleTimeout)
	}
	return nil
}

// Close releases browser resources. Close is safe to call multiple times.
func (b *Backend) Close() error {
	if b.manager == nil {
		return nil
	}
	return b.manager.Close()
}
