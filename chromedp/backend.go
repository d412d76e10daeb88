// Package chromedp provides the stealth browser backend. It drives Chrome
// through chromedp with automation markers removed and a randomized desktop
// identity applied to every page.
package chromedp

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/fwojciec/webgrab"
)

// DefaultSettleDelay is how long a rendered page may settle before capture.
const DefaultSettleDelay = 250 * time.Millisecond

// maxScrolls bounds lazy-load scrolling on infinite pages.
const maxScrolls = 10

// Ensure Backend implements webgrab.Backend at compile time.
var _ webgrab.Backend = (*Backend)(nil)

// Backend renders pages in tabs of a single stealth browser.
// Backend is safe for concurrent use by multiple goroutines.
type Backend struct {
	identity    Identity
	proxy       string
	headless    bool
	settleDelay time.Duration

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	closeOnce     sync.Once
	closed        atomic.Bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithIdentity replaces the randomly drawn identity.
func WithIdentity(id Identity) Option {
	return func(b *Backend) {
		b.identity = id
	}
}

// WithUserAgent keeps the drawn identity but presents ua.
func WithUserAgent(ua string) Option {
	return func(b *Backend) {
		if ua != "" {
			b.identity.UserAgent = ua
			b.identity.Platform = platformOf(ua)
		}
	}
}

// WithProxy routes browser traffic through proxy, e.g. "socks5://127.0.0.1:9050".
func WithProxy(proxy string) Option {
	return func(b *Backend) {
		b.proxy = proxy
	}
}

// WithHeadless toggles headless mode. Defaults to true.
func WithHeadless(headless bool) Option {
	return func(b *Backend) {
		b.headless = headless
	}
}

// WithSettleDelay sets the pause after load before the DOM is captured.
func WithSettleDelay(d time.Duration) Option {
	return func(b *Backend) {
		b.settleDelay = d
	}
}

// NewBackend launches the browser. Close must be called when the Backend is
// no longer needed.
func NewBackend(opts ...Option) (*Backend, error) {
	b := &Backend{
		identity:    NewIdentity(nil),
		headless:    true,
		settleDelay: DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(b)
	}

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(b.identity.UserAgent),
		chromedp.WindowSize(b.identity.Resolution.Width, b.identity.Resolution.Height),
	)
	if b.proxy != "" {
		execOpts = append(execOpts, chromedp.ProxyServer(b.proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	return b, nil
}

// Identity returns the fingerprint presented by the browser.
func (b *Backend) Identity() Identity {
	return b.identity
}

// Get opens url in a new tab and returns the rendered HTML.
func (b *Backend) Get(ctx context.Context, url string, opts webgrab.FetchOptions) (*webgrab.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.browserCtx == nil || b.closed.Load() {
		return nil, webgrab.Errorf(webgrab.EUNAVAILABLE, "browser closed")
	}

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		mu     sync.Mutex
		status int64
	)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if status == 0 {
			status = e.Response.Status
		}
	})

	var html, finalURL, contentType string
	actions := []chromedp.Action{
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(b.identity.Script()).Do(ctx)
			return err
		}),
	}
	if !opts.RenderJS {
		actions = append(actions, emulation.SetScriptExecutionDisabled(true))
	}
	actions = append(actions, chromedp.Navigate(url))
	if opts.RenderJS {
		actions = append(actions, waitForDocumentReady(), chromedp.Sleep(b.settleDelay))
		if opts.Scroll {
			actions = append(actions, b.scroll())
		}
	}
	actions = append(actions,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.Evaluate(`document.contentType`, &contentType),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("chromedp run: %w", err)
	}

	resp := &webgrab.Response{
		URL:         url,
		FinalURL:    finalURL,
		StatusCode:  200,
		ContentType: contentType,
		Body:        []byte(html),
	}
	mu.Lock()
	if status != 0 {
		resp.StatusCode = int(status)
	}
	mu.Unlock()
	if resp.FinalURL == "" {
		resp.FinalURL = url
	}
	if resp.ContentType == "" {
		resp.ContentType = "text/html"
	}
	return resp, nil
}

// scroll scrolls to the bottom until the document stops growing.
func (b *Backend) scroll() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		last := -1
		for range maxScrolls {
			var height int
			if err := chromedp.Evaluate(`(() => {
				const el = document.scrollingElement || document.body;
				if (!el) return 0;
				window.scrollTo(0, el.scrollHeight);
				return el.scrollHeight;
			})()`, &height).Do(ctx); err != nil {
				return fmt.Errorf("scrolling: %w", err)
			}
			if height == last {
				return nil
			}
			last = height
			if err := chromedp.Sleep(b.settleDelay).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

func waitForDocumentReady() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			var readyState string
			if err := chromedp.Evaluate(`document.readyState`, &readyState).Do(ctx); err != nil {
				return err
			}
			if readyState == "complete" {
				return nil
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

// Close shuts the browser down. Close is safe to call multiple times.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		if b.browserCtx != nil {
			err = chromedp.Cancel(b.browserCtx)
		}
		if b.browserCancel != nil {
			b.browserCancel()
		}
		if b.allocCancel != nil {
			b.allocCancel()
		}
	})
	return err
}
