package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fwojciec/webgrab"
	"github.com/fwojciec/webgrab/chromedp"
	wghttp "github.com/fwojciec/webgrab/http"
	"github.com/fwojciec/webgrab/rod"
	"github.com/fwojciec/webgrab/tor"
)

// backends holds the transports selected by the strategy. page renders
// pages; raw downloads resource bytes.
type backends struct {
	page webgrab.Backend
	raw  webgrab.Backend
	tor  *tor.EmbeddedTor
}

// Close releases every backend and stops an embedded Tor daemon.
func (b *backends) Close() error {
	var errs []error
	if b.page != nil {
		errs = append(errs, b.page.Close())
	}
	if b.raw != nil && b.raw != b.page {
		errs = append(errs, b.raw.Close())
	}
	if b.tor != nil {
		errs = append(errs, b.tor.Stop())
	}
	return errors.Join(errs...)
}

// openBackends builds the transports for job.Strategy. Tor is checked for
// reachability before any crawling starts.
func (c *CLI) openBackends(ctx context.Context, job *webgrab.CrawlJob, logger *slog.Logger) (*backends, error) {
	b := &backends{}
	httpOpts := []wghttp.Option{
		wghttp.WithTimeout(job.Timeout),
		wghttp.WithUserAgent(c.UserAgent),
	}

	var dialer *tor.Dialer
	if job.Strategy == webgrab.StrategyTor || c.Tor {
		d, err := c.openTor(ctx, b, logger)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		dialer = d
		httpOpts = append(httpOpts, wghttp.WithDialContext(dialer.DialContext))
	}

	b.raw = wghttp.NewClient(httpOpts...)

	switch job.Strategy {
	case webgrab.StrategyHTTP, webgrab.StrategyTor:
		b.page = b.raw
	case webgrab.StrategyRod:
		managerOpts := []rod.ManagerOption{}
		if dialer != nil {
			managerOpts = append(managerOpts, rod.WithProxy(dialer.ProxyURL()))
		}
		manager, err := rod.NewBrowserManager(managerOpts...)
		if err != nil {
			_ = b.Close()
			return nil, webgrab.Errorf(webgrab.EUNAVAILABLE, "failed to start browser (Chrome or Chromium must be installed): %v", err)
		}
		b.page = rod.NewBackend(manager, rod.WithUserAgent(c.UserAgent))
	case webgrab.StrategyStealth:
		opts := []chromedp.Option{chromedp.WithUserAgent(c.UserAgent)}
		if dialer != nil {
			opts = append(opts, chromedp.WithProxy(dialer.ProxyURL()))
		}
		backend, err := chromedp.NewBackend(opts...)
		if err != nil {
			_ = b.Close()
			return nil, webgrab.Errorf(webgrab.EUNAVAILABLE, "failed to start browser (Chrome or Chromium must be installed): %v", err)
		}
		logger.Debug("stealth identity",
			"user_agent", backend.Identity().UserAgent,
			"platform", backend.Identity().Platform,
			"webgl_renderer", backend.Identity().WebGLRenderer,
		)
		b.page = backend
	default:
		_ = b.Close()
		return nil, webgrab.Errorf(webgrab.EINVALID, "unknown strategy %q", job.Strategy)
	}
	return b, nil
}

// openTor returns a dialer for the configured or embedded Tor daemon after
// verifying the SOCKS5 endpoint answers.
func (c *CLI) openTor(ctx context.Context, b *backends, logger *slog.Logger) (*tor.Dialer, error) {
	if c.TorEmbedded {
		embedded := tor.NewEmbeddedTor()
		logger.Info("starting embedded tor")
		if err := embedded.Start(ctx); err != nil {
			return nil, webgrab.Errorf(webgrab.EUNAVAILABLE, "embedded tor: %v", err)
		}
		b.tor = embedded
		d, err := embedded.Dialer()
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	d, err := tor.NewDialer(c.TorAddr)
	if err != nil {
		return nil, webgrab.Errorf(webgrab.EINVALID, "tor address: %v", err)
	}
	if err := d.CheckConnection(ctx); err != nil {
		return nil, webgrab.Errorf(webgrab.EUNAVAILABLE, "tor not reachable at %s: %v", d.Addr(), err)
	}
	return d, nil
}
