package mock

import (
	"context"

	"github.com/fwojciec/webgrab"
)

var _ webgrab.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of webgrab.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string, opts webgrab.FetchOptions) (*webgrab.FetchResult, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string, opts webgrab.FetchOptions) (*webgrab.FetchResult, error) {
	return f.FetchFn(ctx, url, opts)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}

var _ webgrab.Backend = (*Backend)(nil)

// Backend is a mock implementation of webgrab.Backend.
type Backend struct {
	GetFn   func(ctx context.Context, url string, opts webgrab.FetchOptions) (*webgrab.Response, error)
	CloseFn func() error
}

func (b *Backend) Get(ctx context.Context, url string, opts webgrab.FetchOptions) (*webgrab.Response, error) {
	return b.GetFn(ctx, url, opts)
}

func (b *Backend) Close() error {
	return b.CloseFn()
}

var _ webgrab.Downloader = (*Downloader)(nil)

// Downloader is a mock implementation of webgrab.Downloader.
type Downloader struct {
	DownloadFn func(ctx context.Context, url string) ([]byte, error)
}

func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	return d.DownloadFn(ctx, url)
}

var _ webgrab.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of webgrab.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, host string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, host string) error {
	return l.WaitFn(ctx, host)
}
