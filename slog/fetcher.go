// Package slog provides logging decorators for the webgrab ports.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/webgrab"
)

// Ensure LoggingFetcher implements webgrab.Fetcher.
var _ webgrab.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with logging.
type LoggingFetcher struct {
	next   webgrab.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next webgrab.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch logs the URL being fetched and delegates to the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string, opts webgrab.FetchOptions) (result *webgrab.FetchResult, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"url", url,
			"duration", time.Since(begin),
		}
		if result != nil {
			resources := 0
			for _, urls := range result.Resources {
				resources += len(urls)
			}
			attrs = append(attrs, "bytes", len(result.HTML), "resources", resources)
			if result.NonHTML != "" {
				attrs = append(attrs, "non_html", result.NonHTML)
			}
			if result.Reason != "" {
				attrs = append(attrs, "reason", result.Reason)
			}
		}
		attrs = append(attrs, "err", err)
		f.logger.Info("fetch", attrs...)
	}(time.Now())
	return f.next.Fetch(ctx, url, opts)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingFetcher) Close() error {
	return f.next.Close()
}
