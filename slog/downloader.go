package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/webgrab"
)

// Ensure LoggingDownloader implements webgrab.Downloader.
var _ webgrab.Downloader = (*LoggingDownloader)(nil)

// LoggingDownloader wraps a Downloader with logging.
type LoggingDownloader struct {
	next   webgrab.Downloader
	logger *slog.Logger
}

// NewLoggingDownloader creates a new LoggingDownloader.
func NewLoggingDownloader(next webgrab.Downloader, logger *slog.Logger) *LoggingDownloader {
	return &LoggingDownloader{next: next, logger: logger}
}

// Download logs the URL being downloaded and delegates to the wrapped downloader.
func (d *LoggingDownloader) Download(ctx context.Context, url string) (body []byte, err error) {
	defer func(begin time.Time) {
		d.logger.Info("download",
			"url", url,
			"bytes", len(body),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return d.next.Download(ctx, url)
}
