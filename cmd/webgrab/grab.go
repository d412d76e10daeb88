package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/webgrab"
	"github.com/fwojciec/webgrab/crawl"
	"github.com/fwojciec/webgrab/fs"
	"github.com/fwojciec/webgrab/goquery"
	"github.com/fwojciec/webgrab/markdown"
	wgslog "github.com/fwojciec/webgrab/slog"
	"github.com/google/uuid"
)

// Run grabs the site described by the flags.
func (c *CLI) Run(ctx context.Context, stdout, stderr io.Writer) error {
	job := c.Job()
	job.RunID = uuid.NewString()
	if err := job.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", webgrab.ErrorMessage(err))
		return err
	}

	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})).
		With("run", job.RunID)

	store := fs.NewStore(job.Output)
	if err := store.Init(); err != nil {
		return err
	}

	transports, err := c.openBackends(ctx, job, logger)
	if err != nil {
		return err
	}
	defer transports.Close()

	extractor := goquery.NewExtractor()
	port := crawl.NewPort(transports.page,
		crawl.WithRawBackend(transports.raw),
		crawl.WithExtractor(extractor),
		crawl.WithDelay(job.Delay),
		crawl.WithTimeout(job.Timeout),
	)

	crawler := &crawl.Crawler{
		Fetcher:    wgslog.NewLoggingFetcher(port, logger),
		Downloader: wgslog.NewLoggingDownloader(port, logger),
		Extractor:  extractor,
		Persister:  wgslog.NewLoggingPersister(store, logger),
		Failures:   fs.NewFailureList(fs.FailedListPath(job.Output)),
	}

	fmt.Fprintf(stdout, "Grabbing %s into %s (strategy %s)\n", job.Seed, job.Output, job.Strategy)
	summary, err := crawler.Run(ctx, job, progressPrinter(stdout, stderr))
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", webgrab.ErrorMessage(err))
		return err
	}

	printSummary(stdout, summary)
	if len(summary.FailedURLs) > 0 {
		fmt.Fprintf(stdout, "Failed URLs saved to %s; rerun with --retry-failed\n", fs.FailedListPath(job.Output))
	}

	if c.Report {
		path := filepath.Join(job.Output, markdown.ReportName)
		if err := writeReport(path, summary); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Report written to %s\n", path)
	}
	return ctx.Err()
}

func progressPrinter(stdout, stderr io.Writer) crawl.ProgressFunc {
	return func(e crawl.ProgressEvent) {
		switch e.Type {
		case crawl.ProgressCompleted:
			fmt.Fprintf(stdout, "saved %-9s %s\n", e.Kind, e.Path)
		case crawl.ProgressFailed:
			fmt.Fprintf(stderr, "skip %s: %v\n", e.URL, e.Error)
		case crawl.ProgressWave:
			fmt.Fprintf(stdout, "wave %d: %d pages visited, %d pending\n", e.Wave, e.Visited, e.Pending)
		}
	}
}

func printSummary(w io.Writer, s *webgrab.Summary) {
	fmt.Fprintf(w, "Finished in %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Pages visited: %d\n", s.VisitedCount)
	fmt.Fprintf(w, "Failed: %d\n", s.FailedCount)
	for _, t := range webgrab.ResourceTypes {
		fmt.Fprintf(w, "  %s: %d\n", t, s.Counts[t])
	}
}

func writeReport(path string, s *webgrab.Summary) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return markdown.WriteSummary(f, s)
}

// normalizeSeed assumes https for seeds typed without a scheme.
func normalizeSeed(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "" && !strings.Contains(raw, "://") {
		return "https://" + raw
	}
	return raw
}
