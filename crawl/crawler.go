// Package crawl drives a website crawl: the frontier of pending, visited and
// failed URLs, the wave scheduler that fetches and persists them, and the
// port adapter that gives every transport backend the same fetch behavior.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fwojciec/webgrab"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoContent is reported for pages that yield no HTML and no resource type.
var ErrNoContent = errors.New("no content")

// Crawler mirrors a website to disk.
type Crawler struct {
	Fetcher    webgrab.Fetcher
	Downloader webgrab.Downloader
	Extractor  webgrab.Extractor
	Persister  webgrab.Persister

	// Failures stores the failure list between runs. Optional.
	Failures webgrab.FailureStore
}

// ProgressEvent reports progress during a crawl.
type ProgressEvent struct {
	Type    ProgressType
	URL     string
	Kind    webgrab.ResourceType
	Path    string
	Wave    int
	Visited int
	Pending int
	Error   error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressWave
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting crawl progress.
// Calls are serialized.
type ProgressFunc func(event ProgressEvent)

// run holds the state of a single Run call.
type run struct {
	*Crawler
	job      *webgrab.CrawlJob
	frontier *Frontier

	mu       sync.Mutex
	progress ProgressFunc
}

// Run crawls job.Seed in waves until the frontier is empty. URL-level
// failures never abort the run; they are collected and stored through
// Failures. Setup errors are returned before any request is made.
func (c *Crawler) Run(ctx context.Context, job *webgrab.CrawlJob, progress ProgressFunc) (*webgrab.Summary, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if c.Fetcher == nil || c.Downloader == nil || c.Persister == nil {
		return nil, webgrab.Errorf(webgrab.EUNAVAILABLE, "crawler not initialized")
	}

	started := time.Now()
	runID := job.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	r := &run{
		Crawler:  c,
		job:      job,
		frontier: NewFrontier(frontierExpectedURLs, WithMaxPages(job.MaxPages)),
		progress: progress,
	}

	// Previously failed URLs go first and bypass the domain rule: they
	// passed it in the run that recorded them.
	if job.RetryFailed && c.Failures != nil {
		urls, err := c.Failures.Load()
		if err != nil {
			return nil, fmt.Errorf("load failed urls: %w", err)
		}
		for _, u := range urls {
			if t := webgrab.Classify(u); t != webgrab.Skip {
				r.frontier.Push(Link{URL: webgrab.Canonical(u), Depth: 0, Type: t})
			}
		}
	}

	seedType := webgrab.Classify(job.Seed)
	if seedType == webgrab.Skip {
		seedType = webgrab.HTML
	}
	r.frontier.Push(Link{URL: webgrab.Canonical(job.Seed), Depth: 0, Type: seedType})

	r.report(ProgressEvent{Type: ProgressStarted, URL: job.Seed, Pending: r.frontier.Len()})

	var wave int
	for r.frontier.Len() > 0 {
		if ctx.Err() != nil {
			break
		}
		wave++

		links := r.frontier.NextWave(2 * job.Concurrency)

		// A started wave runs to completion; cancellation stops the next one.
		work := context.WithoutCancel(ctx)
		var g errgroup.Group
		g.SetLimit(job.Concurrency)
		for _, link := range links {
			g.Go(func() error {
				r.process(work, link)
				return nil
			})
		}
		_ = g.Wait()

		r.report(ProgressEvent{
			Type:    ProgressWave,
			Wave:    wave,
			Visited: r.frontier.VisitedCount(),
			Pending: r.frontier.Len(),
		})

		if r.frontier.Len() > 0 && job.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(job.Delay):
			}
		}
	}

	failed := r.frontier.Failed()
	if c.Failures != nil {
		if err := c.Failures.Store(failed); err != nil {
			return nil, fmt.Errorf("store failed urls: %w", err)
		}
	}

	summary := &webgrab.Summary{
		RunID:        runID,
		Seed:         job.Seed,
		VisitedCount: r.frontier.VisitedCount(),
		FailedCount:  len(failed),
		Counts:       r.frontier.Counts(),
		FailedURLs:   failed,
		Started:      started,
		Duration:     time.Since(started),
	}

	r.report(ProgressEvent{
		Type:    ProgressFinished,
		Visited: summary.VisitedCount,
		Pending: r.frontier.Len(),
	})

	return summary, nil
}

func (r *run) report(event ProgressEvent) {
	if r.progress == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress(event)
}

func (r *run) fail(url string, kind webgrab.ResourceType, err error) {
	r.frontier.MarkFailed(url)
	r.report(ProgressEvent{Type: ProgressFailed, URL: url, Kind: kind, Error: err})
}

// process handles one visited link. Resources go straight to the persister;
// pages are fetched, saved and expanded.
func (r *run) process(ctx context.Context, link Link) {
	if link.Type != webgrab.HTML {
		r.saveResource(ctx, link.URL, link.Type, func(ctx context.Context) ([]byte, error) {
			return r.Downloader.Download(ctx, link.URL)
		})
		return
	}

	result, err := r.Fetcher.Fetch(ctx, link.URL, r.job.FetchOptions())
	if err != nil {
		r.fail(link.URL, webgrab.HTML, err)
		return
	}
	if result.Empty() {
		if result != nil && result.NonHTML != "" && result.NonHTML != webgrab.Skip && result.NonHTML != webgrab.HTML {
			r.saveResource(ctx, link.URL, result.NonHTML, func(ctx context.Context) ([]byte, error) {
				return r.Downloader.Download(ctx, link.URL)
			})
			return
		}
		err := ErrNoContent
		if result != nil && result.Reason != "" {
			err = fmt.Errorf("%w: %s", ErrNoContent, result.Reason)
		}
		r.fail(link.URL, webgrab.HTML, err)
		return
	}

	body := []byte(result.HTML)
	content := func(context.Context) ([]byte, error) { return body, nil }

	// The bytes disagree with the page guess: store them as what they are.
	if !webgrab.IsHTML(body) {
		if t := webgrab.ClassifyContent(body); t != webgrab.HTML {
			r.saveResource(ctx, link.URL, t, content)
			return
		}
	}

	// A rejected page is still expanded; its links are real.
	r.saveResource(ctx, link.URL, webgrab.HTML, content)
	r.expand(link, result)
}

func (r *run) saveResource(ctx context.Context, url string, declared webgrab.ResourceType, content webgrab.ContentFunc) {
	outcome, err := r.Persister.Save(ctx, url, declared, content)
	if err != nil {
		r.fail(url, declared, err)
		return
	}
	if !outcome.Accepted() {
		r.fail(url, declared, fmt.Errorf("rejected: %s", outcome.Reason))
		return
	}
	r.frontier.AddCount(outcome.File.Type)
	r.report(ProgressEvent{
		Type: ProgressCompleted,
		URL:  url,
		Kind: outcome.File.Type,
		Path: outcome.File.Path,
	})
}

// expand feeds the resources and links of a fetched page into the frontier.
// Resources belong to the page and keep its depth; links are one level deeper.
func (r *run) expand(link Link, result *webgrab.FetchResult) {
	if r.job.Resources {
		for t, urls := range result.Resources {
			for _, u := range urls {
				r.enqueue(Link{URL: u, Depth: link.Depth, Type: t}, true)
			}
		}
	}

	if !r.job.Links || r.Extractor == nil {
		return
	}
	depth := link.Depth + 1
	if r.job.MaxDepth >= 0 && depth > r.job.MaxDepth {
		return
	}
	links, err := r.Extractor.ExtractLinks(link.URL, result.HTML)
	if err != nil {
		return
	}
	for _, u := range links {
		r.enqueue(Link{URL: u, Depth: depth, Type: webgrab.Classify(u)}, false)
	}
}

func (r *run) enqueue(link Link, resource bool) bool {
	if link.Type == webgrab.Skip || !link.Type.Valid() {
		return false
	}
	if !webgrab.IsCrawlable(link.URL) || !webgrab.IsHTTPURL(link.URL) {
		return false
	}
	if link.Type != webgrab.HTML && !r.job.Resources {
		return false
	}
	link.URL = webgrab.Canonical(link.URL)
	if r.job.RestrictDomain && !(resource && r.job.ExternalResources) {
		if !webgrab.IsSameDomain(r.job.Seed, link.URL) {
			return false
		}
	}
	return r.frontier.Push(link)
}
