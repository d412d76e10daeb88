package webgrab

import (
	"time"
)

// Strategy names a fetch backend.
type Strategy string

// Fetch strategies.
const (
	StrategyHTTP    Strategy = "http"
	StrategyTor     Strategy = "tor"
	StrategyRod     Strategy = "rod"
	StrategyStealth Strategy = "stealth"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyHTTP, StrategyTor, StrategyRod, StrategyStealth:
		return true
	}
	return false
}

// Job defaults.
const (
	DefaultConcurrency = 5
	DefaultDelay       = 500 * time.Millisecond
	DefaultTimeout     = 30 * time.Second
	DefaultMaxDepth    = 100
)

// CrawlJob describes one crawl run. It is not modified once the run starts.
type CrawlJob struct {
	// Seed is the absolute URL the crawl starts from.
	Seed string

	// MaxDepth bounds link distance from the seed. Zero crawls only the
	// seed page; a negative value removes the bound.
	MaxDepth int

	// RestrictDomain keeps the crawl on the seed host and its subdomains.
	RestrictDomain bool

	// ExternalResources allows embedded resources from other hosts even
	// when RestrictDomain is set.
	ExternalResources bool

	Concurrency int
	Delay       time.Duration
	Timeout     time.Duration
	Strategy    Strategy
	Output      string

	// RetryFailed seeds the frontier with the failure list of a previous run.
	RetryFailed bool

	// Resources and Links toggle resource downloads and link following.
	Resources bool
	Links     bool

	RenderJS bool
	Scroll   bool

	// MaxPages caps the number of pages fetched. Zero means no cap.
	MaxPages int

	// RunID labels the run in logs and reports. Generated when empty.
	RunID string
}

// NewCrawlJob returns a job for seed with default settings.
func NewCrawlJob(seed, output string) *CrawlJob {
	return &CrawlJob{
		Seed:           seed,
		MaxDepth:       DefaultMaxDepth,
		RestrictDomain: true,
		Concurrency:    DefaultConcurrency,
		Delay:          DefaultDelay,
		Timeout:        DefaultTimeout,
		Strategy:       StrategyHTTP,
		Output:         output,
		Resources:      true,
		Links:          true,
		RenderJS:       true,
		Scroll:         true,
	}
}

// Validate returns an error if the job cannot run.
func (j *CrawlJob) Validate() error {
	if j.Seed == "" {
		return Errorf(EINVALID, "seed URL required")
	}
	if !IsHTTPURL(j.Seed) {
		return Errorf(EINVALID, "seed URL must be an absolute http(s) URL: %q", j.Seed)
	}
	if j.Output == "" {
		return Errorf(EINVALID, "output directory required")
	}
	if j.Concurrency < 1 {
		return Errorf(EINVALID, "concurrency must be at least 1")
	}
	if j.Delay < 0 {
		return Errorf(EINVALID, "delay must not be negative")
	}
	if j.Timeout <= 0 {
		return Errorf(EINVALID, "timeout must be positive")
	}
	if j.MaxPages < 0 {
		return Errorf(EINVALID, "max pages must not be negative")
	}
	if !j.Strategy.Valid() {
		return Errorf(EINVALID, "unknown strategy %q", j.Strategy)
	}
	return nil
}

// FetchOptions returns the per-page options implied by the job.
func (j *CrawlJob) FetchOptions() FetchOptions {
	return FetchOptions{RenderJS: j.RenderJS, Scroll: j.Scroll}
}

// ResourceCounts tallies accepted resources per type.
type ResourceCounts map[ResourceType]int

// Total returns the sum of all counts.
func (c ResourceCounts) Total() int {
	var n int
	for _, v := range c {
		n += v
	}
	return n
}

// Summary is returned at the end of a run.
type Summary struct {
	RunID        string
	Seed         string
	VisitedCount int
	FailedCount  int
	Counts       ResourceCounts
	FailedURLs   []string
	Started      time.Time
	Duration     time.Duration
}
