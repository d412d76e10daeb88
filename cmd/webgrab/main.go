package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/alecthomas/kong"
	"github.com/fwojciec/webgrab"
	"github.com/fwojciec/webgrab/tor"
	"github.com/fwojciec/webgrab/yaml"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// ConfigPaths are YAML files consulted for flag defaults. Missing files
	// are ignored.
	ConfigPaths []string
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		ConfigPaths: []string{filepath.Join(xdg.ConfigHome, "webgrab", "config.yaml")},
	}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("webgrab"),
		kong.Description("Mirror a website's pages, images, videos and documents to disk"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Configuration(yaml.Loader, m.ConfigPaths...),
		kong.Vars{"tor_addr": tor.DefaultSocksAddr},
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no arguments provided")
	}

	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}

	return cli.Run(ctx, stdout, stderr)
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	URL               string          `arg:"" help:"Website URL to grab"`
	Output            string          `short:"o" help:"Output directory (default: the site name)"`
	Depth             int             `short:"d" default:"100" help:"Maximum link depth, -1 for unlimited"`
	Threads           int             `short:"t" default:"5" help:"Concurrent requests"`
	Delay             time.Duration   `default:"500ms" help:"Minimum delay between requests to the same host"`
	Timeout           time.Duration   `default:"30s" help:"Per-request timeout"`
	UserAgent         string          `name:"user-agent" help:"User agent override"`
	Strategy          string          `short:"s" enum:"http,tor,rod,stealth" default:"http" help:"Fetch strategy (http, tor, rod, stealth)"`
	Tor               bool            `help:"Route browser strategies through Tor"`
	TorAddr           string          `name:"tor-addr" default:"${tor_addr}" help:"Tor SOCKS5 address"`
	TorEmbedded       bool            `name:"tor-embedded" help:"Launch a private Tor daemon instead of using --tor-addr"`
	RetryFailed       bool            `name:"retry-failed" help:"Retry URLs that failed in the previous run"`
	NoResources       bool            `name:"no-resources" help:"Do not download images, videos or documents"`
	NoLinks           bool            `name:"no-links" help:"Do not follow links"`
	AllowExternal     bool            `name:"allow-external" help:"Follow links to other domains"`
	ExternalResources bool            `name:"external-resources" help:"Download resources hosted on other domains"`
	MaxPages          int             `name:"max-pages" help:"Stop queueing pages after this many, 0 for no limit"`
	NoJS              bool            `name:"no-js" help:"Do not run JavaScript in browser strategies"`
	NoScroll          bool            `name:"no-scroll" help:"Do not scroll pages to trigger lazy loading"`
	Report            bool            `help:"Write a Markdown report to the output directory"`
	Verbose           bool            `short:"v" help:"Log every request"`
	Config            kong.ConfigFlag `help:"YAML config file"`
}

// Job builds the crawl job described by the flags.
func (c *CLI) Job() *webgrab.CrawlJob {
	seed := normalizeSeed(c.URL)
	output := c.Output
	if output == "" {
		output = webgrab.SiteName(seed)
	}

	job := webgrab.NewCrawlJob(seed, output)
	job.MaxDepth = c.Depth
	job.Concurrency = c.Threads
	job.Delay = c.Delay
	job.Timeout = c.Timeout
	job.Strategy = webgrab.Strategy(c.Strategy)
	job.RetryFailed = c.RetryFailed
	job.Resources = !c.NoResources
	job.Links = !c.NoLinks
	job.RestrictDomain = !c.AllowExternal
	job.ExternalResources = c.ExternalResources
	job.MaxPages = c.MaxPages
	job.RenderJS = !c.NoJS
	job.Scroll = !c.NoScroll
	return job
}
