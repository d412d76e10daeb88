package tor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
)

// DefaultStartupTimeout bounds how long the embedded daemon may bootstrap.
const DefaultStartupTimeout = 3 * time.Minute

// EmbeddedTor runs a private Tor daemon for the duration of a crawl.
// Bootstrapping takes a while because the daemon has to build circuits.
type EmbeddedTor struct {
	process        *tornago.TorProcess
	socksAddr      string
	startupTimeout time.Duration
}

// EmbeddedOption configures an EmbeddedTor.
type EmbeddedOption func(*EmbeddedTor)

// WithStartupTimeout overrides DefaultStartupTimeout.
func WithStartupTimeout(d time.Duration) EmbeddedOption {
	return func(e *EmbeddedTor) {
		e.startupTimeout = d
	}
}

// NewEmbeddedTor creates an EmbeddedTor. Call Start to launch it.
func NewEmbeddedTor(opts ...EmbeddedOption) *EmbeddedTor {
	e := &EmbeddedTor{startupTimeout: DefaultStartupTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the daemon on OS-assigned ports and blocks until it has
// bootstrapped.
func (e *EmbeddedTor) Start(ctx context.Context) error {
	if e.process != nil {
		return errors.New("embedded Tor already running")
	}

	cfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(e.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(cfg)
	if err != nil {
		return fmt.Errorf("start embedded tor: %w", err)
	}
	if ctx.Err() != nil {
		_ = process.Stop()
		return ctx.Err()
	}

	e.process = process
	e.socksAddr = process.SocksAddr()
	return nil
}

// Stop shuts the daemon down. It is safe to call on a stopped instance.
func (e *EmbeddedTor) Stop() error {
	if e.process == nil {
		return nil
	}
	err := e.process.Stop()
	e.process = nil
	e.socksAddr = ""
	return err
}

// SocksAddr returns the daemon's SOCKS5 address, or "" when not running.
func (e *EmbeddedTor) SocksAddr() string {
	return e.socksAddr
}

// Running reports whether the daemon is up.
func (e *EmbeddedTor) Running() bool {
	return e.process != nil
}

// Dialer returns a Dialer for the running daemon.
func (e *EmbeddedTor) Dialer() (*Dialer, error) {
	if e.process == nil {
		return nil, errors.New("embedded Tor is not running")
	}
	return NewDialer(e.socksAddr)
}
