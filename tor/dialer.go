// Package tor routes crawl traffic through a Tor SOCKS5 proxy. It provides a
// SOCKS5 dialer for the HTTP backend, a connectivity check run before a
// crawl, and an optional embedded Tor daemon.
package tor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultSocksAddr is where a local Tor daemon listens by default.
const DefaultSocksAddr = "127.0.0.1:9050"

// checkTimeout bounds the connectivity check.
const checkTimeout = 5 * time.Second

// Connectivity errors.
var (
	ErrInvalidAddress = errors.New("invalid proxy address: expected host:port")
	ErrCannotConnect  = errors.New("cannot connect to Tor proxy")
	ErrNotSOCKS5      = errors.New("proxy does not speak SOCKS5")
	ErrTimeout        = errors.New("timeout connecting to Tor proxy")
)

// Dialer opens connections through a SOCKS5 proxy.
type Dialer struct {
	addr   string
	dialer proxy.Dialer
}

// NewDialer creates a Dialer for the proxy at addr ("host:port").
// It does not contact the proxy; call CheckConnection for that.
func NewDialer(addr string) (*Dialer, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return nil, ErrInvalidAddress
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return nil, ErrInvalidAddress
	}

	// Tor's SOCKS port does not require authentication.
	d, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("create SOCKS5 dialer: %w", err)
	}
	return &Dialer{addr: addr, dialer: d}, nil
}

// Addr returns the proxy address.
func (d *Dialer) Addr() string {
	return d.addr
}

// ProxyURL returns the proxy as a socks5:// URL for browser flags.
func (d *Dialer) ProxyURL() string {
	return "socks5://" + d.addr
}

// DialContext connects to addr through the proxy.
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, addr)
	}

	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := d.dialer.Dial(network, addr)
		ch <- result{conn, err}
	}()
	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// SOCKS5 protocol bytes used by the check.
const (
	socksVersion    = 0x05
	socksNoAuth     = 0x00
	socksConnect    = 0x01
	socksDomainName = 0x03

	// probeHost never resolves; only the proxy's answer matters.
	probeHost = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"
)

// CheckConnection performs a SOCKS5 handshake and a CONNECT request against
// the proxy. Any well-formed CONNECT reply, including a failure code,
// counts as a working proxy.
func (d *Dialer) CheckConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", d.addr)
	if err != nil {
		if ctx.Err() != nil {
			return ErrTimeout
		}
		return fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}

	if _, err := conn.Write([]byte{socksVersion, 1, socksNoAuth}); err != nil {
		return fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}
	reply := make([]byte, 2)
	if err := readReply(conn, reply); err != nil {
		return err
	}
	if reply[0] != socksVersion || reply[1] != socksNoAuth {
		return ErrNotSOCKS5
	}

	req := []byte{socksVersion, socksConnect, 0x00, socksDomainName, byte(len(probeHost))}
	req = append(req, probeHost...)
	req = append(req, 0x00, 80)
	if _, err := conn.Write(req); err != nil {
		return fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}
	header := make([]byte, 4)
	if err := readReply(conn, header); err != nil {
		return err
	}
	if header[0] != socksVersion {
		return ErrNotSOCKS5
	}
	return nil
}

func readReply(conn net.Conn, buf []byte) error {
	if _, err := io.ReadFull(conn, buf); err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return ErrTimeout
		}
		return ErrNotSOCKS5
	}
	return nil
}
