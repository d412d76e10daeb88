package rod

import (
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultMaxPages is how many pages one browser process renders before it
// is replaced. Chrome's memory baseline creeps up over long crawls.
const DefaultMaxPages = 75

// session is one launched browser process.
type session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func (s *session) stop() error {
	err := s.browser.Close()
	s.launcher.Kill()
	return err
}

// BrowserManager hands out a shared browser and swaps it for a fresh process
// every maxPages pages. Safe for concurrent use.
type BrowserManager struct {
	maxPages int
	proxy    string
	headless bool

	mu      sync.Mutex
	current *session
	served  int
	closed  bool
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets how many pages a browser renders before being replaced.
// Zero or less disables recycling.
func WithMaxPages(n int) ManagerOption {
	return func(m *BrowserManager) {
		m.maxPages = n
	}
}

// WithProxy routes all browser traffic through proxy, for example
// "socks5://127.0.0.1:9050".
func WithProxy(proxy string) ManagerOption {
	return func(m *BrowserManager) {
		m.proxy = proxy
	}
}

// WithHeadless toggles headless mode. Defaults to true.
func WithHeadless(headless bool) ManagerOption {
	return func(m *BrowserManager) {
		m.headless = headless
	}
}

// NewBrowserManager launches the first browser. Close must be called when
// the manager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	m := &BrowserManager{
		maxPages: DefaultMaxPages,
		headless: true,
	}
	for _, opt := range opts {
		opt(m)
	}

	s, err := m.launch()
	if err != nil {
		return nil, err
	}
	m.current = s
	return m, nil
}

// Acquire returns the browser to open the next page in and a release func
// to call once the page is done. A nil browser means the manager is closed.
func (m *BrowserManager) Acquire() (*rod.Browser, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, func() {}
	}
	if m.maxPages > 0 && m.served >= m.maxPages {
		m.recycle()
	}
	return m.current.browser, m.release
}

func (m *BrowserManager) release() {
	m.mu.Lock()
	m.served++
	m.mu.Unlock()
}

// recycle swaps in a fresh browser. Pages still open on the old one fail and
// are retried by the caller. A failed launch keeps the old browser.
// Must be called with mu held.
func (m *BrowserManager) recycle() {
	fresh, err := m.launch()
	if err != nil {
		return
	}
	_ = m.current.stop()
	m.current = fresh
	m.served = 0
}

func (m *BrowserManager) launch() (*session, error) {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(m.headless)
	if m.proxy != "" {
		l = l.Proxy(m.proxy)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	return &session{browser: browser, launcher: l}, nil
}

// Close stops the browser process. Close is safe to call multiple times.
func (m *BrowserManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.current.stop()
}

// LauncherPID returns the PID of the current browser process, or 0 once
// closed.
func (m *BrowserManager) LauncherPID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0
	}
	return m.current.launcher.PID()
}
