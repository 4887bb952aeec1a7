package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultRenderTimeout bounds one page load in the browser.
const DefaultRenderTimeout = 45 * time.Second

// RodRenderer renders pages in a headless Chromium driven by go-rod.
// The browser is launched on first use and shared by all calls;
// each call opens and closes its own tab.
type RodRenderer struct {
	timeout   time.Duration
	proxy     string
	bin       string
	userAgent string

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// RodOption configures a RodRenderer.
type RodOption func(*RodRenderer)

// WithRenderTimeout sets the per-page load timeout.
func WithRenderTimeout(d time.Duration) RodOption {
	return func(r *RodRenderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithBrowserProxy routes the browser through a SOCKS5 proxy ("host:port").
func WithBrowserProxy(addr string) RodOption {
	return func(r *RodRenderer) {
		r.proxy = addr
	}
}

// WithBrowserBin uses the Chromium binary at path instead of downloading one.
func WithBrowserBin(path string) RodOption {
	return func(r *RodRenderer) {
		r.bin = path
	}
}

// WithBrowserUserAgent overrides the browser's User-Agent.
func WithBrowserUserAgent(ua string) RodOption {
	return func(r *RodRenderer) {
		r.userAgent = ua
	}
}

// NewRodRenderer creates a renderer. No browser is started until Render.
func NewRodRenderer(opts ...RodOption) *RodRenderer {
	r := &RodRenderer{timeout: DefaultRenderTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ProxyAddr returns the SOCKS5 address the browser is routed through,
// or "" for a direct connection.
func (r *RodRenderer) ProxyAddr() string {
	return r.proxy
}

// Render loads url and returns the DOM serialized as HTML once the page
// has fired its load event.
func (r *RodRenderer) Render(ctx context.Context, url string) (string, error) {
	browser, err := r.connect()
	if err != nil {
		return "", err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to open tab: %w", err)
	}
	defer page.Close() //nolint:errcheck // tab is discarded either way

	if r.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.userAgent}); err != nil {
			return "", fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	p := page.Timeout(r.timeout)
	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("page did not finish loading: %w", err)
	}

	markup, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read DOM: %w", err)
	}
	return markup, nil
}

func (r *RodRenderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().Headless(true)
	if r.bin != "" {
		l = l.Bin(r.bin)
	}
	if r.proxy != "" {
		l = l.Proxy("socks5://" + r.proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	// The browser is shared, so it is not bound to the caller's context.
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	r.launcher = l
	r.browser = browser
	return browser, nil
}

// Close shuts the browser down. It is safe to call when no browser was started.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.launcher.Cleanup()
	r.browser = nil
	r.launcher = nil
	return err
}
