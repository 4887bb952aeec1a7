package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout is used when no timeout option is given.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRedirects is the number of redirects followed before the
	// last response is returned as-is.
	DefaultMaxRedirects = 10

	// checkProxyTimeout bounds the SOCKS5 handshake in CheckProxy.
	checkProxyTimeout = 2 * time.Second
)

// SiteHeaders returns the cookie and extra headers to send for a request URL.
type SiteHeaders func(rawURL string) (cookie string, headers map[string]string)

type clientOptions struct {
	timeout      time.Duration
	proxyAddress string
	userAgent    string
	cookie       string
	headers      map[string]string
	site         SiteHeaders
	maxRedirects int
}

// Option configures NewHTTPClient.
type Option func(*clientOptions)

// WithTimeout sets the overall request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithProxy routes every connection through the SOCKS5 proxy at addr.
func WithProxy(addr string) Option {
	return func(o *clientOptions) {
		o.proxyAddress = addr
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(o *clientOptions) {
		o.userAgent = ua
	}
}

// WithCookie adds a raw cookie string ("a=1; b=2") to every request.
func WithCookie(cookie string) Option {
	return func(o *clientOptions) {
		o.cookie = cookie
	}
}

// WithHeaders sets extra headers on every request.
func WithHeaders(headers map[string]string) Option {
	return func(o *clientOptions) {
		o.headers = headers
	}
}

// WithSiteHeaders resolves a cookie and headers per request URL.
// They are applied after the static WithCookie and WithHeaders values.
func WithSiteHeaders(fn SiteHeaders) Option {
	return func(o *clientOptions) {
		o.site = fn
	}
}

// WithMaxRedirects limits how many redirects are followed.
func WithMaxRedirects(n int) Option {
	return func(o *clientOptions) {
		o.maxRedirects = n
	}
}

// NewHTTPClient builds an HTTP client for content fetching.
// It fails only when a proxy address is given and is malformed.
func NewHTTPClient(opts ...Option) (*http.Client, error) {
	o := clientOptions{
		timeout:      DefaultTimeout,
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(&o)
	}

	base := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	if o.proxyAddress != "" {
		dialContext, err := socks5DialContext(o.proxyAddress)
		if err != nil {
			return nil, err
		}
		base.Proxy = nil
		base.DialContext = dialContext
		// Proxy circuits are a scarce resource; keep the pool small.
		base.MaxIdleConns = 10
		base.MaxIdleConnsPerHost = 2
		base.IdleConnTimeout = 30 * time.Second
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	maxRedirects := o.maxRedirects
	return &http.Client{
		Transport: &headerInjectingTransport{
			base:      base,
			userAgent: o.userAgent,
			cookie:    o.cookie,
			headers:   o.headers,
			site:      o.site,
		},
		Timeout: o.timeout,
		Jar:     jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// socks5DialContext returns a context-aware dial function through addr.
func socks5DialContext(addr string) (func(ctx context.Context, network, address string) (net.Conn, error), error) {
	if !isValidProxyAddress(addr) {
		return nil, ErrInvalidProxyAddress
	}

	// No auth: Tor's SOCKS port and most local proxies accept anonymous clients.
	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		type result struct {
			conn net.Conn
			err  error
		}
		ch := make(chan result, 1)
		go func() {
			conn, err := dialer.Dial(network, address)
			ch <- result{conn, err}
		}()
		select {
		case r := <-ch:
			return r.conn, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, nil
}

// isValidProxyAddress reports whether address is "host:port" with a port
// in 1..65535. IPv6 hosts must be bracketed.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// SOCKS5 protocol constants.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5CmdConnect   = 0x01
	socks5AddrTypeName = 0x03

	// socks5ProbeHost is the destination of the probe CONNECT. Any reply,
	// success or failure, proves the proxy parsed the request.
	socks5ProbeHost = "example.com"
)

// CheckProxy verifies that addr is an unauthenticated SOCKS5 proxy by
// performing a version negotiation followed by a CONNECT request.
func CheckProxy(ctx context.Context, addr string) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		return statusForReadError(err)
	}
	if authResp[0] != socks5Version || authResp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	req := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrTypeName, byte(len(socks5ProbeHost))}
	req = append(req, socks5ProbeHost...)
	req = append(req, 0x00, 80)
	if _, err := conn.Write(req); err != nil {
		return ProxyStatusCannotConnect
	}

	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		return statusForReadError(err)
	}
	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}

	return ProxyStatusOK
}

func statusForReadError(err error) ProxyStatus {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ProxyStatusTimeout
	}
	return ProxyStatusWrongType
}

// headerInjectingTransport adds the User-Agent, cookies and headers to
// every request, including the ones issued for redirects.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	cookie    string
	headers   map[string]string
	site      SiteHeaders
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" && clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}

	addCookie(clone, t.cookie)
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}

	if t.site != nil {
		cookie, headers := t.site(clone.URL.String())
		addCookie(clone, cookie)
		for k, v := range headers {
			clone.Header.Set(k, v)
		}
	}

	return t.base.RoundTrip(clone)
}

func addCookie(req *http.Request, cookie string) {
	if cookie == "" {
		return
	}
	if existing := req.Header.Get("Cookie"); existing != "" {
		req.Header.Set("Cookie", existing+"; "+cookie)
		return
	}
	req.Header.Set("Cookie", cookie)
}
