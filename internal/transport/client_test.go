package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fakeProxy accepts one connection and hands it to serve.
func fakeProxy(t *testing.T, serve func(conn net.Conn)) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx // test code
	if err != nil {
		t.Fatalf("failed to start fake proxy: %v", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}()

	return listener.Addr().String()
}

func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:9050", true},
		{"localhost:1080", true},
		{"[::1]:9050", true},
		{"127.0.0.1", false},
		{":9050", false},
		{"127.0.0.1:0", false},
		{"127.0.0.1:65536", false},
		{"127.0.0.1:abc", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			t.Parallel()
			if got := isValidProxyAddress(tt.addr); got != tt.want {
				t.Errorf("isValidProxyAddress(%q) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Timeout != DefaultTimeout {
			t.Errorf("expected timeout %v, got %v", DefaultTimeout, client.Timeout)
		}
		if client.Jar == nil {
			t.Error("expected a cookie jar")
		}
	})

	t.Run("timeout option", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(WithTimeout(5 * time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Timeout != 5*time.Second {
			t.Errorf("expected 5s, got %v", client.Timeout)
		}
	})

	t.Run("invalid proxy address", func(t *testing.T) {
		t.Parallel()

		_, err := NewHTTPClient(WithProxy("not-an-address"))
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("valid proxy address", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(WithProxy("127.0.0.1:9050"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		hit, ok := client.Transport.(*headerInjectingTransport)
		if !ok {
			t.Fatalf("expected headerInjectingTransport, got %T", client.Transport)
		}
		base, ok := hit.base.(*http.Transport)
		if !ok {
			t.Fatalf("expected *http.Transport base, got %T", hit.base)
		}
		if base.DialContext == nil {
			t.Error("expected a SOCKS5 DialContext")
		}
		if base.Proxy != nil {
			t.Error("expected environment proxy to be disabled")
		}
	})
}

func TestHeaderInjection(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(
		WithUserAgent("SatyaGyan-Test"),
		WithCookie("global=1"),
		WithHeaders(map[string]string{"Accept-Language": "en"}),
		WithSiteHeaders(func(rawURL string) (string, map[string]string) {
			return "site=2", map[string]string{"X-Site": rawURL}
		}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL+"/article", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
	got := <-headers

	if ua := got.Get("User-Agent"); ua != "SatyaGyan-Test" {
		t.Errorf("User-Agent = %q", ua)
	}
	if c := got.Get("Cookie"); c != "global=1; site=2" {
		t.Errorf("Cookie = %q", c)
	}
	if v := got.Get("Accept-Language"); v != "en" {
		t.Errorf("Accept-Language = %q", v)
	}
	if v := got.Get("X-Site"); v != server.URL+"/article" {
		t.Errorf("X-Site = %q", v)
	}
}

func TestHeaderInjectionKeepsExplicitUserAgent(t *testing.T) {
	t.Parallel()

	agents := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(WithUserAgent("default-agent"))
	if err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("User-Agent", "explicit-agent")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	if ua := <-agents; ua != "explicit-agent" {
		t.Errorf("expected explicit agent to win, got %q", ua)
	}
}

func TestRedirectLimit(t *testing.T) {
	t.Parallel()

	var hops atomic.Int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops.Add(1)
		http.Redirect(w, r, server.URL+"/loop", http.StatusFound)
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(WithMaxRedirects(2))
	if err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("expected last response instead of error, got %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected 302, got %d", resp.StatusCode)
	}
	if n := hops.Load(); n != 2 {
		t.Errorf("expected 2 requests, got %d", n)
	}
}

func TestProxyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status  ProxyStatus
		str     string
		wantErr error
	}{
		{ProxyStatusOK, "OK", nil},
		{ProxyStatusWrongType, "not a SOCKS5 proxy", ErrProxyNotSOCKS5},
		{ProxyStatusCannotConnect, "cannot connect", ErrProxyCannotConnect},
		{ProxyStatusTimeout, "timeout", ErrProxyTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			t.Parallel()

			if tt.status.String() != tt.str {
				t.Errorf("String() = %q, want %q", tt.status.String(), tt.str)
			}
			if !errors.Is(tt.status.Err(), tt.wantErr) {
				t.Errorf("Err() = %v, want %v", tt.status.Err(), tt.wantErr)
			}
		})
	}

	if ProxyStatus(99).String() != "unknown" {
		t.Error("expected unknown for out-of-range status")
	}
}

func TestCheckProxy(t *testing.T) {
	t.Parallel()

	t.Run("nothing listening", func(t *testing.T) {
		t.Parallel()

		if status := CheckProxy(t.Context(), "127.0.0.1:59999"); status != ProxyStatusCannotConnect {
			t.Errorf("expected CannotConnect, got %v", status)
		}
	})

	t.Run("http server is not SOCKS5", func(t *testing.T) {
		t.Parallel()

		addr := fakeProxy(t, func(conn net.Conn) {
			buf := make([]byte, 3)
			_, _ = conn.Read(buf)
			_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		})

		if status := CheckProxy(t.Context(), addr); status != ProxyStatusWrongType {
			t.Errorf("expected WrongType, got %v", status)
		}
	})

	t.Run("proxy requiring authentication", func(t *testing.T) {
		t.Parallel()

		addr := fakeProxy(t, func(conn net.Conn) {
			buf := make([]byte, 3)
			_, _ = conn.Read(buf)
			_, _ = conn.Write([]byte{0x05, 0xFF})
		})

		if status := CheckProxy(t.Context(), addr); status != ProxyStatusWrongType {
			t.Errorf("expected WrongType, got %v", status)
		}
	})

	t.Run("working SOCKS5 proxy", func(t *testing.T) {
		t.Parallel()

		addr := fakeProxy(t, func(conn net.Conn) {
			buf := make([]byte, 3)
			_, _ = conn.Read(buf)
			_, _ = conn.Write([]byte{0x05, 0x00})
			req := make([]byte, 256)
			_, _ = conn.Read(req)
			// host unreachable still proves the proxy handled the request
			_, _ = conn.Write([]byte{0x05, 0x04, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
		})

		if status := CheckProxy(t.Context(), addr); status != ProxyStatusOK {
			t.Errorf("expected OK, got %v", status)
		}
	})

	t.Run("wrong version in CONNECT reply", func(t *testing.T) {
		t.Parallel()

		addr := fakeProxy(t, func(conn net.Conn) {
			buf := make([]byte, 3)
			_, _ = conn.Read(buf)
			_, _ = conn.Write([]byte{0x05, 0x00})
			req := make([]byte, 256)
			_, _ = conn.Read(req)
			_, _ = conn.Write([]byte{0x04, 0x00, 0x00, 0x01})
		})

		if status := CheckProxy(t.Context(), addr); status != ProxyStatusWrongType {
			t.Errorf("expected WrongType, got %v", status)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		status := CheckProxy(ctx, "127.0.0.1:59998")
		if status != ProxyStatusCannotConnect && status != ProxyStatusTimeout {
			t.Errorf("expected CannotConnect or Timeout, got %v", status)
		}
	})
}
