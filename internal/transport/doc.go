// Package transport builds the HTTP clients used to fetch claim content.
//
// Clients can go out directly, through a user-supplied SOCKS5 proxy, or
// through a private Tor daemon started with EmbeddedTor. Every client
// injects the configured User-Agent plus any per-site cookie and headers
// into each request, redirects included.
//
// Only content fetching uses these clients. Calls to LLM and search
// providers keep their own clients and never go through a proxy.
package transport
