package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/satyagyan/internal/model"
)

// Provider names accepted by NewSearcher.
const (
	ProviderSerper = "serper"
	ProviderTavily = "tavily"
	ProviderNone   = "none"
)

// DefaultTimeout bounds one search API call.
const DefaultTimeout = 30 * time.Second

var (
	// ErrUnknownProvider is returned by NewSearcher for unknown backends.
	ErrUnknownProvider = errors.New("unknown search provider")

	// ErrAPI is wrapped around non-200 responses from a search API.
	ErrAPI = errors.New("search API error")
)

// Searcher runs a web search and returns at most limit results.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.Source, error)
}

type options struct {
	client  *http.Client
	baseURL string
}

// Option configures a searcher.
type Option func(*options)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithBaseURL overrides the API endpoint. Tests point it at httptest servers.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

func newOptions(defaultURL string, opts []Option) options {
	o := options{
		client:  &http.Client{Timeout: DefaultTimeout},
		baseURL: defaultURL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewSearcher returns the searcher for provider.
// It returns nil without error when provider is "none" or the key is
// empty: research then runs on the model's own knowledge.
func NewSearcher(provider, apiKey string, opts ...Option) (Searcher, error) {
	switch strings.ToLower(provider) {
	case ProviderNone:
		return nil, nil
	case ProviderSerper, "":
		if apiKey == "" {
			return nil, nil
		}
		return NewSerper(apiKey, opts...), nil
	case ProviderTavily:
		if apiKey == "" {
			return nil, nil
		}
		return NewTavily(apiKey, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
}

// FormatResults renders sources as a numbered list for a prompt.
func FormatResults(sources []model.Source) string {
	if len(sources) == 0 {
		return "No web search results were available."
	}
	var b strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&b, "[%d] %s\n    URL: %s\n", i+1, s.Title, s.URL)
		if s.Snippet != "" {
			fmt.Fprintf(&b, "    %s\n", s.Snippet)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
