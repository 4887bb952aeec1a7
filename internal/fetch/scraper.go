package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/satyagyan/internal/extract"
)

const (
	// DefaultMaxBodySize limits how much of a response is read.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultMaxChars limits the text kept from a page.
	DefaultMaxChars = 20000
)

// Renderer loads a URL in a browser and returns the resulting HTML.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Scraper fetches web pages and reduces them to readable text.
type Scraper struct {
	client      *http.Client
	renderer    Renderer
	renderFor   func(url string) bool
	maxBodySize int64
	maxChars    int
	logger      *slog.Logger
}

// ScraperOption configures a Scraper.
type ScraperOption func(*Scraper)

// WithMaxBodySize sets the maximum number of response bytes read.
func WithMaxBodySize(n int64) ScraperOption {
	return func(s *Scraper) {
		if n > 0 {
			s.maxBodySize = n
		}
	}
}

// WithMaxChars sets the maximum number of characters of text kept.
// Zero keeps everything.
func WithMaxChars(n int) ScraperOption {
	return func(s *Scraper) {
		s.maxChars = n
	}
}

// WithRenderer loads pages through r. When renderFor is nil every page is
// rendered; otherwise only the URLs for which it returns true.
func WithRenderer(r Renderer, renderFor func(url string) bool) ScraperOption {
	return func(s *Scraper) {
		s.renderer = r
		s.renderFor = renderFor
	}
}

// WithScraperLogger sets the logger.
func WithScraperLogger(l *slog.Logger) ScraperOption {
	return func(s *Scraper) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScraper creates a Scraper that uses client for plain HTTP fetches.
// The client is expected to come from the transport package so that
// per-site headers and proxies apply.
func NewScraper(client *http.Client, opts ...ScraperOption) *Scraper {
	if client == nil {
		client = http.DefaultClient
	}
	s := &Scraper{
		client:      client,
		maxBodySize: DefaultMaxBodySize,
		maxChars:    DefaultMaxChars,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape returns the readable content of rawURL.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*Page, error) {
	var (
		page *Page
		err  error
	)
	if s.shouldRender(rawURL) {
		page, err = s.render(ctx, rawURL)
	} else {
		page, err = s.get(ctx, rawURL)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(page.Text) == "" && page.Description == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyContent, rawURL)
	}

	page.Text, page.Truncated = Truncate(page.Text, s.maxChars)
	s.logger.Debug("page scraped",
		"url", rawURL,
		"title", page.Title,
		"chars", len(page.Text),
		"rendered", page.Rendered,
		"truncated", page.Truncated,
	)
	return page, nil
}

func (s *Scraper) shouldRender(rawURL string) bool {
	if s.renderer == nil {
		return false
	}
	return s.renderFor == nil || s.renderFor(rawURL)
}

func (s *Scraper) render(ctx context.Context, rawURL string) (*Page, error) {
	markup, err := s.renderer.Render(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", rawURL, err)
	}
	page, err := ParseHTML(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered page: %w", err)
	}
	page.URL = rawURL
	page.FinalURL = rawURL
	page.ContentType = "text/html"
	page.Rendered = true
	return page, nil
}

func (s *Scraper) get(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,application/pdf;q=0.8,*/*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType) //nolint:errcheck // empty media type falls through to sniffing
	if mediaType == "" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(body)) //nolint:errcheck // DetectContentType always returns a valid type
	}

	var page *Page
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		r, err := charset.NewReader(bytes.NewReader(body), contentType)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", rawURL, err)
		}
		page, err = ParseHTML(r)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", rawURL, err)
		}
	case strings.HasPrefix(mediaType, "text/"):
		r, err := charset.NewReader(bytes.NewReader(body), contentType)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", rawURL, err)
		}
		text, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		page = &Page{Text: CollapseWhitespace(string(text))}
	case mediaType == "application/pdf":
		text, err := extract.FromFile("document.pdf", body)
		if err != nil {
			return nil, err
		}
		page = &Page{Text: CollapseWhitespace(text)}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, mediaType)
	}

	page.URL = rawURL
	page.FinalURL = resp.Request.URL.String()
	page.StatusCode = resp.StatusCode
	page.ContentType = mediaType
	return page, nil
}
