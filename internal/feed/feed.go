package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/nao1215/satyagyan/internal/fetch"
	"github.com/nao1215/satyagyan/internal/model"
)

// DefaultMaxItems caps the items taken from one feed read.
const DefaultMaxItems = 20

// Loader reads feeds over HTTP or from local files.
type Loader struct {
	client    *http.Client
	userAgent string
	maxItems  int
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithUserAgent sets the User-Agent header of feed requests.
func WithUserAgent(ua string) LoaderOption {
	return func(l *Loader) {
		l.userAgent = ua
	}
}

// WithMaxItems caps the number of items returned by Load.
// A non-positive value returns every item.
func WithMaxItems(n int) LoaderOption {
	return func(l *Loader) {
		l.maxItems = n
	}
}

// NewLoader creates a Loader. A nil client uses http.DefaultClient.
func NewLoader(client *http.Client, opts ...LoaderOption) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	l := &Loader{
		client:   client,
		maxItems: DefaultMaxItems,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the feed at source with default settings.
func Load(ctx context.Context, source string) ([]model.Input, error) {
	return NewLoader(nil).Load(ctx, source)
}

// Load reads the feed at source, which is an http(s) URL or a local file
// path, and converts its items to inputs in feed order.
func (l *Loader) Load(ctx context.Context, source string) ([]model.Input, error) {
	var (
		feed *gofeed.Feed
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		feed, err = l.fetch(ctx, source)
	} else {
		feed, err = parseFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read feed %s: %w", source, err)
	}
	return l.inputs(feed), nil
}

// Parse converts a feed document to inputs.
func (l *Loader) Parse(r io.Reader) ([]model.Input, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, err
	}
	return l.inputs(feed), nil
}

func (l *Loader) fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return gofeed.NewParser().Parse(resp.Body)
}

func parseFile(path string) (*gofeed.Feed, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided feed path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return gofeed.NewParser().Parse(f)
}

func (l *Loader) inputs(feed *gofeed.Feed) []model.Input {
	inputs := make([]model.Input, 0, len(feed.Items))
	for _, item := range feed.Items {
		if l.maxItems > 0 && len(inputs) >= l.maxItems {
			break
		}
		if in, ok := ItemInput(item); ok {
			inputs = append(inputs, in)
		}
	}
	return inputs
}

// ItemInput converts a feed item. Items with a link become URL (or
// YouTube) inputs; the rest become claims built from title and
// description. ok is false for items with nothing to check.
func ItemInput(item *gofeed.Item) (model.Input, bool) {
	if item == nil {
		return model.Input{}, false
	}

	if link := strings.TrimSpace(item.Link); link != "" {
		if in := model.DetectInput(link); in.Kind != model.InputText {
			return in, true
		}
	}

	parts := make([]string, 0, 2)
	if title := strings.TrimSpace(item.Title); title != "" {
		parts = append(parts, title)
	}
	if desc := plainText(item.Description); desc != "" && desc != strings.TrimSpace(item.Title) {
		parts = append(parts, desc)
	}
	if len(parts) == 0 {
		return model.Input{}, false
	}
	return model.NewTextInput(strings.Join(parts, "\n\n")), true
}

// plainText strips markup from an item description.
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "<") {
		return fetch.CollapseWhitespace(s)
	}
	page, err := fetch.ParseHTML(strings.NewReader(s))
	if err != nil {
		return fetch.CollapseWhitespace(s)
	}
	return page.Text
}
