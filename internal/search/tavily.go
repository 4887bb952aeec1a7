package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nao1215/satyagyan/internal/model"
)

// TavilyURL is the Tavily search endpoint.
const TavilyURL = "https://api.tavily.com/search"

// Tavily searches the web through the Tavily API.
type Tavily struct {
	apiKey string
	opts   options
}

// NewTavily creates a Tavily searcher.
func NewTavily(apiKey string, opts ...Option) *Tavily {
	return &Tavily{apiKey: apiKey, opts: newOptions(TavilyURL, opts)}
}

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search implements Searcher.
func (t *Tavily) Search(ctx context.Context, query string, limit int) ([]model.Source, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		SearchDepth: "advanced",
		MaxResults:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.opts.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024)) //nolint:errcheck // message is best effort
		return nil, fmt.Errorf("%w: tavily returned status %d: %s", ErrAPI, resp.StatusCode, string(msg))
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]model.Source, 0, len(tr.Results))
	for _, r := range tr.Results {
		results = append(results, model.Source{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
