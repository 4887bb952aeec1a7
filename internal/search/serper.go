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

// SerperURL is the Serper Google search endpoint.
const SerperURL = "https://google.serper.dev/search"

// Serper searches Google through serper.dev.
type Serper struct {
	apiKey string
	opts   options
}

// NewSerper creates a Serper searcher.
func NewSerper(apiKey string, opts ...Option) *Serper {
	return &Serper{apiKey: apiKey, opts: newOptions(SerperURL, opts)}
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
}

type serperResponse struct {
	AnswerBox *struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answerBox"`
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search implements Searcher. A direct answer, when Google shows one,
// comes first.
func (s *Serper) Search(ctx context.Context, query string, limit int) ([]model.Source, error) {
	body, err := json.Marshal(serperRequest{Q: query, Num: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	resp, err := s.opts.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024)) //nolint:errcheck // message is best effort
		return nil, fmt.Errorf("%w: serper returned status %d: %s", ErrAPI, resp.StatusCode, string(msg))
	}

	var sr serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]model.Source, 0, len(sr.Organic)+1)
	if ab := sr.AnswerBox; ab != nil && ab.Link != "" {
		snippet := ab.Answer
		if snippet == "" {
			snippet = ab.Snippet
		}
		results = append(results, model.Source{Title: ab.Title, URL: ab.Link, Snippet: snippet})
	}
	for _, o := range sr.Organic {
		results = append(results, model.Source{Title: o.Title, URL: o.Link, Snippet: o.Snippet})
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
