package search

import (
	"context"
	"errors"
	"net/http"

	"github.com/codefionn/autoresolve/internal/config"
)

const perplexityMaxResults = 20

// Perplexity queries the Perplexity Search API. Publication dates, when
// present, prefix the snippet.
type Perplexity struct {
	apiKey string
	api    endpoint
}

func NewPerplexity(cfg config.PerplexityConfig, opts ...Option) *Perplexity {
	return &Perplexity{apiKey: cfg.APIKey, api: newEndpoint("perplexity", "https://api.perplexity.ai", opts)}
}

func (p *Perplexity) Name() string { return "perplexity" }

func (p *Perplexity) Validate() error {
	if p.apiKey == "" {
		return errors.New("perplexity: api key is not configured")
	}
	return nil
}

func (p *Perplexity) Search(ctx context.Context, query string, numResults int) (*Response, error) {
	body := map[string]any{
		"query":       query,
		"max_results": clampResults(numResults, 10, perplexityMaxResults),
	}
	req, err := p.api.request(ctx, http.MethodPost, "/search", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	var reply struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
			Date    string `json:"date"`
		} `json:"results"`
	}
	if err := p.api.do(req, &reply); err != nil {
		return nil, err
	}

	out := &Response{Query: query, Results: make([]Result, 0, len(reply.Results))}
	for _, hit := range reply.Results {
		snippet := hit.Snippet
		if hit.Date != "" {
			snippet = "(" + hit.Date + ") " + snippet
		}
		out.Results = append(out.Results, Result{Title: hit.Title, URL: hit.URL, Snippet: snippet})
	}
	return out, nil
}
