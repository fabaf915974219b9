package search

import (
	"context"
	"errors"
	"net/http"

	"github.com/codefionn/autoresolve/internal/config"
)

const exaSnippetChars = 200

// Exa queries the Exa neural search API and asks for page text, which is
// returned as Result.Content.
type Exa struct {
	apiKey string
	api    endpoint
}

func NewExa(cfg config.ExaConfig, opts ...Option) *Exa {
	return &Exa{apiKey: cfg.APIKey, api: newEndpoint("exa", "https://api.exa.ai", opts)}
}

func (e *Exa) Name() string { return "exa" }

func (e *Exa) Validate() error {
	if e.apiKey == "" {
		return errors.New("exa: api key is not configured")
	}
	return nil
}

func (e *Exa) Search(ctx context.Context, query string, numResults int) (*Response, error) {
	body := map[string]any{
		"query":         query,
		"numResults":    clampResults(numResults, 10, 100),
		"useAutoprompt": true,
		"contents":      map[string]bool{"text": true},
	}
	req, err := e.api.request(ctx, http.MethodPost, "/search", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", e.apiKey)

	var reply struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Text    string `json:"text"`
			Snippet string `json:"snippet"`
		} `json:"results"`
	}
	if err := e.api.do(req, &reply); err != nil {
		return nil, err
	}

	out := &Response{Query: query, Results: make([]Result, 0, len(reply.Results))}
	for _, hit := range reply.Results {
		snippet := hit.Snippet
		if snippet == "" {
			snippet = excerpt(hit.Text, exaSnippetChars)
		}
		out.Results = append(out.Results, Result{Title: hit.Title, URL: hit.URL, Snippet: snippet, Content: hit.Text})
	}
	return out, nil
}
