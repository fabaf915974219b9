package search

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/codefionn/autoresolve/internal/config"
)

// The Custom Search JSON API returns at most ten items per page.
const googlePSEMaxResults = 10

// GooglePSE queries a Google Programmable Search Engine. HTML snippets are
// preferred; FormatResults turns them into Markdown.
type GooglePSE struct {
	apiKey string
	cx     string
	api    endpoint
}

func NewGooglePSE(cfg config.GooglePSEConfig, opts ...Option) *GooglePSE {
	return &GooglePSE{
		apiKey: cfg.APIKey,
		cx:     cfg.CX,
		api:    newEndpoint("google_pse", "https://www.googleapis.com/customsearch/v1", opts),
	}
}

func (g *GooglePSE) Name() string { return "google_pse" }

func (g *GooglePSE) Validate() error {
	switch {
	case g.apiKey == "":
		return errors.New("google_pse: api key is not configured")
	case g.cx == "":
		return errors.New("google_pse: search engine id (cx) is not configured")
	}
	return nil
}

func (g *GooglePSE) Search(ctx context.Context, query string, numResults int) (*Response, error) {
	q := url.Values{
		"key": {g.apiKey},
		"cx":  {g.cx},
		"q":   {query},
		"num": {strconv.Itoa(clampResults(numResults, googlePSEMaxResults, googlePSEMaxResults))},
	}
	req, err := g.api.request(ctx, http.MethodGet, "?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var reply struct {
		Items []struct {
			Title       string `json:"title"`
			Link        string `json:"link"`
			Snippet     string `json:"snippet"`
			HTMLSnippet string `json:"htmlSnippet"`
		} `json:"items"`
	}
	if err := g.api.do(req, &reply); err != nil {
		return nil, err
	}

	out := &Response{Query: query, Results: make([]Result, 0, len(reply.Items))}
	for _, item := range reply.Items {
		snippet := item.HTMLSnippet
		if snippet == "" {
			snippet = item.Snippet
		}
		out.Results = append(out.Results, Result{Title: item.Title, URL: item.Link, Snippet: snippet})
	}
	return out, nil
}
