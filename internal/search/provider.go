// Package search answers the model's search_remote_content calls, either with
// GitHub code search scoped to the target repository or with a web search API.
package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/codefionn/autoresolve/internal/config"
	"github.com/codefionn/autoresolve/internal/htmlconv"
)

// Result represents a single search hit
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Content string `json:"content,omitempty"` // Full content if available
}

// Response represents the response from a search provider
type Response struct {
	Results []Result `json:"results"`
	Query   string   `json:"query"`
}

// Provider defines the interface for search backends
type Provider interface {
	// Search runs query and returns at most numResults hits
	Search(ctx context.Context, query string, numResults int) (*Response, error)

	// Name returns the name of the search provider
	Name() string

	// Validate checks if the provider is properly configured
	Validate() error
}

// NewProvider builds the provider selected in cfg. code is only used by the
// "github" provider and may be nil otherwise.
func NewProvider(cfg config.SearchConfig, code CodeSearcher, httpClient *http.Client) (Provider, error) {
	var p Provider
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "github":
		p = NewGitHubProvider(code)
	case "exa":
		p = NewExa(cfg.Exa, WithHTTPClient(httpClient))
	case "google_pse":
		p = NewGooglePSE(cfg.GooglePSE, WithHTTPClient(httpClient))
	case "perplexity":
		p = NewPerplexity(cfg.Perplexity, WithHTTPClient(httpClient))
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

const contentPreviewChars = 500

// FormatResults renders a response as the text handed back to the model.
// HTML in snippets is converted to Markdown.
func FormatResults(resp *Response) string {
	if resp == nil || len(resp.Results) == 0 {
		query := ""
		if resp != nil {
			query = resp.Query
		}
		return fmt.Sprintf("No results found for: %s", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for: %s\n\n", resp.Query)
	fmt.Fprintf(&sb, "Found %d result(s):\n\n", len(resp.Results))

	for i, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, title)
		if r.URL != "" {
			fmt.Fprintf(&sb, "   URL: %s\n", r.URL)
		}
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", indent(htmlconv.ToMarkdown(r.Snippet)))
		}
		if r.Content != "" && r.Content != r.Snippet {
			fmt.Fprintf(&sb, "   Content: %s\n", indent(excerpt(r.Content, contentPreviewChars)))
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func indent(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n   ")
}
