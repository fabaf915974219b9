package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// CodeHit is one code search match.
type CodeHit struct {
	Path      string
	HTMLURL   string
	Fragments []string
}

type codeSearchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		Path        string `json:"path"`
		HTMLURL     string `json:"html_url"`
		TextMatches []struct {
			Fragment string `json:"fragment"`
		} `json:"text_matches"`
	} `json:"items"`
}

// SearchCode searches the default branch of owner/repo. Code search only
// indexes default branches.
func (c *Client) SearchCode(ctx context.Context, owner, repo, query string, perPage int) ([]CodeHit, error) {
	if perPage <= 0 {
		perPage = 5
	}
	q := strings.TrimSpace(query)
	if owner != "" && repo != "" {
		q += fmt.Sprintf(" repo:%s/%s", owner, repo)
	}
	endpoint := fmt.Sprintf("/search/code?q=%s&per_page=%d", url.QueryEscape(q), perPage)

	req, err := c.newRequest(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.text-match+json")

	var raw codeSearchResponse
	if err := c.do(req, &raw); err != nil {
		return nil, err
	}

	hits := make([]CodeHit, 0, len(raw.Items))
	for _, item := range raw.Items {
		hit := CodeHit{Path: item.Path, HTMLURL: item.HTMLURL}
		for _, m := range item.TextMatches {
			hit.Fragments = append(hit.Fragments, m.Fragment)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
