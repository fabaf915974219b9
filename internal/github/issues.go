package github

import (
	"context"
	"fmt"
)

// Issue is the part of an issue the resolver reads.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
}

// PullRequest is the part of a pull request the resolver reads.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Head   struct {
		Ref  string `json:"ref"`
		Repo struct {
			Fork bool `json:"fork"`
		} `json:"repo"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

// GetIssue fetches an issue.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/issues/%d", urlPathEscape(owner), urlPathEscape(repo), number)

	var issue Issue
	if err := c.call(ctx, "GET", endpoint, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetPullRequest fetches a pull request.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/pulls/%d", urlPathEscape(owner), urlPathEscape(repo), number)

	var pr PullRequest
	if err := c.call(ctx, "GET", endpoint, nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}
